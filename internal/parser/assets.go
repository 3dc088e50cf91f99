// Package parser extracts threshold and interval structures from market
// question text. Parsing is deterministic and rule-based; anything ambiguous
// yields no parse rather than a guess.
package parser

import "regexp"

// assetPatterns maps a canonical asset code onto the word patterns that
// identify it in question text. Crypto assets carry both ticker and full
// name; the equity/commodity entries cover the generic index and metal
// markets the venue lists.
var assetPatterns = map[string][]*regexp.Regexp{
	"btc":    compileAll(`\bbitcoin\b`, `\bbtc\b`),
	"eth":    compileAll(`\bethereum\b`, `\beth\b`),
	"sol":    compileAll(`\bsolana\b`, `\bsol\b`),
	"xrp":    compileAll(`\bripple\b`, `\bxrp\b`),
	"doge":   compileAll(`\bdogecoin\b`, `\bdoge\b`),
	"ada":    compileAll(`\bcardano\b`, `\bada\b`),
	"bnb":    compileAll(`\bbinance coin\b`, `\bbnb\b`),
	"avax":   compileAll(`\bavalanche\b`, `\bavax\b`),
	"dot":    compileAll(`\bpolkadot\b`, `\bdot\b`),
	"matic":  compileAll(`\bpolygon\b`, `\bmatic\b`),
	"link":   compileAll(`\bchainlink\b`, `\blink\b`),
	"atom":   compileAll(`\bcosmos\b`, `\batom\b`),
	"ltc":    compileAll(`\blitecoin\b`, `\bltc\b`),
	"uni":    compileAll(`\buniswap\b`, `\buni\b`),
	"gold":   compileAll(`\bgold\b`, `\bxau\b`),
	"silver": compileAll(`\bsilver\b`, `\bxag\b`),
	"oil":    compileAll(`\bcrude oil\b`, `\bwti\b`, `\bbrent\b`),
	"spx":    compileAll(`\bs&p\s*500\b`, `\bspx\b`),
	"ndx":    compileAll(`\bnasdaq\b`, `\bndx\b`),
	"tsla":   compileAll(`\btesla\b`, `\btsla\b`),
	"nvda":   compileAll(`\bnvidia\b`, `\bnvda\b`),
	"aapl":   compileAll(`\bapple\b`, `\baapl\b`),
}

// assetOrder fixes the scan order so detection is deterministic when a
// question mentions more than one alias.
var assetOrder = []string{
	"btc", "eth", "sol", "xrp", "doge", "ada", "bnb", "avax", "dot",
	"matic", "link", "atom", "ltc", "uni",
	"gold", "silver", "oil", "spx", "ndx", "tsla", "nvda", "aapl",
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// DetectAsset returns the canonical asset code named in the text, or "".
// When the text names more than one distinct asset the detection is
// ambiguous and "" is returned.
func DetectAsset(text string) string {
	found := ""
	for _, code := range assetOrder {
		for _, re := range assetPatterns[code] {
			if re.MatchString(text) {
				if found != "" && found != code {
					return ""
				}
				found = code
				break
			}
		}
	}
	return found
}
