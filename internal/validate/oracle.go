package validate

import (
	"regexp"
	"strings"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// authority is one recognizable resolution source. The list is ordered by
// precedence: the first match in the rules text wins.
type authority struct {
	token string
	re    *regexp.Regexp
	class string
}

var authorities = []authority{
	{"coinbase", regexp.MustCompile(`(?i)\bcoinbase\b`), "exchange"},
	{"binance", regexp.MustCompile(`(?i)\bbinance\b`), "exchange"},
	{"kraken", regexp.MustCompile(`(?i)\bkraken\b`), "exchange"},
	{"pyth", regexp.MustCompile(`(?i)\bpyth\b`), "oracle-network"},
	{"chainlink", regexp.MustCompile(`(?i)\bchainlink\b`), "oracle-network"},
	{"coingecko", regexp.MustCompile(`(?i)\bcoingecko\b`), "aggregator"},
	{"coinmarketcap", regexp.MustCompile(`(?i)\bcoinmarketcap\b`), "aggregator"},
	{"tradingview", regexp.MustCompile(`(?i)\btradingview\b`), "aggregator"},
	{"associated press", regexp.MustCompile(`(?i)\bassociated press\b|\bAP\b`), "wire"},
	{"reuters", regexp.MustCompile(`(?i)\breuters\b`), "wire"},
	{"bloomberg", regexp.MustCompile(`(?i)\bbloomberg\b`), "wire"},
	{"official government", regexp.MustCompile(`(?i)\bofficial government\b|\bgovernment announcement\b`), "official"},
}

// ExtractSource pulls the highest-precedence authority named in the rules
// text, preferring an explicitly set resolution source. Returns "" when
// nothing matches.
func ExtractSource(m *domain.Market) string {
	for _, text := range []string{m.ResolutionSource, m.Rules, m.Description} {
		if text == "" {
			continue
		}
		for _, a := range authorities {
			if a.re.MatchString(text) {
				return a.token
			}
		}
		// An explicit resolution source that matches no known authority
		// still identifies the oracle; normalize and use it verbatim.
		if text == m.ResolutionSource {
			return strings.ToLower(strings.TrimSpace(text))
		}
	}
	return ""
}

func classOf(source string) string {
	for _, a := range authorities {
		if a.token == source {
			return a.class
		}
	}
	return ""
}

// ClassifySources grades a pair of extracted sources. Identical strings
// (including two unknowns backed by identical rules) align; same authority
// class is compatible; one unknown side is compatible but flagged upstream;
// anything else is misaligned.
func ClassifySources(a, b string) domain.OracleAlignment {
	if a == b {
		return domain.OracleAligned
	}
	if a == "" || b == "" {
		return domain.OracleCompatible
	}
	if ca, cb := classOf(a), classOf(b); ca != "" && ca == cb {
		return domain.OracleCompatible
	}
	return domain.OracleMisaligned
}

// worseAlignment orders alignments so a multi-leg basket is graded by its
// weakest pair.
func worseAlignment(a, b domain.OracleAlignment) domain.OracleAlignment {
	rank := func(x domain.OracleAlignment) int {
		switch x {
		case domain.OracleAligned:
			return 0
		case domain.OracleCompatible:
			return 1
		default:
			return 2
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
