package strategy

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/alanyoungcy/arbscan/internal/domain"
	"github.com/alanyoungcy/arbscan/internal/graph"
)

// Equivalent detects two phrasings of the same question trading at different
// prices: buy the cheap YES, buy the expensive NO, collect 1 either way.
type Equivalent struct {
	params Params
	logger *slog.Logger
}

// NewEquivalent creates the duplicate-market strategy.
func NewEquivalent(params Params, logger *slog.Logger) *Equivalent {
	return &Equivalent{
		params: params,
		logger: logger.With(slog.String("strategy", "equivalent")),
	}
}

// Name returns the strategy identifier.
func (s *Equivalent) Name() string { return string(domain.StrategyEquivalent) }

// Requires declares the derived inputs this strategy consumes.
func (s *Equivalent) Requires() []graph.Input {
	return []graph.Input{graph.InputClusters, graph.InputLLM}
}

// Scan checks cluster pairs the analyzer judges EQUIVALENT. The negation
// filter runs before the analyzer verdict is trusted: two texts differing
// only by a negation word are opposites, never equivalents, no matter how
// confident the model is.
func (s *Equivalent) Scan(ctx context.Context, g *graph.MarketGraph) ([]domain.Opportunity, error) {
	az := g.Analyzer()
	if az == nil {
		return nil, nil
	}

	var out []domain.Opportunity
	for _, cl := range g.Clusters() {
		for i := 0; i < len(cl.MarketIDs); i++ {
			for j := i + 1; j < len(cl.MarketIDs); j++ {
				if ctx.Err() != nil {
					return out, ctx.Err()
				}

				ma, okA := g.Market(cl.MarketIDs[i])
				mb, okB := g.Market(cl.MarketIDs[j])
				if !okA || !okB {
					continue
				}

				if NegationMirror(ma.Question, mb.Question) {
					s.logger.Debug("negation filter rejected pair",
						slog.String("market_a", ma.ID),
						slog.String("market_b", mb.ID),
					)
					continue
				}

				gap := math.Abs(ma.YesMid - mb.YesMid)
				if gap <= s.params.EquivGap {
					continue
				}

				analysis, err := az.AnalyzePair(ctx, ma, mb)
				if err != nil {
					if errors.Is(err, domain.ErrBudgetExhausted) {
						return out, err
					}
					continue
				}
				if analysis.Relation != domain.RelationEquivalent ||
					analysis.Confidence < s.params.EquivConfidence {
					continue
				}

				cheap, rich := ma, mb
				if rich.YesMid < cheap.YesMid {
					cheap, rich = rich, cheap
				}

				legs := []domain.Leg{
					{MarketID: cheap.ID, Side: domain.SideYes, BuyPrice: cheap.EffectiveBuyYes()},
					{MarketID: rich.ID, Side: domain.SideNo, BuyPrice: rich.EffectiveBuyNo()},
				}
				opp := newOpportunity(domain.StrategyEquivalent, g, legs, 1.0)
				a := analysis
				opp.Relationship = &a
				out = append(out, opp)
			}
		}
	}
	return out, nil
}

var (
	negationWords = map[string]struct{}{
		"not": {}, "never": {}, "no": {}, "wont": {}, "won't": {},
		"cant": {}, "can't": {}, "fail": {}, "fails": {},
	}

	// synonymRewrites canonicalize currency words and common asset
	// aliases before comparison so "Bitcoin 100,000 dollars" and "BTC
	// 100,000 USD" tokenize identically. Magnitude suffixes are not
	// expanded: "$100k" and "$100,000" stay different tokens.
	synonymRewrites = []struct {
		re  *regexp.Regexp
		rep string
	}{
		{regexp.MustCompile(`(?i)\bbitcoin\b`), "btc"},
		{regexp.MustCompile(`(?i)\bethereum\b`), "eth"},
		{regexp.MustCompile(`(?i)\bsolana\b`), "sol"},
		{regexp.MustCompile(`(?i)\bdogecoin\b`), "doge"},
		{regexp.MustCompile(`(?i)\busd\b|\bdollars?\b`), "$"},
		{regexp.MustCompile(`(?i)\bwill\b|\bdoes\b|\bis\b`), ""},
	}

	nonWord = regexp.MustCompile(`[^a-z0-9$]+`)
)

// NegationMirror reports whether the two texts differ only by negation:
// after synonym normalization, the non-negation token multisets match while
// the negation counts differ in parity. Such a pair states opposite events.
func NegationMirror(a, b string) bool {
	tokensA, negA := normalizeTokens(a)
	tokensB, negB := normalizeTokens(b)
	if negA%2 == negB%2 {
		return false
	}
	if len(tokensA) != len(tokensB) {
		return false
	}
	for i := range tokensA {
		if tokensA[i] != tokensB[i] {
			return false
		}
	}
	return true
}

func normalizeTokens(text string) ([]string, int) {
	s := strings.ToLower(text)
	for _, rw := range synonymRewrites {
		s = rw.re.ReplaceAllString(s, rw.rep)
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "'", "")

	negations := 0
	var tokens []string
	for _, tok := range nonWord.Split(s, -1) {
		if tok == "" {
			continue
		}
		if _, ok := negationWords[tok]; ok {
			negations++
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, negations
}
