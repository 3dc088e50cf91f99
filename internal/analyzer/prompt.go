package analyzer

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Version participates in the memoization key so cached verdicts are
// invalidated when the prompt changes.
const Version = "v2"

const systemPrompt = `You are a prediction-market analyst. You classify the logical relation between binary markets using their full resolution rules. Respond with a single JSON object and nothing else.`

// pairPrompt asks for the relation between two markets. The resolution rules
// are mandatory context: a classification that ignores them is worthless.
func pairPrompt(a, b *domain.Market) string {
	var sb strings.Builder

	sb.WriteString("Classify the logical relation between two prediction markets.\n\n")

	writeMarket(&sb, "A", a)
	writeMarket(&sb, "B", b)

	sb.WriteString(`Relation types (choose exactly one):
- IMPLIES_AB: if A resolves YES then B must resolve YES
- IMPLIES_BA: if B resolves YES then A must resolve YES
- EQUIVALENT: A and B always resolve the same way
- MUTUAL_EXCLUSIVE: A and B cannot both resolve YES
- EXHAUSTIVE: A and B are members of one exhaustive outcome set
- INDEPENDENT: none of the above holds with certainty

Base your answer on the resolution rules, not just the question wording.
Consider whether the two markets' resolution sources could disagree.

Respond with JSON only:
{
  "relation": "IMPLIES_AB|IMPLIES_BA|EQUIVALENT|MUTUAL_EXCLUSIVE|EXHAUSTIVE|INDEPENDENT",
  "confidence": 0.0,
  "reasoning": "...",
  "edge_cases": ["..."],
  "resolution_compatible": true
}`)

	return sb.String()
}

// exhaustivePrompt asks whether a market set is mutually exclusive and
// collectively exhaustive.
func exhaustivePrompt(markets []domain.Market) string {
	var sb strings.Builder

	sb.WriteString("Verify whether the following markets form a complete outcome set: mutually exclusive AND collectively exhaustive.\n\n")
	for i := range markets {
		writeMarket(&sb, fmt.Sprintf("%d", i+1), &markets[i])
	}

	sb.WriteString(`A complete set means exactly one market must resolve YES.
List any outcome not covered by the set.

Respond with JSON only:
{
  "is_complete": true,
  "confidence": 0.0,
  "missing_cases": ["..."]
}`)

	return sb.String()
}

func writeMarket(sb *strings.Builder, label string, m *domain.Market) {
	fmt.Fprintf(sb, "Market %s: %s\n", label, m.Question)
	fmt.Fprintf(sb, "Current YES price: %.3f\n", m.YesMid)
	rules := m.Rules
	if rules == "" {
		rules = m.Description
	}
	if rules != "" {
		fmt.Fprintf(sb, "Resolution rules: %s\n", rules)
	}
	if m.ResolutionSource != "" {
		fmt.Fprintf(sb, "Resolution source: %s\n", m.ResolutionSource)
	}
	sb.WriteString("\n")
}
