package analyzer

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// relation families for the reasoning/relation contradiction check. The
// reasoning text cannot reliably signal implication direction, so both
// IMPLIES_* variants share one family.
type relationFamily int

const (
	familyNone relationFamily = iota
	familyImplication
	familyEquivalence
	familyExclusion
	familyExhaustive
	familyIndependence
)

func familyOf(r domain.RelationType) relationFamily {
	switch r {
	case domain.RelationImpliesAB, domain.RelationImpliesBA:
		return familyImplication
	case domain.RelationEquivalent:
		return familyEquivalence
	case domain.RelationMutualExclusive:
		return familyExclusion
	case domain.RelationExhaustive:
		return familyExhaustive
	case domain.RelationIndependent:
		return familyIndependence
	}
	return familyNone
}

// assertionPhrases maps reasoning phrases onto the relation family they
// assert. Matched with a small negation window so "not mutually exclusive"
// does not assert exclusion.
var assertionPhrases = []struct {
	phrase string
	family relationFamily
}{
	{"mutually exclusive", familyExclusion},
	{"cannot both", familyExclusion},
	{"can't both", familyExclusion},
	{"exclude", familyExclusion},
	{"equivalent", familyEquivalence},
	{"same event", familyEquivalence},
	{"same outcome", familyEquivalence},
	{"identical question", familyEquivalence},
	{"implies", familyImplication},
	{"must also resolve", familyImplication},
	{"necessarily", familyImplication},
	{"subset of", familyImplication},
	{"exhaustive", familyExhaustive},
	{"complete set", familyExhaustive},
	{"independent", familyIndependence},
	{"unrelated", familyIndependence},
	{"no logical relation", familyIndependence},
}

var negations = []string{"not ", "n't ", "never ", "no "}

// checkConsistency downgrades an analysis to INDEPENDENT when the reasoning
// text asserts a relation family contradicting the declared relation. The
// contradiction is recorded in the edge cases so the trail stays auditable.
func checkConsistency(a domain.RelationshipAnalysis) domain.RelationshipAnalysis {
	declared := familyOf(a.Relation)
	if declared == familyIndependence || declared == familyNone {
		return a
	}

	asserted := assertedFamilies(a.Reasoning)
	if len(asserted) == 0 {
		return a
	}
	if _, ok := asserted[declared]; ok {
		return a
	}

	// Reasoning asserts only relations that contradict the declared one.
	var phrases []string
	for f := range asserted {
		phrases = append(phrases, familyName(f))
	}
	down := domain.Independent("reasoning contradicts declared relation")
	down.EdgeCases = append(a.EdgeCases,
		fmt.Sprintf("consistency: declared %s but reasoning asserts %s", a.Relation, strings.Join(phrases, ", ")))
	return down
}

// assertedFamilies scans the reasoning for positive-polarity relation
// assertions.
func assertedFamilies(reasoning string) map[relationFamily]struct{} {
	text := strings.ToLower(reasoning)
	out := make(map[relationFamily]struct{})
	for _, ap := range assertionPhrases {
		idx := strings.Index(text, ap.phrase)
		for idx >= 0 {
			if !negatedAt(text, idx) {
				out[ap.family] = struct{}{}
				break
			}
			next := strings.Index(text[idx+len(ap.phrase):], ap.phrase)
			if next < 0 {
				break
			}
			idx += len(ap.phrase) + next
		}
	}
	return out
}

// negatedAt reports whether a negation word appears just before position idx.
func negatedAt(text string, idx int) bool {
	start := idx - 12
	if start < 0 {
		start = 0
	}
	window := text[start:idx]
	for _, n := range negations {
		if strings.Contains(window, n) {
			return true
		}
	}
	return false
}

func familyName(f relationFamily) string {
	switch f {
	case familyImplication:
		return "implication"
	case familyEquivalence:
		return "equivalence"
	case familyExclusion:
		return "mutual exclusion"
	case familyExhaustive:
		return "exhaustiveness"
	case familyIndependence:
		return "independence"
	}
	return "unknown"
}
