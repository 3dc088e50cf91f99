package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// number matches "$100,000", "100k", "1.5m", "50%", with optional currency
// prefix, magnitude suffix, and percent suffix. A suffix letter counts only
// when it stands alone, so the "b" of a following "by" is not a billion.
const number = `(\$)?\s*([\d,]+(?:\.\d+)?)\s*(?:([kKmMbBtT])\b)?\s*(%)?`

type thresholdPattern struct {
	re    *regexp.Regexp
	dir   domain.ThresholdDirection
	touch bool
}

var thresholdPatterns = []thresholdPattern{
	// Touch phrasings first; "dips below" also matches bare "below", and
	// dedupeMatches folds that duplicate into the touch hit.
	{regexp.MustCompile(`(?i)\b(?:dips?\s+to|dips?\s+below|touch(?:es)?)\s*` + number), domain.DirectionBelow, true},

	{regexp.MustCompile(`(?i)\b(?:above|over|exceeds?|surpass(?:es)?|breaks?|tops?|greater\s+than|at\s+least)\s*` + number), domain.DirectionAbove, false},
	{regexp.MustCompile(`(?i)(?:>=|≥|>)\s*` + number), domain.DirectionAbove, false},
	{regexp.MustCompile(`(?i)\b(?:hits?|reach(?:es)?)\s*` + number), domain.DirectionAbove, false},

	{regexp.MustCompile(`(?i)\b(?:below|under|less\s+than|at\s+most)\s*` + number), domain.DirectionBelow, false},
	{regexp.MustCompile(`(?i)(?:<=|≤|<)\s*` + number), domain.DirectionBelow, false},
}

// Digit idioms carry an implied level.
var digitIdioms = []struct {
	re    *regexp.Regexp
	level float64
	dir   domain.ThresholdDirection
}{
	{regexp.MustCompile(`(?i)\btriple\s+digits?\b`), 100, domain.DirectionAbove},
	{regexp.MustCompile(`(?i)\bfour\s+digits?\b`), 1_000, domain.DirectionAbove},
	{regexp.MustCompile(`(?i)\bfive\s+digits?\b`), 10_000, domain.DirectionAbove},
	{regexp.MustCompile(`(?i)\bsingle\s+digits?\b`), 10, domain.DirectionBelow},
	{regexp.MustCompile(`(?i)\bdouble\s+digits?\b`), 100, domain.DirectionBelow},
}

var suffixMultipliers = map[string]float64{
	"k": 1e3, "m": 1e6, "b": 1e9, "t": 1e12,
}

// intervalish detects range phrasings; a range question is not a pure
// threshold statement.
var intervalish = regexp.MustCompile(`(?i)\bbetween\b.+\band\b|[\d,]\s*[-–]\s*\$?[\d,]`)

type thresholdMatch struct {
	level float64
	unit  string
	dir   domain.ThresholdDirection
	touch bool
}

// ParseThreshold extracts threshold structure from a market's question.
// It returns nil when the question is not a pure threshold statement:
// ambiguous phrasing, missing level, missing asset, or missing deadline all
// yield nil, never a guess.
func ParseThreshold(m *domain.Market) *domain.ThresholdInfo {
	info := parseThresholdText(m.Question, m.EndTime)
	if info == nil {
		return nil
	}
	info.MarketID = m.ID
	return info
}

func parseThresholdText(question string, deadline time.Time) *domain.ThresholdInfo {
	if deadline.IsZero() {
		return nil
	}
	text := strings.TrimSpace(question)
	if text == "" {
		return nil
	}
	if intervalish.MatchString(text) {
		return nil
	}

	asset := DetectAsset(text)
	if asset == "" {
		return nil
	}

	var matches []thresholdMatch
	for _, p := range thresholdPatterns {
		for _, sub := range p.re.FindAllStringSubmatch(text, -1) {
			level, unit, ok := parseNumber(sub[1], sub[2], sub[3], sub[4])
			if !ok {
				continue
			}
			matches = append(matches, thresholdMatch{level: level, unit: unit, dir: p.dir, touch: p.touch})
		}
	}
	for _, idiom := range digitIdioms {
		if idiom.re.MatchString(text) {
			matches = append(matches, thresholdMatch{level: idiom.level, unit: "$", dir: idiom.dir})
		}
	}

	matches = dedupeMatches(matches)
	switch len(matches) {
	case 0:
		return nil
	case 1:
		mt := matches[0]
		return &domain.ThresholdInfo{
			Asset:     asset,
			Direction: mt.dir,
			Level:     mt.level,
			Unit:      mt.unit,
			Deadline:  deadline,
			Touch:     mt.touch,
		}
	default:
		// Conflicting directions or levels: ambiguous.
		return nil
	}
}

// dedupeMatches collapses repeated hits of the same (direction, level) —
// "dip below $90k" matches both the touch phrase and the bare "below" pattern. A
// touch hit absorbs its non-touch duplicate.
func dedupeMatches(matches []thresholdMatch) []thresholdMatch {
	type key struct {
		level float64
		dir   domain.ThresholdDirection
	}
	seen := make(map[key]int)
	var out []thresholdMatch
	for _, m := range matches {
		k := key{m.level, m.dir}
		if i, ok := seen[k]; ok {
			if m.touch {
				out[i].touch = true
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, m)
	}
	return out
}

func parseNumber(dollar, digits, suffix, percent string) (float64, string, bool) {
	raw := strings.ReplaceAll(digits, ",", "")
	if raw == "" {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, "", false
	}
	if suffix != "" {
		v *= suffixMultipliers[strings.ToLower(suffix)]
	}
	unit := ""
	switch {
	case percent != "":
		unit = "%"
	case dollar != "":
		unit = "$"
	}
	return v, unit, true
}

// RenderThreshold produces a canonical question for a ThresholdInfo such
// that ParseThreshold recovers the same structure. Used by tests and report
// rendering.
func RenderThreshold(t domain.ThresholdInfo) string {
	var phrase string
	switch {
	case t.Touch && t.Direction == domain.DirectionBelow:
		phrase = "dip to"
	case t.Direction == domain.DirectionAbove:
		phrase = "be above"
	default:
		phrase = "be below"
	}
	return fmt.Sprintf("Will %s %s %s by the deadline?", t.Asset, phrase, formatLevel(t.Level, t.Unit))
}

func formatLevel(level float64, unit string) string {
	s := strconv.FormatFloat(level, 'f', -1, 64)
	switch unit {
	case "$":
		return "$" + s
	case "%":
		return s + "%"
	default:
		return s
	}
}
