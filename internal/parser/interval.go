package parser

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// Interval phrasings, most specific first. Bracket notation carries literal
// inclusivity; word forms default to inclusive bounds, matching how venues
// step adjacent buckets on integer boundaries.
var (
	bracketRe = regexp.MustCompile(`([\[(])\s*\$?\s*([\d,]+(?:\.\d+)?)\s*([kKmMbBtT])?\s*,\s*\$?\s*([\d,]+(?:\.\d+)?)\s*([kKmMbBtT])?\s*([\])])`)
	betweenRe = regexp.MustCompile(`(?i)\bbetween\s+` + number + `\s+and\s+` + number)
	fromToRe  = regexp.MustCompile(`(?i)\bfrom\s+` + number + `\s+to\s+` + number)
	dashRe    = regexp.MustCompile(`\$?\s*([\d,]+(?:\.\d+)?)\s*([kKmMbBtT])?\s*[-–]\s*\$?\s*([\d,]+(?:\.\d+)?)\s*([kKmMbBtT])?`)

	orMoreRe = regexp.MustCompile(`(?i)` + number + `\s+or\s+(?:more|higher|above)\b`)
	orLessRe = regexp.MustCompile(`(?i)` + number + `\s+or\s+(?:less|lower|below)\b`)
)

// ParseInterval extracts an interval structure from a market's question.
// Other market text is not consulted. Returns nil on anything ambiguous.
func ParseInterval(m *domain.Market) *domain.IntervalInfo {
	info := parseIntervalText(m.Question, m.EndTime)
	if info == nil {
		return nil
	}
	info.MarketID = m.ID
	return info
}

func parseIntervalText(question string, deadline time.Time) *domain.IntervalInfo {
	if deadline.IsZero() {
		return nil
	}
	text := strings.TrimSpace(question)
	if text == "" {
		return nil
	}

	asset := DetectAsset(text)
	if asset == "" {
		return nil
	}

	// Bracket notation: inclusivity is literal.
	if sub := bracketRe.FindStringSubmatch(text); sub != nil {
		lower, _, okL := parseNumber("", sub[2], sub[3], "")
		upper, _, okU := parseNumber("", sub[4], sub[5], "")
		if !okL || !okU || lower >= upper {
			return nil
		}
		return &domain.IntervalInfo{
			Asset:          asset,
			Lower:          lower,
			Upper:          upper,
			LowerInclusive: sub[1] == "[",
			UpperInclusive: sub[6] == "]",
			Unit:           "$",
			Deadline:       deadline,
		}
	}

	// Open-ended forms.
	if sub := orMoreRe.FindStringSubmatch(text); sub != nil {
		lower, unit, ok := parseNumber(sub[1], sub[2], sub[3], sub[4])
		if !ok {
			return nil
		}
		return &domain.IntervalInfo{
			Asset:          asset,
			Lower:          lower,
			Upper:          math.Inf(1),
			LowerInclusive: true,
			Unit:           unit,
			Deadline:       deadline,
		}
	}
	if sub := orLessRe.FindStringSubmatch(text); sub != nil {
		upper, unit, ok := parseNumber(sub[1], sub[2], sub[3], sub[4])
		if !ok {
			return nil
		}
		return &domain.IntervalInfo{
			Asset:          asset,
			Lower:          math.Inf(-1),
			Upper:          upper,
			UpperInclusive: true,
			Unit:           unit,
			Deadline:       deadline,
		}
	}

	// Word and dash ranges: inclusive bounds.
	for _, re := range []*regexp.Regexp{betweenRe, fromToRe} {
		if sub := re.FindStringSubmatch(text); sub != nil {
			lower, unitL, okL := parseNumber(sub[1], sub[2], sub[3], sub[4])
			upper, unitU, okU := parseNumber(sub[5], sub[6], sub[7], sub[8])
			if !okL || !okU || lower >= upper {
				return nil
			}
			unit := unitL
			if unit == "" {
				unit = unitU
			}
			return &domain.IntervalInfo{
				Asset:          asset,
				Lower:          lower,
				Upper:          upper,
				LowerInclusive: true,
				UpperInclusive: true,
				Unit:           unit,
				Deadline:       deadline,
			}
		}
	}
	if sub := dashRe.FindStringSubmatch(text); sub != nil {
		lower, _, okL := parseNumber("", sub[1], sub[2], "")
		upper, _, okU := parseNumber("", sub[3], sub[4], "")
		if !okL || !okU || lower >= upper {
			return nil
		}
		return &domain.IntervalInfo{
			Asset:          asset,
			Lower:          lower,
			Upper:          upper,
			LowerInclusive: true,
			UpperInclusive: true,
			Unit:           "$",
			Deadline:       deadline,
		}
	}

	return nil
}

// AdjacentIntervals reports whether a ends exactly where b begins with no
// gap and no overlap, so that holding both YES legs covers [a.Lower,
// b.Upper] as a partition.
func AdjacentIntervals(a, b *domain.IntervalInfo) bool {
	if a.Upper == b.Lower {
		// Exactly one side owns the shared boundary point.
		return a.UpperInclusive != b.LowerInclusive
	}
	// Integer bucket ladders: "$3,000-$3,499" followed by "$3,500-$3,999"
	// partition an integer-valued level without an explicit open bound.
	return a.UpperInclusive && b.LowerInclusive &&
		b.Lower-a.Upper == 1 && a.Upper == math.Trunc(a.Upper)
}
