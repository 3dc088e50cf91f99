package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// StrategyKind identifies which scanner strategy produced an opportunity.
type StrategyKind string

const (
	StrategyMonotonicity StrategyKind = "monotonicity"
	StrategyInterval     StrategyKind = "interval"
	StrategyExhaustive   StrategyKind = "exhaustive"
	StrategyImplication  StrategyKind = "implication"
	StrategyEquivalent   StrategyKind = "equivalent"
	StrategyTemporal     StrategyKind = "temporal"
)

// Side is the token bought on a leg.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// OppStatus is the lifecycle state of an opportunity.
type OppStatus string

const (
	OppPending    OppStatus = "pending"
	OppValidating OppStatus = "validating"
	OppAccepted   OppStatus = "accepted"
	OppRejected   OppStatus = "rejected"
	OppStale      OppStatus = "stale"
)

// APYRating buckets the annualized return.
type APYRating string

const (
	APYExcellent  APYRating = "excellent"
	APYGood       APYRating = "good"
	APYAcceptable APYRating = "acceptable"
	APYReject     APYRating = "reject"
)

// OracleAlignment classifies whether the legs' resolution sources agree.
type OracleAlignment string

const (
	OracleAligned    OracleAlignment = "aligned"
	OracleCompatible OracleAlignment = "compatible"
	OracleMisaligned OracleAlignment = "misaligned"
)

// Leg is one unit buy in an opportunity plan.
type Leg struct {
	MarketID string  `json:"market_id"`
	Side     Side    `json:"side"`
	BuyPrice float64 `json:"buy_price"`
}

// TrailEntry records one validation layer's decision.
type TrailEntry struct {
	Layer  string    `json:"layer"`
	Passed bool      `json:"passed"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Opportunity is a candidate buy-basket: one unit of each leg, with the
// worst-case payoff and economics computed from effective buy prices.
type Opportunity struct {
	ID       string       `json:"id"`
	Strategy StrategyKind `json:"strategy"`
	Legs     []Leg        `json:"legs"`

	Cost             float64 `json:"cost"`
	GuaranteedReturn float64 `json:"guaranteed_return"`
	MidProfit        float64 `json:"mid_profit"`
	EffectiveProfit  float64 `json:"effective_profit"`
	ProfitPct        float64 `json:"profit_pct"`

	MinLegLiquidityUSD float64 `json:"min_leg_liquidity_usd"`
	DaysToResolution   float64 `json:"days_to_resolution"`

	APY             float64         `json:"apy"`
	APYRating       APYRating       `json:"apy_rating"`
	OracleAlignment OracleAlignment `json:"oracle_alignment"`
	SlippageCost    float64         `json:"slippage_cost"`

	Status       OppStatus    `json:"status"`
	RejectLayer  string       `json:"reject_layer,omitempty"`
	RejectReason string       `json:"reject_reason,omitempty"`
	Trail        []TrailEntry `json:"validation_trail"`

	Relationship *RelationshipAnalysis `json:"relationship_analysis,omitempty"`
	Checklist    []string              `json:"checklist,omitempty"`

	// HumanReview marks opportunities built on touch-style threshold parses
	// whose semantics need a manual read of the rules.
	HumanReview bool `json:"human_review,omitempty"`

	DiscoveredAt   time.Time `json:"discovered_at"`
	PlanSnapshotAt time.Time `json:"plan_snapshot_at"`
}

// CanonicalKey deduplicates opportunities across strategies within a scan:
// same strategy plus the same sorted (market, side) leg set is the same plan.
func (o *Opportunity) CanonicalKey() string {
	parts := make([]string, 0, len(o.Legs))
	for _, l := range o.Legs {
		parts = append(parts, l.MarketID+"/"+string(l.Side))
	}
	sort.Strings(parts)
	return string(o.Strategy) + "|" + strings.Join(parts, ",")
}

// RecordLayer appends a trail entry for a validation layer decision.
func (o *Opportunity) RecordLayer(layer string, passed bool, reason string, at time.Time) {
	o.Trail = append(o.Trail, TrailEntry{Layer: layer, Passed: passed, Reason: reason, At: at})
}

// Reject marks the opportunity rejected at the given layer.
func (o *Opportunity) Reject(layer, reason string) {
	o.Status = OppRejected
	o.RejectLayer = layer
	o.RejectReason = reason
}

// MarkStale marks the opportunity expired before emission.
func (o *Opportunity) MarkStale(reason string) {
	o.Status = OppStale
	o.RejectLayer = "preflight"
	o.RejectReason = reason
}

// String is a short human identifier for a leg, used in log lines.
func (l Leg) String() string {
	return fmt.Sprintf("%s %s @ %.4f", l.MarketID, l.Side, l.BuyPrice)
}
