package domain

import "time"

// ScanReport is the JSON-serializable output of one scan. Opportunities
// contains only accepted plans; everything rejected or skipped is accounted
// for in RejectionsSummary and Warnings.
type ScanReport struct {
	ScanID            string         `json:"scan_id"`
	StartedAt         time.Time      `json:"started_at"`
	FinishedAt        time.Time      `json:"finished_at"`
	StrategiesRun     []string       `json:"strategies_run"`
	MarketsConsidered int            `json:"markets_considered"`
	LLMCallsUsed      int            `json:"llm_calls_used"`
	Opportunities     []Opportunity  `json:"opportunities"`
	RejectionsSummary map[string]int `json:"rejections_summary"`
	Warnings          []string       `json:"warnings"`
	Canceled          bool           `json:"canceled,omitempty"`
}
