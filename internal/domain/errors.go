package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrRateLimited           = errors.New("rate limited")
	ErrSourceUnavailable     = errors.New("source unavailable")
	ErrSourceFormat          = errors.New("source format")
	ErrParseAmbiguous        = errors.New("parse ambiguous")
	ErrAnalyzerParse         = errors.New("analyzer parse failure")
	ErrBudgetExhausted       = errors.New("analyzer budget exhausted")
	ErrStalePlan             = errors.New("stale plan")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrContextDone           = errors.New("context cancelled")
)
