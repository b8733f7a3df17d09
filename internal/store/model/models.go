package model

import (
	"time"
)

// UsageRecord is one row per (user_id, day). Created lazily on first usage of
// a day, never deleted, counters monotonically non-decreasing within the day.
// It is the unit of both quota enforcement and historical reporting.
type UsageRecord struct {
	UserID     string    `db:"user_id" json:"user_id"`
	Day        string    `db:"day" json:"day"` // YYYY-MM-DD in UTC
	QuickCount int       `db:"quick_count" json:"quick_count"`
	DeepCount  int       `db:"deep_count" json:"deep_count"`
	TokensUsed int       `db:"tokens_used" json:"tokens_used"`
	APICalls   int       `db:"api_calls" json:"api_calls"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// QuotaLimits is a per-user daily ceiling set. Defaults come from config;
// per-user overrides are written through the administrative path only.
type QuotaLimits struct {
	QuickDailyMax    int `db:"quick_daily_max" json:"quick_daily_max"`
	DeepDailyMax     int `db:"deep_daily_max" json:"deep_daily_max"`
	TokenDailyMax    int `db:"token_daily_max" json:"token_daily_max"`
	APICallsDailyMax int `db:"api_calls_daily_max" json:"api_calls_daily_max"`
}

// UsageDelta is the set of counter increments one committed request applies.
type UsageDelta struct {
	Quick  int
	Deep   int
	Tokens int
	Calls  int
}
