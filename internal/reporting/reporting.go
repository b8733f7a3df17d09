package reporting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/promptforge/optimizer-api/internal/ledger"
	"github.com/promptforge/optimizer-api/internal/store/model"
)

const (
	defaultWindowDays = 30
	maxWindowDays     = 365
)

// Totals aggregates counters across the reporting window. Computed at read
// time from the daily rows; nothing is pre-aggregated.
type Totals struct {
	QuickCount int `json:"quick_count"`
	DeepCount  int `json:"deep_count"`
	TokensUsed int `json:"tokens_used"`
	APICalls   int `json:"api_calls"`
}

// Report is the usage view returned to a user: today's consumption against
// their effective ceilings, plus the windowed history.
type Report struct {
	Today   model.UsageRecord   `json:"today"`
	Quota   model.QuotaLimits   `json:"quota"`
	Summary Totals              `json:"summary"`
	Days    int                 `json:"days"`
	History []model.UsageRecord `json:"history"`
}

// Service answers usage queries. It reads through the ledger and holds no
// state of its own.
type Service struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

func NewService(l *ledger.Ledger, logger *zap.Logger) *Service {
	return &Service{ledger: l, logger: logger}
}

// Summarize builds the usage report for the trailing window ending today.
// days is clamped to [1, 365]; values <= 0 select the default window. Days
// with no usage simply have no row; history is chronological and sparse.
func (s *Service) Summarize(ctx context.Context, userID string, days int) (*Report, error) {
	if days <= 0 {
		days = defaultWindowDays
	}
	if days > maxWindowDays {
		days = maxWindowDays
	}

	now := time.Now().UTC()
	today := ledger.Today()
	fromDay := now.AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	history, err := s.ledger.History(ctx, userID, fromDay, today)
	if err != nil {
		return nil, fmt.Errorf("reading usage history: %w", err)
	}

	limits, err := s.ledger.Limits(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Quota:   limits,
		Days:    days,
		History: history,
	}
	// A user with no usage today gets a zero-valued row rather than an
	// absent field.
	report.Today = model.UsageRecord{UserID: userID, Day: today}

	for _, rec := range history {
		report.Summary.QuickCount += rec.QuickCount
		report.Summary.DeepCount += rec.DeepCount
		report.Summary.TokensUsed += rec.TokensUsed
		report.Summary.APICalls += rec.APICalls
		if rec.Day == today {
			report.Today = rec
		}
	}

	return report, nil
}
