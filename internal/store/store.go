package store

import (
	"context"

	"github.com/promptforge/optimizer-api/internal/store/model"
)

// Repository is the main contract for the data layer.
type Repository interface {
	Usage() UsageRepository
	Quotas() QuotaRepository

	// transaction support
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	Close() error
}

type UsageRepository interface {
	// GetOrCreate returns the usage row for (userID, day), inserting a
	// zero-valued one if absent.
	GetOrCreate(ctx context.Context, userID, day string) (*model.UsageRecord, error)
	// ApplyCommit records the request ID in the dedup table and, when the ID
	// was not seen before, applies the delta with atomic SQL increments.
	// Returns false without touching counters for a duplicate request ID.
	// Call inside WithTx so the dedup write and the increment are one unit.
	ApplyCommit(ctx context.Context, requestID, userID, day string, delta model.UsageDelta) (bool, error)
	// Range returns usage rows for the inclusive day range in chronological order.
	Range(ctx context.Context, userID, fromDay, toDay string) ([]model.UsageRecord, error)
}

type QuotaRepository interface {
	// GetOverride returns the user's limit override, or nil when the
	// configured defaults apply.
	GetOverride(ctx context.Context, userID string) (*model.QuotaLimits, error)
	// SetOverride upserts the user's limit override. Administrative path only.
	SetOverride(ctx context.Context, userID string, limits model.QuotaLimits) error
}
