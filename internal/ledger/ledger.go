package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/promptforge/optimizer-api/internal/store"
	"github.com/promptforge/optimizer-api/internal/store/model"
	"github.com/promptforge/optimizer-api/pkg/api"
)

// Quota dimension names surfaced in rejections.
const (
	DimensionQuick  = "quick"
	DimensionDeep   = "deep"
	DimensionTokens = "tokens"
	DimensionCalls  = "calls"
)

const dayFormat = "2006-01-02"

// Today returns the current ledger day key. Day boundaries are UTC
// system-wide; callers compute this once at request entry so a request
// straddling midnight charges a single consistent day.
func Today() string {
	return time.Now().UTC().Format(dayFormat)
}

// Decision is the capacity-check outcome. Dimension names the exhausted
// ceiling when Allowed is false.
type Decision struct {
	Allowed   bool
	Dimension string
}

// Ledger tracks cumulative per-user per-day usage and enforces daily caps.
//
// CheckCapacity and Commit are deliberately not one transaction: the provider
// call between them can take seconds and must not hold a lock. Two concurrent
// requests from one user may therefore both pass the check and momentarily
// exceed a ceiling. The limits are advisory ceilings, not hard allocations;
// that soft bound is accepted. Commit itself is atomic and idempotent.
type Ledger struct {
	repo     store.Repository
	defaults model.QuotaLimits
	logger   *zap.Logger
}

func New(repo store.Repository, defaults model.QuotaLimits, logger *zap.Logger) *Ledger {
	return &Ledger{
		repo:     repo,
		defaults: defaults,
		logger:   logger,
	}
}

// Limits resolves the effective ceilings for a user: the admin-set override
// when present, the configured defaults otherwise.
func (l *Ledger) Limits(ctx context.Context, userID string) (model.QuotaLimits, error) {
	override, err := l.repo.Quotas().GetOverride(ctx, userID)
	if err != nil {
		return model.QuotaLimits{}, fmt.Errorf("resolving quota limits: %w", err)
	}
	if override != nil {
		return *override, nil
	}
	return l.defaults, nil
}

// CheckCapacity reads today's usage row (creating a zero-valued one if
// absent) and denies when the projected post-call value of any charged
// dimension would exceed its ceiling. Token consumption is unknowable before
// the call, so the token dimension denies once the recorded total has
// reached its ceiling.
func (l *Ledger) CheckCapacity(ctx context.Context, userID string, class api.RequestClass, day string) (Decision, error) {
	rec, err := l.repo.Usage().GetOrCreate(ctx, userID, day)
	if err != nil {
		return Decision{}, fmt.Errorf("reading usage record: %w", err)
	}

	limits, err := l.Limits(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	switch class {
	case api.ClassQuick:
		if rec.QuickCount+1 > limits.QuickDailyMax {
			return Decision{Dimension: DimensionQuick}, nil
		}
	case api.ClassDeep:
		if rec.DeepCount+1 > limits.DeepDailyMax {
			return Decision{Dimension: DimensionDeep}, nil
		}
	default:
		return Decision{}, fmt.Errorf("unknown request class %q", class)
	}

	if rec.APICalls+1 > limits.APICallsDailyMax {
		return Decision{Dimension: DimensionCalls}, nil
	}
	if rec.TokensUsed >= limits.TokenDailyMax {
		return Decision{Dimension: DimensionTokens}, nil
	}

	return Decision{Allowed: true}, nil
}

// Commit applies the consumption of one completed request. Idempotent per
// requestID: retrying a commit for an already-recorded request changes
// nothing. The dedup write and the counter increments share one transaction.
func (l *Ledger) Commit(ctx context.Context, userID, requestID string, class api.RequestClass, tokensUsed int, day string) error {
	delta := model.UsageDelta{Tokens: tokensUsed, Calls: 1}
	switch class {
	case api.ClassQuick:
		delta.Quick = 1
	case api.ClassDeep:
		delta.Deep = 1
	default:
		return fmt.Errorf("unknown request class %q", class)
	}

	return l.repo.WithTx(ctx, func(repo store.Repository) error {
		applied, err := repo.Usage().ApplyCommit(ctx, requestID, userID, day, delta)
		if err != nil {
			return fmt.Errorf("committing usage: %w", err)
		}
		if !applied {
			l.logger.Debug("Duplicate usage commit skipped",
				zap.String("user_id", userID),
				zap.String("request_id", requestID),
			)
		}
		return nil
	})
}

// History returns the user's usage rows for the inclusive day range,
// chronological order.
func (l *Ledger) History(ctx context.Context, userID, fromDay, toDay string) ([]model.UsageRecord, error) {
	return l.repo.Usage().Range(ctx, userID, fromDay, toDay)
}

// Defaults exposes the configured default ceilings (reporting needs them).
func (l *Ledger) Defaults() model.QuotaLimits {
	return l.defaults
}

// SetOverride installs per-user ceilings. Administrative path only; user
// requests never reach this.
func (l *Ledger) SetOverride(ctx context.Context, userID string, limits model.QuotaLimits) error {
	return l.repo.Quotas().SetOverride(ctx, userID, limits)
}
