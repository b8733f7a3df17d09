package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/promptforge/optimizer-api/pkg/api"
)

// PendingCommit is a usage commit that failed on the request path. The
// provider response was already delivered, so the spend must be reconciled
// out-of-band rather than by re-running the provider call.
type PendingCommit struct {
	UserID     string
	RequestID  string
	Class      api.RequestClass
	TokensUsed int
	Day        string
	Attempts   int
}

// Reconciler retries failed ledger commits in the background. Commits are
// idempotent per request ID, so a retry that races a late success is harmless.
type Reconciler struct {
	logger      *zap.Logger
	ledger      *Ledger
	ch          chan PendingCommit
	flushEvery  time.Duration
	maxAttempts int
}

func NewReconciler(logger *zap.Logger, ledger *Ledger) *Reconciler {
	return &Reconciler{
		logger:      logger,
		ledger:      ledger,
		ch:          make(chan PendingCommit, 1024),
		flushEvery:  5 * time.Second,
		maxAttempts: 10,
	}
}

// Enqueue hands a failed commit to the background worker. Dropping on a full
// buffer loses only usage accounting, never user-visible results; the drop is
// logged loudly for out-of-band reconciliation.
func (r *Reconciler) Enqueue(c PendingCommit) {
	select {
	case r.ch <- c:
	default:
		r.logger.Error("Reconciler buffer full, dropping usage commit",
			zap.String("user_id", c.UserID),
			zap.String("request_id", c.RequestID),
			zap.Int("tokens_used", c.TokensUsed),
		)
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	go r.worker(ctx)
}

func (r *Reconciler) Stop() {
	close(r.ch)
}

func (r *Reconciler) worker(ctx context.Context) {
	var pending []PendingCommit
	ticker := time.NewTicker(r.flushEvery)
	defer ticker.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}

		remaining := pending[:0]
		for _, c := range pending {
			err := r.ledger.Commit(context.Background(), c.UserID, c.RequestID, c.Class, c.TokensUsed, c.Day)
			if err == nil {
				r.logger.Info("Reconciled usage commit",
					zap.String("user_id", c.UserID),
					zap.String("request_id", c.RequestID),
					zap.Int("attempts", c.Attempts+1),
				)
				continue
			}

			c.Attempts++
			if c.Attempts >= r.maxAttempts {
				r.logger.Error("Giving up on usage commit",
					zap.String("user_id", c.UserID),
					zap.String("request_id", c.RequestID),
					zap.Int("tokens_used", c.TokensUsed),
					zap.Error(err),
				)
				continue
			}
			remaining = append(remaining, c)
		}
		pending = remaining
	}

	for {
		select {
		case c, ok := <-r.ch:
			if !ok {
				flush()
				return
			}
			pending = append(pending, c)
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}
