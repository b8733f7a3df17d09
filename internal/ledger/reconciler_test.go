package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promptforge/optimizer-api/internal/ledger"
	"github.com/promptforge/optimizer-api/pkg/api"
)

func TestReconciler_FlushesQueuedCommits(t *testing.T) {
	l, _ := setupLedger(t, defaultLimits())
	r := ledger.NewReconciler(zap.NewNop(), l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	r.Enqueue(ledger.PendingCommit{
		UserID:     "user-1",
		RequestID:  "req-1",
		Class:      api.ClassQuick,
		TokensUsed: 75,
		Day:        "2026-03-01",
	})

	// Stop closes the queue; the worker drains it before returning.
	r.Stop()

	assert.Eventually(t, func() bool {
		recs, err := l.History(context.Background(), "user-1", "2026-03-01", "2026-03-01")
		return err == nil && len(recs) == 1 && recs[0].TokensUsed == 75
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReconciler_RetryAfterDirectCommitIsNoop(t *testing.T) {
	l, _ := setupLedger(t, defaultLimits())
	r := ledger.NewReconciler(zap.NewNop(), l)

	// The request-path commit landed before the queued retry ran.
	require.NoError(t, l.Commit(context.Background(), "user-1", "req-1", api.ClassQuick, 75, "2026-03-01"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	r.Enqueue(ledger.PendingCommit{
		UserID:     "user-1",
		RequestID:  "req-1",
		Class:      api.ClassQuick,
		TokensUsed: 75,
		Day:        "2026-03-01",
	})
	r.Stop()

	assert.Eventually(t, func() bool {
		recs, err := l.History(context.Background(), "user-1", "2026-03-01", "2026-03-01")
		return err == nil && len(recs) == 1 && recs[0].TokensUsed == 75 && recs[0].APICalls == 1
	}, 2*time.Second, 10*time.Millisecond)
}
