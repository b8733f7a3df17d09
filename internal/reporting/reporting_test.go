package reporting_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promptforge/optimizer-api/internal/ledger"
	"github.com/promptforge/optimizer-api/internal/reporting"
	"github.com/promptforge/optimizer-api/internal/store/model"
	"github.com/promptforge/optimizer-api/internal/store/sqlite"
	"github.com/promptforge/optimizer-api/pkg/api"
)

func setup(t *testing.T) (*reporting.Service, *ledger.Ledger) {
	t.Helper()
	repo, err := sqlite.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	defaults := model.QuotaLimits{
		QuickDailyMax:    50,
		DeepDailyMax:     10,
		TokenDailyMax:    200_000,
		APICallsDailyMax: 100,
	}
	l := ledger.New(repo, defaults, zap.NewNop())
	return reporting.NewService(l, zap.NewNop()), l
}

func day(offset int) string {
	return time.Now().UTC().AddDate(0, 0, offset).Format("2006-01-02")
}

func TestSummarize_TotalsMatchHistory(t *testing.T) {
	svc, l := setup(t)
	ctx := context.Background()

	require.NoError(t, l.Commit(ctx, "user-1", "req-1", api.ClassQuick, 100, day(-2)))
	require.NoError(t, l.Commit(ctx, "user-1", "req-2", api.ClassDeep, 900, day(-1)))
	require.NoError(t, l.Commit(ctx, "user-1", "req-3", api.ClassQuick, 50, day(0)))

	report, err := svc.Summarize(ctx, "user-1", 7)
	require.NoError(t, err)

	require.Len(t, report.History, 3)
	assert.Equal(t, 7, report.Days)

	var quick, deep, tokens, calls int
	for _, rec := range report.History {
		quick += rec.QuickCount
		deep += rec.DeepCount
		tokens += rec.TokensUsed
		calls += rec.APICalls
	}
	assert.Equal(t, quick, report.Summary.QuickCount)
	assert.Equal(t, deep, report.Summary.DeepCount)
	assert.Equal(t, tokens, report.Summary.TokensUsed)
	assert.Equal(t, calls, report.Summary.APICalls)

	assert.Equal(t, day(0), report.Today.Day)
	assert.Equal(t, 1, report.Today.QuickCount)
	assert.Equal(t, 50, report.Today.TokensUsed)
}

func TestSummarize_WindowExcludesOlderDays(t *testing.T) {
	svc, l := setup(t)
	ctx := context.Background()

	require.NoError(t, l.Commit(ctx, "user-1", "req-old", api.ClassQuick, 100, day(-5)))
	require.NoError(t, l.Commit(ctx, "user-1", "req-new", api.ClassQuick, 10, day(0)))

	report, err := svc.Summarize(ctx, "user-1", 3)
	require.NoError(t, err)
	require.Len(t, report.History, 1)
	assert.Equal(t, day(0), report.History[0].Day)
	assert.Equal(t, 10, report.Summary.TokensUsed)
}

func TestSummarize_NoUsage(t *testing.T) {
	svc, _ := setup(t)

	report, err := svc.Summarize(context.Background(), "ghost", 0)
	require.NoError(t, err)

	// Default window, zero-valued today, empty history.
	assert.Equal(t, 30, report.Days)
	assert.Empty(t, report.History)
	assert.Equal(t, 0, report.Today.QuickCount)
	assert.Equal(t, "ghost", report.Today.UserID)
	assert.Equal(t, 50, report.Quota.QuickDailyMax)
}

func TestSummarize_ClampsWindow(t *testing.T) {
	svc, _ := setup(t)

	report, err := svc.Summarize(context.Background(), "user-1", 5000)
	require.NoError(t, err)
	assert.Equal(t, 365, report.Days)

	report, err = svc.Summarize(context.Background(), "user-1", -3)
	require.NoError(t, err)
	assert.Equal(t, 30, report.Days)
}

func TestSummarize_ReflectsOverride(t *testing.T) {
	svc, l := setup(t)
	ctx := context.Background()

	require.NoError(t, l.SetOverride(ctx, "vip", model.QuotaLimits{
		QuickDailyMax:    500,
		DeepDailyMax:     100,
		TokenDailyMax:    2_000_000,
		APICallsDailyMax: 1000,
	}))

	report, err := svc.Summarize(ctx, "vip", 7)
	require.NoError(t, err)
	assert.Equal(t, 500, report.Quota.QuickDailyMax)
}
