package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/promptforge/optimizer-api/internal/store"
	"github.com/promptforge/optimizer-api/internal/store/model"
)

// DB defines the interface for database operations (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SqliteRepository implements store.Repository
type SqliteRepository struct {
	db       *sqlx.DB // Required for starting new transactions
	executor DB       // Used for actual queries (can be *sqlx.DB or *sqlx.Tx)
}

func NewSqliteRepository(db *sqlx.DB) *SqliteRepository {
	return &SqliteRepository{
		db:       db,
		executor: db,
	}
}

func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

func (r *SqliteRepository) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	// Repository instance scoped to the transaction
	txRepo := &SqliteRepository{
		db:       r.db,
		executor: tx,
	}

	if err := fn(txRepo); err != nil {
		// attempt rollback, but prioritize original error
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *SqliteRepository) Usage() store.UsageRepository {
	return &usageRepo{db: r.executor}
}

func (r *SqliteRepository) Quotas() store.QuotaRepository {
	return &quotaRepo{db: r.executor}
}

type usageRepo struct {
	db DB
}

func (r *usageRepo) GetOrCreate(ctx context.Context, userID, day string) (*model.UsageRecord, error) {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO usage_records (user_id, day) VALUES (?, ?)
	ON CONFLICT(user_id, day) DO NOTHING`, userID, day)
	if err != nil {
		return nil, err
	}

	var rec model.UsageRecord
	query := `SELECT * FROM usage_records WHERE user_id = ? AND day = ?`
	if err := r.db.GetContext(ctx, &rec, query, userID, day); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *usageRepo) ApplyCommit(ctx context.Context, requestID, userID, day string, delta model.UsageDelta) (bool, error) {
	// The dedup row and the increment must share a transaction; callers go
	// through Repository.WithTx.
	res, err := r.db.ExecContext(ctx, `
	INSERT OR IGNORE INTO usage_commits (request_id, user_id, day) VALUES (?, ?, ?)`,
		requestID, userID, day)
	if err != nil {
		return false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if inserted == 0 {
		// Already committed for this logical request
		return false, nil
	}

	if _, err := r.db.ExecContext(ctx, `
	INSERT INTO usage_records (user_id, day) VALUES (?, ?)
	ON CONFLICT(user_id, day) DO NOTHING`, userID, day); err != nil {
		return false, err
	}

	// Atomic relative increments; never read-modify-write at this layer.
	_, err = r.db.ExecContext(ctx, `
	UPDATE usage_records SET
		quick_count = quick_count + ?,
		deep_count  = deep_count + ?,
		tokens_used = tokens_used + ?,
		api_calls   = api_calls + ?,
		updated_at  = CURRENT_TIMESTAMP
	WHERE user_id = ? AND day = ?`,
		delta.Quick, delta.Deep, delta.Tokens, delta.Calls, userID, day)
	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *usageRepo) Range(ctx context.Context, userID, fromDay, toDay string) ([]model.UsageRecord, error) {
	var recs []model.UsageRecord
	query := `
	SELECT * FROM usage_records
	WHERE user_id = ? AND day >= ? AND day <= ?
	ORDER BY day ASC`
	err := r.db.SelectContext(ctx, &recs, query, userID, fromDay, toDay)
	return recs, err
}

type quotaRepo struct {
	db DB
}

func (r *quotaRepo) GetOverride(ctx context.Context, userID string) (*model.QuotaLimits, error) {
	var limits model.QuotaLimits
	query := `
	SELECT quick_daily_max, deep_daily_max, token_daily_max, api_calls_daily_max
	FROM quota_overrides WHERE user_id = ?`
	err := r.db.GetContext(ctx, &limits, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &limits, nil
}

func (r *quotaRepo) SetOverride(ctx context.Context, userID string, limits model.QuotaLimits) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO quota_overrides (user_id, quick_daily_max, deep_daily_max, token_daily_max, api_calls_daily_max)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		quick_daily_max     = excluded.quick_daily_max,
		deep_daily_max      = excluded.deep_daily_max,
		token_daily_max     = excluded.token_daily_max,
		api_calls_daily_max = excluded.api_calls_daily_max,
		updated_at          = CURRENT_TIMESTAMP`,
		userID, limits.QuickDailyMax, limits.DeepDailyMax, limits.TokenDailyMax, limits.APICallsDailyMax)
	return err
}
