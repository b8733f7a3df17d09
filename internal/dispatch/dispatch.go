package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/promptforge/optimizer-api/internal/ledger"
	"github.com/promptforge/optimizer-api/internal/llm"
	"github.com/promptforge/optimizer-api/internal/ratelimit"
	"github.com/promptforge/optimizer-api/internal/registry"
	"github.com/promptforge/optimizer-api/pkg/api"
)

// Request is one inbound dispatch. UserID comes from the already-authenticated
// session; RequestID is the idempotency key for ledger accounting.
type Request struct {
	UserID    string
	RequestID string
	Class     api.RequestClass
	Selection *api.ModelSelection
	Prompt    string
	System    string
}

// Result is the terminal Completed state payload.
type Result struct {
	Text       string
	TokensUsed int
	Class      api.RequestClass
	Provider   string
}

// Config is the per-process dispatch policy, constructed once and passed in;
// no process-wide mutable state.
type Config struct {
	InvokeTimeout time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
	RateLimit     int
	RateWindow    time.Duration
	// Defaults supplies the provider/model used when a request carries no
	// explicit selection, per request class.
	Defaults map[api.RequestClass]api.ModelSelection
}

// Orchestrator runs the request state machine:
//
//	Received → RateLimited? → QuotaChecked → Invoking → Committing → Completed
//
// with terminal failures RateLimitRejected, QuotaRejected, ProviderFailed.
type Orchestrator struct {
	cfg        Config
	limiter    ratelimit.Limiter
	ledger     *ledger.Ledger
	reconciler *ledger.Reconciler
	registry   *registry.Registry
	logger     *zap.Logger
}

func NewOrchestrator(cfg Config, limiter ratelimit.Limiter, lgr *ledger.Ledger, rec *ledger.Reconciler, reg *registry.Registry, logger *zap.Logger) *Orchestrator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Orchestrator{
		cfg:        cfg,
		limiter:    limiter,
		ledger:     lgr,
		reconciler: rec,
		registry:   reg,
		logger:     logger,
	}
}

// Dispatch executes one request end to end. Returned errors are *api.Problem
// values ready for the transport layer.
func (o *Orchestrator) Dispatch(ctx context.Context, req *Request) (*Result, error) {
	if !req.Class.Valid() {
		return nil, api.BadRequestError(fmt.Sprintf("unknown request class %q", req.Class))
	}

	// "today" is fixed at entry so a request straddling midnight is charged
	// to a single day.
	day := ledger.Today()

	// Gate 1: fixed-window rate limit, keyed by user and route class. The
	// limiter is advisory; on backend errors we fail open and let the quota
	// ledger backstop.
	rateKey := req.UserID + ":" + string(req.Class)
	dec, err := o.limiter.Check(ctx, rateKey, o.cfg.RateLimit, o.cfg.RateWindow)
	if err != nil {
		o.logger.Warn("Rate limiter check failed, failing open",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
	} else if !dec.Allowed {
		return nil, api.RateLimitError(dec.RetryAfter)
	}

	// Gate 2: daily quota ceilings.
	capacity, err := o.ledger.CheckCapacity(ctx, req.UserID, req.Class, day)
	if err != nil {
		return nil, api.InternalError("Failed to check quota capacity", err)
	}
	if !capacity.Allowed {
		o.logger.Info("Dispatch rejected on quota",
			zap.String("user_id", req.UserID),
			zap.String("dimension", capacity.Dimension),
		)
		return nil, api.QuotaExceededError(capacity.Dimension)
	}

	sel, err := o.selection(req)
	if err != nil {
		return nil, err
	}

	provider, err := o.registry.Resolve(sel)
	if err != nil {
		var unavailable *registry.UnavailableError
		if errors.As(err, &unavailable) {
			o.logger.Warn("Provider resolution failed closed",
				zap.String("provider", unavailable.Provider),
				zap.String("reason", unavailable.Reason),
			)
			return nil, api.ProviderUnavailableError(unavailable.Provider)
		}
		return nil, api.InternalError("Provider resolution failed", err)
	}

	result, err := o.invoke(ctx, provider, sel.Model, req)
	if err != nil {
		return nil, api.ProviderFailedError(sel.Provider, llm.IsTransient(err), err)
	}

	// Commit actual consumption. A failure here never unwinds the response:
	// the text was produced and paid for; undercounting is the lesser
	// failure and is reconciled out-of-band.
	if err := o.ledger.Commit(context.Background(), req.UserID, req.RequestID, req.Class, result.TokensUsed, day); err != nil {
		o.logger.Error("Ledger commit failed, queueing for reconciliation",
			zap.String("user_id", req.UserID),
			zap.String("request_id", req.RequestID),
			zap.Error(err),
		)
		o.reconciler.Enqueue(ledger.PendingCommit{
			UserID:     req.UserID,
			RequestID:  req.RequestID,
			Class:      req.Class,
			TokensUsed: result.TokensUsed,
			Day:        day,
		})
	}

	return &Result{
		Text:       result.Text,
		TokensUsed: result.TokensUsed,
		Class:      req.Class,
		Provider:   sel.Provider,
	}, nil
}

func (o *Orchestrator) selection(req *Request) (api.ModelSelection, error) {
	if req.Selection != nil {
		return *req.Selection, nil
	}
	if sel, ok := o.cfg.Defaults[req.Class]; ok {
		return sel, nil
	}
	return api.ModelSelection{}, api.BadRequestError(
		fmt.Sprintf("no selection supplied and no default configured for class %q", req.Class))
}

// invoke runs the provider call with a per-attempt timeout, retrying
// transient failures up to the configured bound. The call context is
// detached from the caller's cancellation: a client that disconnects
// mid-flight neither aborts the spend nor skips the commit.
func (o *Orchestrator) invoke(ctx context.Context, provider llm.Provider, model string, req *Request) (*llm.InvokeResult, error) {
	detached := context.WithoutCancel(ctx)

	payload := &llm.InvokeRequest{
		Model:  model,
		System: req.System,
		Prompt: req.Prompt,
	}

	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(detached, o.cfg.InvokeTimeout)
		result, err := provider.Invoke(callCtx, payload)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		if !llm.IsTransient(err) {
			break
		}

		o.logger.Warn("Transient provider failure",
			zap.String("provider", provider.Name()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < o.cfg.MaxAttempts {
			time.Sleep(o.cfg.RetryBackoff * time.Duration(attempt))
		}
	}

	return nil, lastErr
}
