package jira

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/jira-mcp/internal/cache"
	"github.com/bobmcallan/jira-mcp/internal/common"
)

// Invocation is one tool call from the host.
type Invocation struct {
	Tool      string
	Arguments map[string]any
}

// DispatchPolicy controls dispatcher-level re-invocation on top of transport retries.
type DispatchPolicy struct {
	// Retries is how many extra times an idempotent tool is re-dispatched
	// after a retryable error. Zero disables re-dispatch.
	Retries int
	// RetryableKinds are the JIRA-domain kinds reported as retryable.
	RetryableKinds []Kind
}

// Dispatcher runs resolve -> build -> execute -> normalize for each invocation.
// It keeps no per-invocation state and is safe for concurrent use.
type Dispatcher struct {
	registry   *Registry
	builder    *Builder
	executor   Executor
	normalizer *Normalizer
	cache      *cache.ResponseCache
	policy     DispatchPolicy
	logger     *common.Logger
}

// DispatcherOption configures optional Dispatcher collaborators.
type DispatcherOption func(*Dispatcher)

// WithResponseCache serves Cacheable tools through c.
func WithResponseCache(c *cache.ResponseCache) DispatcherOption {
	return func(d *Dispatcher) { d.cache = c }
}

// WithDispatchPolicy sets the re-dispatch policy.
func WithDispatchPolicy(p DispatchPolicy) DispatcherOption {
	return func(d *Dispatcher) { d.policy = p }
}

// NewDispatcher wires a Dispatcher.
func NewDispatcher(registry *Registry, builder *Builder, executor Executor, logger *common.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	d := &Dispatcher{
		registry: registry,
		builder:  builder,
		executor: executor,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.normalizer = NewNormalizer(builder.BaseURL(), d.policy.RetryableKinds)
	return d
}

// Registry returns the tool registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch executes one invocation. It never returns a Go error and never panics:
// every failure is reported in the ToolResult.
func (d *Dispatcher) Dispatch(ctx context.Context, inv Invocation) ToolResult {
	id := correlationIDFrom(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	logger := d.logger.WithCorrelationId(id)
	ctx = WithLogger(ctx, logger)
	start := time.Now()

	result := d.dispatchOnce(ctx, inv)
	for attempt := 1; attempt <= d.policy.Retries && d.shouldRedispatch(inv.Tool, result); attempt++ {
		if ctx.Err() != nil {
			break
		}
		logger.Info().Str("tool", inv.Tool).Int("redispatch", attempt).Str("kind", string(result.Error.Kind)).Msg("jira: re-dispatching after retryable error")
		result = d.dispatchOnce(ctx, inv)
	}

	ev := logger.Info()
	if !result.Success {
		ev = logger.Warn().Str("kind", string(result.Error.Kind))
	}
	ev.Str("tool", inv.Tool).Bool("success", result.Success).Dur("duration", time.Since(start)).Msg("jira: tool dispatched")
	return result
}

func (d *Dispatcher) shouldRedispatch(tool string, r ToolResult) bool {
	if r.Success || r.Error == nil || !r.Error.Retryable {
		return false
	}
	spec, err := d.registry.Resolve(tool)
	return err == nil && spec.Idempotent()
}

func (d *Dispatcher) dispatchOnce(ctx context.Context, inv Invocation) (result ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			loggerFrom(ctx, d.logger).Error().Str("tool", inv.Tool).Str("panic", fmt.Sprint(r)).Str("stack", string(debug.Stack())).Msg("jira: dispatch panicked")
			result = Failed(&ToolError{Kind: KindUnknown, Message: fmt.Sprintf("internal error: %v", r)})
		}
	}()

	spec, err := d.registry.Resolve(inv.Tool)
	if err != nil {
		return Failed(err)
	}

	args := inv.Arguments
	if args == nil {
		args = map[string]any{}
	}
	req, err := d.builder.Build(spec, args)
	if err != nil {
		return Failed(err)
	}

	resp, err := d.execute(ctx, spec, req)
	if err != nil {
		return Failed(err)
	}
	return d.normalizer.Normalize(spec, args, resp)
}

func (d *Dispatcher) execute(ctx context.Context, spec ToolSpec, req *Request) (*Response, error) {
	if d.cache == nil || !spec.Cacheable || !spec.Idempotent() {
		return d.executor.Execute(ctx, req)
	}
	cached, hit, err := d.cache.GetOrFill(cache.MakeKey(req.Method, req.URL), func() (*cache.CachedResponse, error) {
		resp, err := d.executor.Execute(ctx, req)
		if err != nil {
			return nil, err
		}
		return &cache.CachedResponse{
			StatusCode: resp.StatusCode,
			Headers:    resp.Header,
			Body:       resp.Body,
			Attempts:   resp.Attempts,
			Exhausted:  resp.Exhausted,
		}, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, &TransportError{Kind: KindCancelled, Err: ctx.Err()}
		}
		// The shared fill ran under another caller's context and was cancelled
		// with it; this caller is still live, so make its own exchange.
		var te *TransportError
		if errors.As(err, &te) && te.Kind == KindCancelled {
			loggerFrom(ctx, d.logger).Debug().Str("tool", spec.Name).Msg("jira: shared fill cancelled, executing directly")
			return d.executor.Execute(ctx, req)
		}
		return nil, err
	}
	if hit {
		loggerFrom(ctx, d.logger).Debug().Str("tool", spec.Name).Msg("jira: served from cache")
	}
	return &Response{
		StatusCode: cached.StatusCode,
		Header:     cached.Headers,
		Body:       cached.Body,
		Attempts:   cached.Attempts,
		Exhausted:  cached.Exhausted,
	}, nil
}
