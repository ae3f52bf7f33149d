// Package pool implements the provider pool: a routing layer over several
// llm.Provider instances that dispatches embedding and completion requests
// according to a configurable strategy, with retry on transient failures.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/AlessandroBorges/jsimplerag-go/internal/llm"
	"github.com/AlessandroBorges/jsimplerag-go/internal/llm/registry"
)

// Strategy selects how the pool picks a provider for a request.
type Strategy string

const (
	StrategyPrimaryOnly      Strategy = "PRIMARY_ONLY"
	StrategyFailover         Strategy = "FAILOVER"
	StrategyRoundRobin       Strategy = "ROUND_ROBIN"
	StrategyModelBased       Strategy = "MODEL_BASED"
	StrategySpecialized      Strategy = "SPECIALIZED"
	StrategySmartRouting     Strategy = "SMART_ROUTING"
	StrategyDualVerification Strategy = "DUAL_VERIFICATION"
)

// Pool dispatches embedding/completion requests across a fixed ordered list
// of providers, the first of which is the primary.
type Pool struct {
	providers  []llm.Provider
	registry   *registry.Cache
	strategy   Strategy
	maxRetries int
	rrCounter  uint64
}

// New builds a Pool. providers[0] is treated as primary for PRIMARY_ONLY and
// FAILOVER strategies. reg may be nil; if non-nil it is refreshed from
// providers immediately.
func New(providers []llm.Provider, reg *registry.Cache, strategy Strategy, maxRetries int) *Pool {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if reg != nil {
		reg.Refresh(providers)
	}
	return &Pool{providers: providers, registry: reg, strategy: strategy, maxRetries: maxRetries}
}

// Embeddings routes an embedding request per the pool's strategy. op tags
// the semantic intent of the call (e.g. DOCUMENT for indexing, QUERY for
// search) and is forwarded to each candidate provider.
func (p *Pool) Embeddings(ctx context.Context, model string, inputs []string, op llm.EmbeddingOperation) ([][]float32, error) {
	candidates, err := p.candidatesFor(model, llm.CapabilityEmbedding)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for _, prov := range candidates {
		vectors, err := callWithRetry(ctx, p.maxRetries, func(ctx context.Context) ([][]float32, error) {
			return prov.Embeddings(ctx, model, inputs, op)
		})
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		log.Warn().Err(err).Str("provider", prov.Name()).Str("model", model).Msg("embeddings attempt failed")
		if !isTransient(err) {
			break
		}
	}
	return nil, fmt.Errorf("pool: all providers failed for embeddings model %q: %w", model, lastErr)
}

// Completion routes a completion request per the pool's strategy. Under
// DUAL_VERIFICATION it behaves like FAILOVER: candidates are tried one at a
// time and the first successful response is returned, without querying a
// second provider or checking the response for empty text. CompletionDual
// is the method that runs the request against two providers.
func (p *Pool) Completion(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	candidates, err := p.candidatesFor(req.Model, llm.CapabilityCompletion)
	if err != nil {
		return llm.CompletionResponse{}, err
	}
	var lastErr error
	for _, prov := range candidates {
		resp, err := callWithRetry(ctx, p.maxRetries, func(ctx context.Context) (llm.CompletionResponse, error) {
			return prov.Completion(ctx, req)
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err
		log.Warn().Err(err).Str("provider", prov.Name()).Str("model", req.Model).Msg("completion attempt failed")
		if !isTransient(err) {
			break
		}
	}
	return llm.CompletionResponse{}, fmt.Errorf("pool: all providers failed for completion model %q: %w", req.Model, lastErr)
}

// CompletionDual runs req against two distinct providers for DUAL_VERIFICATION
// strategy and returns both responses for the caller to reconcile.
func (p *Pool) CompletionDual(ctx context.Context, req llm.CompletionRequest) (a, b llm.CompletionResponse, err error) {
	candidates, err := p.candidatesFor(req.Model, llm.CapabilityCompletion)
	if err != nil {
		return a, b, err
	}
	if len(candidates) < 2 {
		return a, b, fmt.Errorf("pool: dual verification requires at least 2 providers for model %q", req.Model)
	}
	a, errA := candidates[0].Completion(ctx, req)
	b, errB := candidates[1].Completion(ctx, req)
	if errA != nil && errB != nil {
		return a, b, fmt.Errorf("pool: both verification providers failed: %v / %v", errA, errB)
	}
	return a, b, nil
}

// TokenCount resolves the provider registered for model and delegates token
// counting to it, falling back to the first configured provider if the
// registry has no match.
func (p *Pool) TokenCount(model, text string) (int, error) {
	if p.registry != nil {
		if prov, err := p.registry.Resolve(model); err == nil {
			return prov.TokenCount(model, text)
		}
	}
	if len(p.providers) == 0 {
		return 0, errors.New("pool: no providers configured")
	}
	return p.providers[0].TokenCount(model, text)
}

// candidatesFor orders providers to try for a given model/capability.
func (p *Pool) candidatesFor(model string, capability llm.Capability) ([]llm.Provider, error) {
	filterByCapability := func(in []llm.Provider) []llm.Provider {
		out := make([]llm.Provider, 0, len(in))
		for _, prov := range in {
			if llm.HasCapability(prov, capability) {
				out = append(out, prov)
			}
		}
		return out
	}

	switch p.strategy {
	case StrategyPrimaryOnly:
		if len(p.providers) == 0 {
			return nil, errors.New("pool: no providers configured")
		}
		return filterByCapability(p.providers[:1]), nil

	case StrategyModelBased, StrategySpecialized:
		if p.registry != nil {
			if prov, err := p.registry.Resolve(model); err == nil {
				ordered := []llm.Provider{prov}
				for _, other := range p.providers {
					if other.Name() != prov.Name() {
						ordered = append(ordered, other)
					}
				}
				return filterByCapability(ordered), nil
			}
		}
		return filterByCapability(p.providers), nil

	case StrategyRoundRobin:
		n := uint64(len(p.providers))
		if n == 0 {
			return nil, errors.New("pool: no providers configured")
		}
		start := atomic.AddUint64(&p.rrCounter, 1) % n
		ordered := append(append([]llm.Provider{}, p.providers[start:]...), p.providers[:start]...)
		return filterByCapability(ordered), nil

	case StrategyFailover, StrategySmartRouting, StrategyDualVerification:
		return filterByCapability(p.providers), nil

	default:
		return filterByCapability(p.providers), nil
	}
}

func callWithRetry[T any](ctx context.Context, maxRetries int, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isTransient(err) {
			return zero, err
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 200 * time.Millisecond):
		}
	}
	return zero, lastErr
}

// isTransient reports whether err is retryable. An error that implements
// Temporary() is retryable only if it reports true; every other error,
// including auth and validation failures, is treated as retryable, since
// HTTP status codes are not inspected.
func isTransient(err error) bool {
	var te interface{ Temporary() bool }
	if errors.As(err, &te) {
		return te.Temporary()
	}
	return true
}
