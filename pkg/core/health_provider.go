// SPDX-License-Identifier: Apache-2.0
package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultHealthCheckProvider implements HealthCheckProvider. CheckAll runs
// checkers concurrently and caches each result for cacheTTL.
type DefaultHealthCheckProvider struct {
	checkers map[string]HealthChecker
	mu       sync.RWMutex
	cache    map[string]HealthResult
	cacheTTL time.Duration
	now      func() time.Time
}

// NewDefaultHealthCheckProvider creates a new health check provider.
// A negative cacheTTL disables caching.
func NewDefaultHealthCheckProvider(cacheTTL time.Duration) *DefaultHealthCheckProvider {
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Second
	}
	return &DefaultHealthCheckProvider{
		checkers: make(map[string]HealthChecker),
		cache:    make(map[string]HealthResult),
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// RegisterChecker registers a health checker for a component.
func (p *DefaultHealthCheckProvider) RegisterChecker(name string, checker HealthChecker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkers[name] = checker
	delete(p.cache, name)
}

// Check checks the health of a specific component, bypassing the cache.
func (p *DefaultHealthCheckProvider) Check(ctx context.Context, name string) (HealthResult, error) {
	p.mu.RLock()
	checker, exists := p.checkers[name]
	p.mu.RUnlock()

	if !exists {
		return HealthResult{}, errors.NotFound("health checker", name)
	}

	result := checker.Check(ctx)
	result.Component = name
	p.store(name, result)
	return result, nil
}

// CheckAll checks the health of all registered components, sorted by name.
// The overall status is the worst individual status.
func (p *DefaultHealthCheckProvider) CheckAll(ctx context.Context) ([]HealthResult, HealthStatus) {
	checkers := p.getAllCheckers()
	names := make([]string, 0, len(checkers))
	for name := range checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]HealthResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		if cached, ok := p.cached(name); ok {
			results[i] = cached
			continue
		}
		g.Go(func() error {
			result := checkers[name].Check(gctx)
			result.Component = name
			p.store(name, result)
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	overall := HealthHealthy
	for _, r := range results {
		switch r.Status {
		case HealthUnhealthy:
			overall = HealthUnhealthy
		case HealthDegraded:
			if overall != HealthUnhealthy {
				overall = HealthDegraded
			}
		}
	}
	return results, overall
}

func (p *DefaultHealthCheckProvider) cached(name string) (HealthResult, bool) {
	if p.cacheTTL < 0 {
		return HealthResult{}, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.cache[name]
	if !ok || p.now().Sub(r.LastCheck) > p.cacheTTL {
		return HealthResult{}, false
	}
	return r, true
}

func (p *DefaultHealthCheckProvider) store(name string, r HealthResult) {
	if r.LastCheck.IsZero() {
		r.LastCheck = p.now()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[name] = r
}

// getAllCheckers returns a snapshot of all checkers.
func (p *DefaultHealthCheckProvider) getAllCheckers() map[string]HealthChecker {
	p.mu.RLock()
	defer p.mu.RUnlock()

	checkers := make(map[string]HealthChecker, len(p.checkers))
	for name, checker := range p.checkers {
		checkers[name] = checker
	}
	return checkers
}

// SimpleHealthChecker is a basic health checker that returns a constant status.
type SimpleHealthChecker struct {
	status  HealthStatus
	message string
}

// NewSimpleHealthChecker creates a new simple health checker.
func NewSimpleHealthChecker(status HealthStatus, message string) *SimpleHealthChecker {
	return &SimpleHealthChecker{
		status:  status,
		message: message,
	}
}

// Check returns the constant health status.
func (s *SimpleHealthChecker) Check(ctx context.Context) HealthResult {
	return HealthResult{
		Status:    s.status,
		Message:   s.message,
		LastCheck: time.Now(),
	}
}

// FunctionHealthChecker wraps a function as a health checker.
type FunctionHealthChecker struct {
	fn func(ctx context.Context) HealthResult
}

// NewFunctionHealthChecker creates a health checker from a function.
func NewFunctionHealthChecker(fn func(ctx context.Context) HealthResult) *FunctionHealthChecker {
	return &FunctionHealthChecker{fn: fn}
}

// Check calls the underlying function.
func (f *FunctionHealthChecker) Check(ctx context.Context) HealthResult {
	result := f.fn(ctx)
	if result.LastCheck.IsZero() {
		result.LastCheck = time.Now()
	}
	return result
}

// PingHealthChecker reports Unhealthy when ping returns an error.
func PingHealthChecker(ping func(ctx context.Context) error) HealthChecker {
	return NewFunctionHealthChecker(func(ctx context.Context) HealthResult {
		if err := ping(ctx); err != nil {
			return HealthResult{Status: HealthUnhealthy, Message: err.Error(), Error: err}
		}
		return HealthResult{Status: HealthHealthy, Message: "ok"}
	})
}
