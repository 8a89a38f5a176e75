package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goContacts/metrics"
	"go.uber.org/zap"
)

const defaultStoreTimeout = 250 * time.Millisecond

// Config wires a Limiter. Store and Default are required.
type Config struct {
	Store         Store
	Default       Policy
	Routes        map[string]Policy
	FailurePolicy FailurePolicy
	StoreTimeout  time.Duration
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
}

// Limiter applies route policies and the failure policy on top of a Store.
type Limiter struct {
	store   Store
	def     Policy
	routes  map[string]Policy
	policy  FailurePolicy
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(cfg Config) (*Limiter, error) {
	if cfg.Store == nil {
		return nil, errors.New("rate limiter store is nil")
	}
	if cfg.Default.Window <= 0 {
		return nil, errors.New("default rate policy window must be positive")
	}
	policy := cfg.FailurePolicy
	if policy == "" {
		policy = FailureError
	}
	if _, err := ParseFailurePolicy(string(policy)); err != nil {
		return nil, err
	}
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	routes := make(map[string]Policy, len(cfg.Routes))
	for name, p := range cfg.Routes {
		if p.Window <= 0 {
			return nil, fmt.Errorf("rate policy for %q: window must be positive", name)
		}
		p.Route = name
		routes[name] = p
	}

	return &Limiter{
		store:   cfg.Store,
		def:     cfg.Default,
		routes:  routes,
		policy:  policy,
		timeout: timeout,
		logger:  logger.Named("rate"),
		metrics: cfg.Metrics,
	}, nil
}

// Key builds the store key for a route and subject.
func Key(route, subject string) string {
	return "rl:" + route + ":" + subject
}

// Policy returns the policy for route, falling back to the default policy.
func (l *Limiter) Policy(route string) Policy {
	if p, ok := l.routes[route]; ok {
		return p
	}
	p := l.def
	p.Route = route
	return p
}

// AdmitRoute checks subject against the policy configured for route.
func (l *Limiter) AdmitRoute(ctx context.Context, route, subject string) (Decision, error) {
	p := l.Policy(route)
	return l.Admit(ctx, Key(route, subject), p.Limit, p.Window)
}

// Admit counts one hit on key. A denial returns the decision together with a
// *LimitedError; a store failure is resolved by the failure policy.
func (l *Limiter) Admit(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		l.metrics.Inc(metrics.RateLimitDenied)
		return Decision{RetryAfter: window}, &LimitedError{RetryAfter: window}
	}

	storeCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	d, err := l.store.Hit(storeCtx, key, limit, window)
	l.metrics.Observe(metrics.RateLimitLatency, time.Since(start))
	if err != nil {
		return l.onStoreError(key, limit, window, err)
	}

	if !d.Allowed {
		l.metrics.Inc(metrics.RateLimitDenied)
		l.logger.Info("rate limit exceeded",
			zap.String("key", key),
			zap.Int("count", d.Count),
			zap.Duration("retry_after", d.RetryAfter),
		)
		return d, &LimitedError{RetryAfter: d.RetryAfter}
	}

	l.metrics.Inc(metrics.RateLimitAllowed)
	return d, nil
}

func (l *Limiter) onStoreError(key string, limit int, window time.Duration, err error) (Decision, error) {
	l.metrics.Inc(metrics.RateLimitStoreFailure)

	switch l.policy {
	case FailureOpen:
		l.logger.Warn("rate limit store failed, admitting", zap.String("key", key), zap.Error(err))
		return Decision{Allowed: true, Remaining: limit}, nil
	case FailureClosed:
		l.logger.Warn("rate limit store failed, denying", zap.String("key", key), zap.Error(err))
		l.metrics.Inc(metrics.RateLimitDenied)
		return Decision{RetryAfter: window}, &LimitedError{RetryAfter: window}
	default:
		l.logger.Error("rate limit store failed", zap.String("key", key), zap.Error(err))
		if errors.Is(err, ErrStoreUnavailable) {
			return Decision{}, err
		}
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
