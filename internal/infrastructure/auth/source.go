package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/aps-model-browser/internal/core/domain"
	"github.com/kirillkom/aps-model-browser/internal/infrastructure/resilience"
)

const defaultExpiryMargin = time.Minute

// Fetcher is anything that can mint a fresh viewer token.
type Fetcher interface {
	ViewerToken(ctx context.Context) (domain.AccessToken, error)
}

type Options struct {
	ExpiryMargin       time.Duration
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
	Now                func() time.Time
}

// CachingSource hands out the cached token until it is about to expire.
// Concurrent callers that find no usable token share one fetch.
type CachingSource struct {
	name     string
	fetch    func(context.Context) (domain.AccessToken, error)
	classify resilience.ErrorClassifier
	executor *resilience.Executor
	logger   *slog.Logger
	margin   time.Duration
	now      func() time.Time

	group  singleflight.Group
	mu     sync.Mutex
	cached domain.AccessToken
}

// NewBackendSource caches tokens minted by the backend's token endpoint.
func NewBackendSource(fetcher Fetcher, options Options) *CachingSource {
	return newCachingSource("backend", fetcher.ViewerToken, nil, options)
}

func newCachingSource(
	name string,
	fetch func(context.Context) (domain.AccessToken, error),
	classify resilience.ErrorClassifier,
	options Options,
) *CachingSource {
	s := &CachingSource{
		name:     name,
		fetch:    fetch,
		classify: classify,
		executor: options.ResilienceExecutor,
		logger:   options.Logger,
		margin:   options.ExpiryMargin,
		now:      options.Now,
	}
	if s.margin <= 0 {
		s.margin = defaultExpiryMargin
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *CachingSource) Token(ctx context.Context) (domain.AccessToken, error) {
	s.mu.Lock()
	cached := s.cached
	s.mu.Unlock()
	if !cached.Expired(s.now(), s.margin) {
		return cached, nil
	}

	v, err, shared := s.group.Do(s.name, func() (any, error) {
		s.mu.Lock()
		current := s.cached
		s.mu.Unlock()
		if !current.Expired(s.now(), s.margin) {
			return current, nil
		}

		token, err := resilience.Call(ctx, s.executor, "token."+s.name, s.fetch, s.classify)
		if err != nil {
			return domain.AccessToken{}, err
		}
		s.mu.Lock()
		s.cached = token
		s.mu.Unlock()
		return token, nil
	})
	if err != nil {
		s.logger.Error("token_fetch_failed", "source", s.name, "error", err)
		if domain.IsKind(err, domain.ErrAuth) {
			return domain.AccessToken{}, err
		}
		return domain.AccessToken{}, domain.WrapError(domain.ErrAuth, "fetch "+s.name+" token", err)
	}
	s.logger.Debug("token_fetched", "source", s.name, "shared", shared)
	return v.(domain.AccessToken), nil
}

// Invalidate drops the cached token so the next call fetches a new one.
func (s *CachingSource) Invalidate() {
	s.mu.Lock()
	s.cached = domain.AccessToken{}
	s.mu.Unlock()
}
