package resolve

import (
	"time"

	"github.com/Iron-Ham/devtop/internal/cache"
	"github.com/Iron-Ham/devtop/internal/errors"
	"github.com/Iron-Ham/devtop/internal/logging"
)

// Default resolver settings.
const (
	DefaultCacheTTL = 30 * time.Second
	DefaultTimeout  = 2 * time.Second
	// DefaultCwdCacheSize bounds the per-pid cwd cache.
	DefaultCwdCacheSize = 2048
)

// Option configures a resolver.
type Option func(*options)

type options struct {
	ttl     time.Duration
	timeout time.Duration
	clock   cache.Clock
	logger  *logging.Logger
}

func defaultOptions() options {
	return options{
		ttl:     DefaultCacheTTL,
		timeout: DefaultTimeout,
		clock:   cache.SystemClock,
		logger:  logging.NopLogger(),
	}
}

// WithTTL sets how long successful lookups are cached.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithTimeout bounds each external query.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithClock overrides the cache clock.
func WithClock(c cache.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger for degraded lookups.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// logFailure logs a lookup failure at a level derived from its severity.
// Missing tools are expected on many machines and stay at debug. Timeouts
// are tagged so a slow tool can be told apart from a broken one.
func logFailure(logger *logging.Logger, msg string, err error) {
	switch {
	case errors.IsToolTimeout(err):
		logger.Warn(msg, "error", err, "timeout", true, "retryable", errors.IsRetryable(err))
	case errors.GetSeverity(err) <= errors.SeverityInfo:
		logger.Debug(msg, "error", err)
	default:
		logger.Warn(msg, "error", err)
	}
}
