package observability

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Throttled logs at most one entry per interval (with a small burst) and
// counts what it drops. The next entry that gets through carries the count.
// It is meant for errors that can repeat on every camera frame.
type Throttled struct {
	logger  *zap.Logger
	limiter *rate.Limiter

	mu         sync.Mutex
	suppressed int
}

// NewThrottled allows burst entries at once and one more every interval.
func NewThrottled(logger *zap.Logger, interval time.Duration, burst int) *Throttled {
	return &Throttled{
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
	}
}

// Error logs msg at error level unless the rate is exceeded. It reports
// whether the entry was written.
func (t *Throttled) Error(msg string, fields ...zap.Field) bool {
	return t.log(t.logger.Error, msg, fields)
}

// Warn is Error at warn level.
func (t *Throttled) Warn(msg string, fields ...zap.Field) bool {
	return t.log(t.logger.Warn, msg, fields)
}

func (t *Throttled) log(write func(string, ...zap.Field), msg string, fields []zap.Field) bool {
	t.mu.Lock()
	if !t.limiter.Allow() {
		t.suppressed++
		t.mu.Unlock()
		return false
	}
	dropped := t.suppressed
	t.suppressed = 0
	t.mu.Unlock()

	if dropped > 0 {
		fields = append(fields, zap.Int("suppressed", dropped))
	}
	write(msg, fields...)
	return true
}

// Suppressed returns the number of entries dropped since the last write.
func (t *Throttled) Suppressed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.suppressed
}
