package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/hmochat/internal/pkg/errors"
)

const (
	defaultCallTimeout = 30 * time.Second
	defaultBaseDelay   = 200 * time.Millisecond
	defaultMaxDelay    = 5 * time.Second
)

// RetryConfig bounds a single logical call: every attempt gets Timeout,
// and at most MaxRetries extra attempts follow the first one.
type RetryConfig struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.Timeout <= 0 {
		c.Timeout = defaultCallTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	return c
}

func (c RetryConfig) delay(attempt int) time.Duration {
	d := c.BaseDelay << attempt
	if d <= 0 || d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

type temporary interface {
	Temporary() bool
}

func retryable(err error) bool {
	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled) {
		return false
	}
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return true
}

func callWithRetry[T any](ctx context.Context, cfg RetryConfig, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := cfg.delay(attempt - 1)
			logutil.GetLogger(ctx).Warn("ai call retry",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(lastErr),
			)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, fmt.Errorf("%w: %s: %v", appErr.ErrExternalService, op, ctx.Err())
			case <-timer.C:
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		res, err := fn(callCtx)
		cancel()
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}
	return zero, fmt.Errorf("%w: %s: %v", appErr.ErrExternalService, op, lastErr)
}

type retryGenerator struct {
	next IGenerator
	cfg  RetryConfig
}

// WithRetryGenerator adds per-attempt timeouts and bounded retries. Blank
// completions count as failures.
func WithRetryGenerator(g IGenerator, cfg RetryConfig) IGenerator {
	if g == nil {
		return nil
	}
	return &retryGenerator{next: g, cfg: cfg.withDefaults()}
}

func (r *retryGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return callWithRetry(ctx, r.cfg, "generate", func(ctx context.Context) (string, error) {
		resp, err := r.next.Generate(ctx, prompt)
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(resp)
		if text == "" {
			return "", fmt.Errorf("empty ai response")
		}
		return text, nil
	})
}

type retryEmbedder struct {
	next IEmbedder
	cfg  RetryConfig
}

func WithRetryEmbedder(e IEmbedder, cfg RetryConfig) IEmbedder {
	if e == nil {
		return nil
	}
	return &retryEmbedder{next: e, cfg: cfg.withDefaults()}
}

func (r *retryEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return callWithRetry(ctx, r.cfg, "embed", func(ctx context.Context) ([]float32, error) {
		vec, err := r.next.Embed(ctx, text, taskType)
		if err != nil {
			return nil, err
		}
		if len(vec) == 0 {
			return nil, fmt.Errorf("empty embedding")
		}
		return vec, nil
	})
}

func (r *retryEmbedder) ModelName() string {
	return r.next.ModelName()
}
