package ai

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/hmochat/internal/pkg/errors"
)

type scriptedGenerator struct {
	calls   atomic.Int32
	results []string
	errs    []error
}

func (s *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	i := int(s.calls.Add(1)) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.results) {
		return s.results[i], nil
	}
	return "", errors.New("script exhausted")
}

type blockingEmbedder struct {
	calls atomic.Int32
}

func (b *blockingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	b.calls.Add(1)
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingEmbedder) ModelName() string {
	return "test/blocking"
}

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		Timeout:    50 * time.Millisecond,
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}
}

func TestRetryGenerator_RecoversFromTransientFailure(t *testing.T) {
	next := &scriptedGenerator{
		errs:    []error{errors.New("connection reset"), nil},
		results: []string{"", "  answer  "},
	}
	gen := WithRetryGenerator(next, fastRetry(2))

	out, err := gen.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "answer", out)
	require.EqualValues(t, 2, next.calls.Load())
}

func TestRetryGenerator_ExhaustedIsExternalServiceFailure(t *testing.T) {
	boom := errors.New("boom")
	next := &scriptedGenerator{errs: []error{boom, boom, boom, boom}}
	gen := WithRetryGenerator(next, fastRetry(2))

	_, err := gen.Generate(context.Background(), "prompt")
	require.Error(t, err)
	require.True(t, errors.Is(err, appErr.ErrExternalService))
	require.EqualValues(t, 3, next.calls.Load())
}

func TestRetryGenerator_BlankResponseIsFailure(t *testing.T) {
	next := &scriptedGenerator{results: []string{" ", "\n"}}
	gen := WithRetryGenerator(next, fastRetry(1))

	_, err := gen.Generate(context.Background(), "prompt")
	require.True(t, errors.Is(err, appErr.ErrExternalService))
}

func TestRetryGenerator_UnavailableIsNotRetried(t *testing.T) {
	next := &scriptedGenerator{errs: []error{ErrUnavailable, nil}, results: []string{"", "late"}}
	gen := WithRetryGenerator(next, fastRetry(3))

	_, err := gen.Generate(context.Background(), "prompt")
	require.True(t, errors.Is(err, appErr.ErrExternalService))
	require.EqualValues(t, 1, next.calls.Load())
}

func TestRetryGenerator_ClientErrorIsNotRetried(t *testing.T) {
	badRequest := &StatusError{Provider: "openai", StatusCode: http.StatusBadRequest}
	next := &scriptedGenerator{errs: []error{badRequest, nil}, results: []string{"", "late"}}
	gen := WithRetryGenerator(next, fastRetry(3))

	_, err := gen.Generate(context.Background(), "prompt")
	require.Error(t, err)
	require.EqualValues(t, 1, next.calls.Load())
}

func TestRetryEmbedder_EachAttemptIsBounded(t *testing.T) {
	next := &blockingEmbedder{}
	emb := WithRetryEmbedder(next, fastRetry(1))

	start := time.Now()
	_, err := emb.Embed(context.Background(), "text", TaskTypeRetrievalQuery)
	require.True(t, errors.Is(err, appErr.ErrExternalService))
	require.EqualValues(t, 2, next.calls.Load())
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, "test/blocking", emb.ModelName())
}

func TestRetryConfig_DelayIsCapped(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}.withDefaults()
	require.Equal(t, 100*time.Millisecond, cfg.delay(0))
	require.Equal(t, 200*time.Millisecond, cfg.delay(1))
	require.Equal(t, 300*time.Millisecond, cfg.delay(2))
	require.Equal(t, 300*time.Millisecond, cfg.delay(40))
}
