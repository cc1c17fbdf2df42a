package embedcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hmochat/internal/ai"
	"github.com/xxxsen/hmochat/internal/model"
)

// WrapLruCacheToEmbedder keeps recent query vectors in memory so a repeated
// question is embedded once per ttl.
func WrapLruCacheToEmbedder(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		model: e.ModelName(),
		cache: expirable.NewLRU[model.EmbeddingKey, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.IEmbedder
	model string
	cache *expirable.LRU[model.EmbeddingKey, []float32]
}

// Callers get their own copy; the cached slice is never handed out.
func (l *lruEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	key := model.NewEmbeddingKey(l.model, taskType, text)
	if cached, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("query embedding served from memory",
			zap.String("model", key.ModelName),
			zap.String("task_type", taskType),
			zap.Int("cached", l.cache.Len()),
		)
		return copyVector(cached), nil
	}
	vec, err := l.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, copyVector(vec))
	return vec, nil
}

func (l *lruEmbedder) ModelName() string {
	return l.model
}

func copyVector(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}
	return append([]float32(nil), v...)
}
