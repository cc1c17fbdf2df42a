package embedcache

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hmochat/internal/ai"
	"github.com/xxxsen/hmochat/internal/model"
)

// Store persists embeddings across builds; repo.EmbeddingCacheRepo implements it.
type Store interface {
	Get(ctx context.Context, key model.EmbeddingKey) ([]float32, bool, error)
	Save(ctx context.Context, item *model.EmbeddingCache) error
}

// WrapDBCacheToEmbedder lets an index rebuild reuse the vectors of chunks
// whose text did not change.
func WrapDBCacheToEmbedder(e ai.IEmbedder, store Store) ai.IEmbedder {
	if e == nil || store == nil {
		return e
	}
	return &dbEmbedder{next: e, store: store, now: time.Now}
}

type dbEmbedder struct {
	next  ai.IEmbedder
	store Store
	now   func() time.Time
}

func (d *dbEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	logger := logutil.GetLogger(ctx)
	key := model.NewEmbeddingKey(d.next.ModelName(), taskType, text)
	cached, ok, err := d.store.Get(ctx, key)
	switch {
	case err != nil:
		// a broken cache must not block embedding
		logger.Warn("read embedding cache failed", zap.String("key", key.String()), zap.Error(err))
	case ok && len(cached) > 0:
		return cached, nil
	}
	vec, err := d.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	item := &model.EmbeddingCache{EmbeddingKey: key, Embedding: vec, Ctime: d.now().Unix()}
	if err := d.store.Save(ctx, item); err != nil {
		logger.Warn("write embedding cache failed", zap.String("key", key.String()), zap.Error(err))
	}
	return vec, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}
