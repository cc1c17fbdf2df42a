package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/hmochat/internal/service"
)

type recordingCleaner struct {
	cutoff int64
}

func (r *recordingCleaner) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	r.cutoff = cutoff
	return 3, nil
}

func TestEmbeddingCacheCleanupJob_Cutoff(t *testing.T) {
	now := time.Unix(1700000000, 0)
	cleaner := &recordingCleaner{}
	j := NewEmbeddingCacheCleanupJob(cleaner, 0)
	j.now = func() time.Time { return now }

	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, now.Add(-30*24*time.Hour).Unix(), cleaner.cutoff)
	require.Equal(t, "embedding_cache_cleanup", j.Name())

	require.NoError(t, NewEmbeddingCacheCleanupJob(nil, 7).Run(context.Background()))
}

func TestSessionSweepJob(t *testing.T) {
	chat := service.NewChatService(nil, nil, service.ChatServiceConfig{IdleTimeout: time.Nanosecond})
	_, err := chat.Create(context.Background())
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	j := NewSessionSweepJob(chat)
	require.NoError(t, j.Run(context.Background()))
	require.Zero(t, chat.Count())
}
