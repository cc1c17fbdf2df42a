package retrieval

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hmochat/internal/filestore"
	appErr "github.com/xxxsen/hmochat/internal/pkg/errors"
)

const artifactFormat = "hmochat-index/v1"

// The artifact is JSON lines: one header, then one line per chunk.
type artifactHeader struct {
	Format string `json:"format"`
	Identity
	BuildInfo
	Count int `json:"count"`
}

type artifactChunk struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Source    Source    `json:"source"`
	Embedding []float32 `json:"embedding"`
}

func WriteIndex(w io.Writer, index *Index) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	header := artifactHeader{
		Format:    artifactFormat,
		Identity:  index.Identity(),
		BuildInfo: index.Info(),
		Count:     index.Len(),
	}
	if err := enc.Encode(header); err != nil {
		return fmt.Errorf("write index header: %w", err)
	}
	for _, ch := range index.chunks {
		if err := enc.Encode(artifactChunk{ID: ch.ID, Text: ch.Text, Source: ch.Source, Embedding: ch.Embedding}); err != nil {
			return fmt.Errorf("write chunk %d: %w", ch.ID, err)
		}
	}
	return bw.Flush()
}

// ReadIndex loads an artifact and re-checks it: format, chunk count and a
// single dimension matching the header.
func ReadIndex(r io.Reader) (*Index, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	var header artifactHeader
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("%w: read index header: %v", appErr.ErrIndexInconsistency, err)
	}
	if header.Format != artifactFormat {
		return nil, fmt.Errorf("%w: unsupported index format %q", appErr.ErrIndexInconsistency, header.Format)
	}
	chunks := make([]Chunk, 0, header.Count)
	for {
		var line artifactChunk
		err := dec.Decode(&line)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read chunk %d: %v", appErr.ErrIndexInconsistency, len(chunks), err)
		}
		chunks = append(chunks, Chunk{ID: line.ID, Text: line.Text, Embedding: line.Embedding, Source: line.Source})
	}
	if len(chunks) != header.Count {
		return nil, fmt.Errorf("%w: header declares %d chunks, found %d",
			appErr.ErrIndexInconsistency, header.Count, len(chunks))
	}
	index, err := NewIndex(header.Model, chunks, header.BuildInfo)
	if err != nil {
		return nil, err
	}
	if index.Identity().Dimension != header.Dimension {
		return nil, fmt.Errorf("%w: header dimension %d, chunks have %d",
			appErr.ErrIndexInconsistency, header.Dimension, index.Identity().Dimension)
	}
	return index, nil
}

func SaveIndex(ctx context.Context, store filestore.Store, key string, index *Index) error {
	var buf bytes.Buffer
	if err := WriteIndex(&buf, index); err != nil {
		return err
	}
	data := buf.Bytes()
	if err := store.Save(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("save index %s: %w", key, err)
	}
	logutil.GetLogger(ctx).Info("index saved",
		zap.String("store", store.Type()),
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)
	return nil
}

func LoadIndex(ctx context.Context, store filestore.Store, key string) (*Index, error) {
	rc, err := store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", key, err)
	}
	defer rc.Close()
	index, err := ReadIndex(rc)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("index loaded",
		zap.String("key", key),
		zap.String("model", index.Identity().Model),
		zap.Int("dimension", index.Identity().Dimension),
		zap.Int("chunks", index.Len()),
	)
	return index, nil
}
