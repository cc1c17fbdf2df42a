package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// EmbeddingKey identifies one cached vector: the embedding function that
// produced it, the task it was requested for and the hash of the text.
type EmbeddingKey struct {
	ModelName   string `json:"model_name"`
	TaskType    string `json:"task_type"`
	ContentHash string `json:"content_hash"`
}

func NewEmbeddingKey(modelName, taskType, text string) EmbeddingKey {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	sum := sha256.Sum256([]byte(text))
	return EmbeddingKey{
		ModelName:   modelName,
		TaskType:    taskType,
		ContentHash: hex.EncodeToString(sum[:]),
	}
}

func (k EmbeddingKey) String() string {
	return k.ModelName + ":" + k.TaskType + ":" + k.ContentHash
}

type EmbeddingCache struct {
	EmbeddingKey
	Embedding []float32 `json:"embedding"`
	Ctime     int64     `json:"ctime"`
}
