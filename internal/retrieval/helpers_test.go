package retrieval

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// vocabEmbedder counts known words; unknown words add nothing, so text with
// no known word embeds to the zero vector.
type vocabEmbedder struct {
	model string
	vocab map[string]int
	fail  func(text string) bool
}

func newVocabEmbedder(words ...string) *vocabEmbedder {
	vocab := make(map[string]int, len(words))
	for i, w := range words {
		vocab[w] = i
	}
	return &vocabEmbedder{model: "test/vocab", vocab: vocab}
}

func (v *vocabEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if v.fail != nil && v.fail(text) {
		return nil, errors.New("embedding service down")
	}
	vec := make([]float32, len(v.vocab))
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if i, ok := v.vocab[tok]; ok {
			vec[i]++
		}
	}
	return vec, nil
}

func (v *vocabEmbedder) ModelName() string {
	return v.model
}

var coverageVocab = []string{"dental", "coverage", "gold", "tier", "optical", "silver"}

var coverageDocs = []Document{
	{ID: "dental", Content: "Dental coverage for gold tier"},
	{ID: "optical", Content: "Optical coverage for silver tier"},
}
