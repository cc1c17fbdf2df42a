package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const defaultLocalDimension = 1024

type localConfig struct {
	Dimension int `json:"dimension"`
}

// localProvider is an offline embedder: lower-cased word tokens are hashed
// into a fixed number of signed buckets and the vector is L2-normalized.
type localProvider struct {
	dimension int
	stopwords map[string]struct{}
}

func (p *localProvider) Name() string {
	return "local"
}

func (p *localProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	_ = model
	_ = taskType
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, p.dimension)
	for _, tok := range p.tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()
		bucket := int(sum % uint32(p.dimension))
		if sum&(1<<31) != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, p.dimension)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (p *localProvider) tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := p.stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "for", "to", "of", "in", "on", "at", "by", "with", "as",
		"is", "are", "was", "were", "be", "it", "this", "that", "from", "what", "which", "how", "do", "does",
		"i", "my", "me", "you", "your",
		"של", "את", "על", "עם", "או", "גם", "זה", "זו", "כל", "אם", "כי", "מה", "איך", "אני", "הוא", "היא",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func init() {
	RegisterEmbed("local", func(args interface{}) (IEmbedProvider, error) {
		cfg := &localConfig{}
		if err := decodeConfig(args, cfg); err != nil {
			return nil, err
		}
		if cfg.Dimension <= 0 {
			cfg.Dimension = defaultLocalDimension
		}
		return &localProvider{dimension: cfg.Dimension, stopwords: defaultStopwords()}, nil
	})
}
