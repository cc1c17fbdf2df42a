package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type GeneratorEntry struct {
	Name      string
	Generator IGenerator
}

type groupGenerator struct {
	items []GeneratorEntry
}

// NewGroupGenerator tries each generator in order until one succeeds.
// There is no embedder counterpart: vectors from different models are not comparable.
func NewGroupGenerator(items []GeneratorEntry) IGenerator {
	usable := make([]GeneratorEntry, 0, len(items))
	for _, item := range items {
		if item.Generator != nil {
			usable = append(usable, item)
		}
	}
	switch len(usable) {
	case 0:
		return nil
	case 1:
		return usable[0].Generator
	}
	return &groupGenerator{items: usable}
}

// Generate returns the first success. When every generator fails the
// error joins all failures, each tagged with its generator name.
func (g *groupGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	errs := make([]error, 0, len(g.items))
	for i, item := range g.items {
		res, err := item.Generator.Generate(ctx, prompt)
		if err == nil {
			if i > 0 {
				logutil.GetLogger(ctx).Info("generator fallback succeeded", zap.String("name", item.Name), zap.Int("index", i))
			}
			return res, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", item.Name, err))
		logutil.GetLogger(ctx).Warn("generator failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(errs...)
}
