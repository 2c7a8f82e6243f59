package classify

import (
	"context"
	"fmt"
)

// ScoreFunc is an externally supplied scoring function honoring the Scorer
// contract: one Match per input text, scored against the given vocabulary.
type ScoreFunc func(ctx context.Context, texts []string, vocab []Label) ([]Match, error)

// CustomScorer delegates scoring to a user-provided function. The engine
// assumes nothing about its internals beyond the contract.
type CustomScorer struct {
	name string
	fn   ScoreFunc
}

// NewCustomScorer wraps fn under the given display name.
func NewCustomScorer(name string, fn ScoreFunc) *CustomScorer {
	if name == "" {
		name = "custom"
	}
	return &CustomScorer{name: name, fn: fn}
}

func (c *CustomScorer) Name() string { return c.name }

// ScoreBatch invokes the wrapped function and validates its output shape.
func (c *CustomScorer) ScoreBatch(ctx context.Context, texts []string, vocab []Label) ([]Match, error) {
	if c.fn == nil {
		return nil, ErrScorerUnavailable
	}
	matches, err := c.fn(ctx, texts, vocab)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	if len(matches) != len(texts) {
		return nil, fmt.Errorf("%s: returned %d matches for %d texts", c.name, len(matches), len(texts))
	}
	return matches, nil
}
