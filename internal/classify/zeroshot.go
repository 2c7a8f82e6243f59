package classify

import (
	"context"
	"fmt"
)

// Entailer scores how strongly a premise entails each hypothesis.
// infer.Entailer satisfies this with a local NLI cross-encoder.
type Entailer interface {
	Entail(premise string, hypotheses []string) ([]float64, error)
}

// ZeroShotScorer treats each label as a hypothesis ("This example is
// <label>.") and the text as the premise, returning the label with the
// highest entailment probability. Probabilities are normalized across the
// vocabulary so confidence is comparable between texts.
type ZeroShotScorer struct {
	ent Entailer
}

// NewZeroShotScorer wraps an entailment model.
func NewZeroShotScorer(ent Entailer) *ZeroShotScorer {
	return &ZeroShotScorer{ent: ent}
}

func (z *ZeroShotScorer) Name() string { return "zero_shot" }

// ScoreBatch scores each text against the full vocabulary.
func (z *ZeroShotScorer) ScoreBatch(ctx context.Context, texts []string, vocab []Label) ([]Match, error) {
	if z.ent == nil {
		return nil, ErrScorerUnavailable
	}

	hyps := make([]string, len(vocab))
	for i, l := range vocab {
		desc := l.Description
		if desc == "" {
			desc = l.Name
		}
		hyps[i] = "This example is " + desc + "."
	}

	matches := make([]Match, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		probs, err := z.ent.Entail(text, hyps)
		if err != nil {
			return nil, fmt.Errorf("zero_shot: %w", err)
		}
		if len(probs) != len(vocab) {
			return nil, fmt.Errorf("zero_shot: %d scores for %d labels", len(probs), len(vocab))
		}

		var sum float64
		bestIdx := 0
		for j, p := range probs {
			sum += p
			if p > probs[bestIdx] {
				bestIdx = j
			}
		}
		conf := probs[bestIdx]
		if sum > 0 {
			conf = probs[bestIdx] / sum
		}
		matches[i] = Match{Label: vocab[bestIdx].Name, Confidence: conf}
	}
	return matches, nil
}
