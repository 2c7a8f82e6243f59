package classify

import (
	"context"
	"errors"
	"testing"
)

func TestCustomScorerDelegates(t *testing.T) {
	s := NewCustomScorer("rules", func(_ context.Context, texts []string, _ []Label) ([]Match, error) {
		out := make([]Match, len(texts))
		for i := range texts {
			out[i] = Match{Label: "error", Confidence: 1}
		}
		return out, nil
	})
	if s.Name() != "rules" {
		t.Fatalf("unexpected name %q", s.Name())
	}
	got, err := s.ScoreBatch(context.Background(), []string{"a", "b"}, []Label{{Name: "error"}})
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if len(got) != 2 || got[0].Label != "error" {
		t.Fatalf("unexpected matches %v", got)
	}
}

func TestCustomScorerNilFunc(t *testing.T) {
	s := NewCustomScorer("", nil)
	if s.Name() != "custom" {
		t.Fatalf("expected default name, got %q", s.Name())
	}
	if _, err := s.ScoreBatch(context.Background(), []string{"x"}, nil); !errors.Is(err, ErrScorerUnavailable) {
		t.Fatalf("expected ErrScorerUnavailable, got %v", err)
	}
}

func TestCustomScorerLengthMismatch(t *testing.T) {
	s := NewCustomScorer("bad", func(context.Context, []string, []Label) ([]Match, error) {
		return []Match{}, nil
	})
	if _, err := s.ScoreBatch(context.Background(), []string{"x"}, nil); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}
