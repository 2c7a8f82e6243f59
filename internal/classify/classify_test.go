package classify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeScorer labels texts with a fixed function and records every call.
type fakeScorer struct {
	fn    func(text string, vocab []Label) Match
	err   error
	calls [][]Label
}

func (f *fakeScorer) Name() string { return "fake" }

func (f *fakeScorer) ScoreBatch(_ context.Context, texts []string, vocab []Label) ([]Match, error) {
	f.calls = append(f.calls, vocab)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]Match, len(texts))
	for i, text := range texts {
		out[i] = f.fn(text, vocab)
	}
	return out, nil
}

func TestRunNilScorerFallsBack(t *testing.T) {
	c := New(nil, DefaultSignals(), DefaultFaults(), 0, 0, quietLogger())
	got := c.Run(context.Background(), []Representative{{TemplateID: 1, Texts: []string{"anything"}}})
	cls := got[1]
	if cls.GoldenSignal != SignalUnknown || cls.FaultCategory != FaultUnknown || cls.Confidence != 0 {
		t.Fatalf("expected unknown fallback, got %+v", cls)
	}
}

func TestRunEmptySignalsFallsBack(t *testing.T) {
	s := &fakeScorer{fn: func(string, []Label) Match { return Match{Label: "error", Confidence: 1} }}
	c := New(s, nil, DefaultFaults(), 0, 0, quietLogger())
	got := c.Run(context.Background(), []Representative{{TemplateID: 1, Texts: []string{"x"}}})
	if got[1].GoldenSignal != SignalUnknown {
		t.Fatalf("expected unknown signal, got %+v", got[1])
	}
	if len(s.calls) != 0 {
		t.Fatalf("scorer must not be called with an empty vocabulary")
	}
}

func TestRunInfoSkipsFaultPass(t *testing.T) {
	s := &fakeScorer{fn: func(string, []Label) Match {
		return Match{Label: SignalInfo, Confidence: 0.9}
	}}
	c := New(s, DefaultSignals(), DefaultFaults(), 0, 0, quietLogger())
	got := c.Run(context.Background(), []Representative{{TemplateID: 1, Texts: []string{"heartbeat ok"}}})

	cls := got[1]
	if cls.GoldenSignal != SignalInfo || cls.FaultCategory != FaultOther {
		t.Fatalf("expected information/other, got %+v", cls)
	}
	if len(s.calls) != 1 {
		t.Fatalf("expected only the signal pass, got %d scorer calls", len(s.calls))
	}
}

func TestRunErrorSignalGetsFaultPass(t *testing.T) {
	s := &fakeScorer{fn: func(text string, vocab []Label) Match {
		if vocab[0].Name == "io" { // fault vocabulary
			return Match{Label: "io", Confidence: 0.8}
		}
		return Match{Label: "error", Confidence: 0.7}
	}}
	c := New(s, DefaultSignals(), DefaultFaults(), 0, 0, quietLogger())
	got := c.Run(context.Background(), []Representative{{TemplateID: 3, Texts: []string{"write failed"}}})

	cls := got[3]
	if cls.GoldenSignal != "error" || cls.FaultCategory != "io" {
		t.Fatalf("expected error/io, got %+v", cls)
	}
	if cls.Confidence != 0.7 {
		t.Fatalf("confidence must come from the signal pass, got %v", cls.Confidence)
	}
}

func TestRunScorerFailureDegrades(t *testing.T) {
	s := &fakeScorer{err: errors.New("model not loaded")}
	c := New(s, DefaultSignals(), DefaultFaults(), 0, 0, quietLogger())
	got := c.Run(context.Background(), []Representative{{TemplateID: 1, Texts: []string{"x"}}})
	if got[1].GoldenSignal != SignalUnknown || got[1].FaultCategory != FaultUnknown {
		t.Fatalf("expected unknown fallback on scorer failure, got %+v", got[1])
	}
}

func TestRunVotesAcrossRepresentatives(t *testing.T) {
	// Two of three representatives agree on "error" with higher confidence.
	s := &fakeScorer{fn: func(text string, vocab []Label) Match {
		if vocab[0].Name == "io" {
			return Match{Label: "network", Confidence: 0.5}
		}
		if strings.Contains(text, "latency") {
			return Match{Label: "latency", Confidence: 0.4}
		}
		return Match{Label: "error", Confidence: 0.8}
	}}
	c := New(s, DefaultSignals(), DefaultFaults(), 0, 0, quietLogger())
	got := c.Run(context.Background(), []Representative{
		{TemplateID: 1, Texts: []string{"failed a", "failed b", "latency spike"}},
	})
	if got[1].GoldenSignal != "error" {
		t.Fatalf("expected majority label error, got %+v", got[1])
	}
}

func TestWeightedVote(t *testing.T) {
	vocab := []Label{{Name: "error"}, {Name: "traffic"}}

	// Higher mean confidence wins.
	m := weightedVote([]Match{
		{Label: "error", Confidence: 0.9},
		{Label: "traffic", Confidence: 0.2},
		{Label: "traffic", Confidence: 0.2},
	}, vocab)
	if m.Label != "error" {
		t.Fatalf("expected error, got %+v", m)
	}

	// Equal means: the label matched more often wins.
	m = weightedVote([]Match{
		{Label: "error", Confidence: 0.5},
		{Label: "traffic", Confidence: 0.5},
		{Label: "traffic", Confidence: 0.5},
	}, vocab)
	if m.Label != "traffic" {
		t.Fatalf("expected traffic, got %+v", m)
	}

	// Full tie: vocabulary order decides.
	m = weightedVote([]Match{
		{Label: "traffic", Confidence: 0.5},
		{Label: "error", Confidence: 0.5},
	}, vocab)
	if m.Label != "error" {
		t.Fatalf("expected vocabulary order to break the tie, got %+v", m)
	}

	if m := weightedVote(nil, vocab); m.Label != SignalUnknown {
		t.Fatalf("expected unknown for no matches, got %+v", m)
	}
}
