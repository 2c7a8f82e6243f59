// Package classify assigns a golden signal and fault category to each
// mined template. Scoring is pluggable behind the Scorer contract; the
// Classifier owns batching, the per-template weighted vote, and the
// unknown/unknown fallback, so every variant behaves identically at the
// pipeline boundary.
package classify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/larchwood/logsift/internal/model"
)

// Reserved label values.
const (
	SignalUnknown = "unknown"
	FaultUnknown  = "unknown"
	FaultOther    = "other"
	// SignalInfo marks routine lines; templates carrying it skip fault
	// classification and get FaultOther.
	SignalInfo = "information"
)

// ErrScorerUnavailable marks a scorer that cannot serve requests. The
// classifier recovers with the unknown/unknown fallback.
var ErrScorerUnavailable = errors.New("classify: scorer unavailable")

// Label is one vocabulary entry.
type Label struct {
	Name        string
	Description string
}

// Match is a scorer's verdict for one text.
type Match struct {
	Label      string
	Confidence float64
}

// Scorer scores texts against a label vocabulary. Implementations must be
// safe for concurrent ScoreBatch calls.
type Scorer interface {
	Name() string
	ScoreBatch(ctx context.Context, texts []string, vocab []Label) ([]Match, error)
}

// Representative carries the texts classified on behalf of one template:
// one first-seen line per source file that matched it.
type Representative struct {
	TemplateID int
	Texts      []string
}

// Classifier drives a Scorer over the distinct-template set. Cost scales
// with the number of templates, never with the raw line count.
type Classifier struct {
	scorer      Scorer
	signals     []Label
	faults      []Label
	batchSize   int
	parallelism int
	logger      *slog.Logger
}

// New creates a Classifier. Empty vocabularies are allowed and trigger the
// fallback path.
func New(scorer Scorer, signals, faults []Label, batchSize, parallelism int, logger *slog.Logger) *Classifier {
	if batchSize <= 0 {
		batchSize = 32
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		scorer:      scorer,
		signals:     signals,
		faults:      faults,
		batchSize:   batchSize,
		parallelism: parallelism,
		logger:      logger,
	}
}

// Run classifies every template once and returns templateID -> labels.
// Scoring failures degrade to unknown/unknown per affected template; Run
// itself never fails.
func (c *Classifier) Run(ctx context.Context, reps []Representative) map[int]model.Classification {
	out := make(map[int]model.Classification, len(reps))
	for _, r := range reps {
		out[r.TemplateID] = model.Classification{
			GoldenSignal:  SignalUnknown,
			FaultCategory: FaultUnknown,
			Confidence:    0,
		}
	}
	if c.scorer == nil || len(c.signals) == 0 {
		c.logger.Warn("classification skipped",
			slog.Bool("scorer_missing", c.scorer == nil),
			slog.Int("signal_labels", len(c.signals)))
		return out
	}

	// Flatten representative texts, remembering which template owns each.
	var texts []string
	var owner []int
	for _, r := range reps {
		for _, t := range r.Texts {
			texts = append(texts, CleanText(t))
			owner = append(owner, r.TemplateID)
		}
	}

	signalMatches := c.scoreAll(ctx, texts, c.signals)

	perTemplate := make(map[int][]Match, len(reps))
	for i, m := range signalMatches {
		perTemplate[owner[i]] = append(perTemplate[owner[i]], m)
	}
	signalOf := make(map[int]Match, len(reps))
	for _, r := range reps {
		signalOf[r.TemplateID] = weightedVote(perTemplate[r.TemplateID], c.signals)
	}

	// Fault pass only for templates whose signal is not informational.
	var faultTexts []string
	var faultOwner []int
	for i, text := range texts {
		sig := signalOf[owner[i]]
		if sig.Label == SignalInfo || sig.Label == SignalUnknown {
			continue
		}
		faultTexts = append(faultTexts, text)
		faultOwner = append(faultOwner, owner[i])
	}

	faultOf := make(map[int]Match, len(reps))
	if len(c.faults) > 0 && len(faultTexts) > 0 {
		faultMatches := c.scoreAll(ctx, faultTexts, c.faults)
		perTemplateFault := make(map[int][]Match)
		for i, m := range faultMatches {
			perTemplateFault[faultOwner[i]] = append(perTemplateFault[faultOwner[i]], m)
		}
		for id, ms := range perTemplateFault {
			faultOf[id] = weightedVote(ms, c.faults)
		}
	}

	for _, r := range reps {
		sig := signalOf[r.TemplateID]
		cls := model.Classification{
			GoldenSignal:  sig.Label,
			FaultCategory: FaultUnknown,
			Confidence:    sig.Confidence,
		}
		switch {
		case sig.Label == SignalUnknown:
			cls.Confidence = 0
		case sig.Label == SignalInfo:
			cls.FaultCategory = FaultOther
		default:
			if f, ok := faultOf[r.TemplateID]; ok {
				cls.FaultCategory = f.Label
			} else if len(c.faults) == 0 {
				cls.FaultCategory = FaultUnknown
			}
		}
		out[r.TemplateID] = cls
	}
	return out
}

// scoreAll splits texts into batches and scores them, several batches in
// flight at once. A failed batch degrades to unknown matches instead of
// failing the run.
func (c *Classifier) scoreAll(ctx context.Context, texts []string, vocab []Label) []Match {
	matches := make([]Match, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)

	var warnOnce sync.Once
	for start := 0; start < len(texts); start += c.batchSize {
		start := start
		end := min(start+c.batchSize, len(texts))
		g.Go(func() error {
			got, err := c.scorer.ScoreBatch(ctx, texts[start:end], vocab)
			if err != nil || len(got) != end-start {
				warnOnce.Do(func() {
					c.logger.Warn("scorer batch failed, falling back to unknown",
						slog.String("scorer", c.scorer.Name()),
						slog.Any("error", err))
				})
				for i := start; i < end; i++ {
					matches[i] = Match{Label: SignalUnknown}
				}
				return nil
			}
			copy(matches[start:end], got)
			return nil
		})
	}
	g.Wait()
	return matches
}

// weightedVote picks the final label from several per-representative
// matches: highest mean confidence wins, ties go to the label matched most
// often, remaining ties to vocabulary order.
func weightedVote(ms []Match, vocab []Label) Match {
	if len(ms) == 0 {
		return Match{Label: SignalUnknown}
	}
	type agg struct {
		sum   float64
		count int
	}
	byLabel := make(map[string]*agg, len(ms))
	for _, m := range ms {
		a := byLabel[m.Label]
		if a == nil {
			a = &agg{}
			byLabel[m.Label] = a
		}
		a.sum += m.Confidence
		a.count++
	}

	order := func(label string) int {
		for i, l := range vocab {
			if l.Name == label {
				return i
			}
		}
		return len(vocab)
	}

	best := ""
	var bestAvg float64
	bestCount := 0
	for label, a := range byLabel {
		avg := a.sum / float64(a.count)
		switch {
		case best == "",
			avg > bestAvg,
			avg == bestAvg && a.count > bestCount,
			avg == bestAvg && a.count == bestCount && order(label) < order(best):
			best, bestAvg, bestCount = label, avg, a.count
		}
	}
	return Match{Label: best, Confidence: bestAvg}
}
