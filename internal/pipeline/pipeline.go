// Package pipeline runs the full analysis: ingest, mine, classify,
// aggregate, window, assemble. Each stage feeds the next in memory; the
// caller writes the assembled reports.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/larchwood/logsift/internal/aggregate"
	"github.com/larchwood/logsift/internal/classify"
	"github.com/larchwood/logsift/internal/config"
	"github.com/larchwood/logsift/internal/ingest"
	"github.com/larchwood/logsift/internal/miner"
	"github.com/larchwood/logsift/internal/model"
	"github.com/larchwood/logsift/internal/report"
	"github.com/larchwood/logsift/internal/window"
)

// defaultGranularity backs windowing when the configured granularity is
// zero or negative.
const defaultGranularity = 30 * time.Second

// ReasonCode names the terminal state of a run.
type ReasonCode string

const (
	ReasonOK            ReasonCode = "ok"
	ReasonNoUsableInput ReasonCode = "no-usable-input"
	ReasonInternalError ReasonCode = "internal-error"
)

// ExitCode maps the reason to the process exit status.
func (r ReasonCode) ExitCode() int {
	switch r {
	case ReasonOK:
		return 0
	case ReasonNoUsableInput:
		return 102
	default:
		return 1
	}
}

// Result is everything one run produced. Summary and Diagnosis are nil when
// Reason is not ReasonOK.
type Result struct {
	Reason    ReasonCode
	Summary   *model.SummaryReport
	Diagnosis *model.DiagnosisReport
	Templates []model.ClassifiedTemplate
	Discards  []model.DiscardEntry
	Stages    []report.StageStat
}

// Pipeline wires the stages together around a shared config and scorer.
type Pipeline struct {
	cfg    *config.Config
	scorer classify.Scorer
	logger *slog.Logger
}

// New builds a pipeline. scorer may be nil; templates then stay unknown.
func New(cfg *config.Config, scorer classify.Scorer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, scorer: scorer, logger: logger}
}

// Run executes the pipeline over the given input paths. The returned Result
// always carries a ReasonCode; the error adds detail when the reason is not
// ReasonOK.
func (p *Pipeline) Run(ctx context.Context, paths []string) (*Result, error) {
	res := &Result{Reason: ReasonOK}
	mark := func(name string, records int, start time.Time) {
		d := time.Since(start)
		res.Stages = append(res.Stages, report.StageStat{Name: name, Records: records, Duration: d})
		p.logger.Debug("stage complete",
			slog.String("stage", name), slog.Int("records", records), slog.Duration("took", d))
	}

	start := time.Now()
	ing, err := ingest.New(p.cfg.Ingest, p.cfg.TimestampPatterns, p.logger)
	if err != nil {
		res.Reason = ReasonInternalError
		return res, err
	}
	inRes, err := ing.Run(ctx, paths, p.cfg.TimeRange)
	if err != nil {
		if errors.Is(err, ingest.ErrNoUsableInput) {
			res.Reason = ReasonNoUsableInput
		} else {
			res.Reason = ReasonInternalError
		}
		return res, err
	}
	res.Discards = inRes.Discards
	records := inRes.Records
	mark("ingest", len(records), start)

	start = time.Now()
	templates, assign, err := p.mine(ctx, records)
	if err != nil {
		res.Reason = ReasonInternalError
		return res, fmt.Errorf("pipeline: mine: %w", err)
	}
	mark("mine", len(templates), start)

	start = time.Now()
	classes := p.classify(ctx, records, assign)
	res.Templates = make([]model.ClassifiedTemplate, len(templates))
	for i, t := range templates {
		res.Templates[i] = model.ClassifiedTemplate{Template: t, Classification: classes[t.ID]}
	}
	mark("classify", len(classes), start)

	start = time.Now()
	rows := aggregate.Build(records, assign, classes)
	mark("aggregate", len(rows), start)

	start = time.Now()
	g := p.cfg.Granularity
	if g <= 0 {
		p.logger.Warn("granularity not positive, using default",
			slog.Duration("configured", g), slog.Duration("default", defaultGranularity))
		g = defaultGranularity
	}
	windows := window.Build(records, assign, classes, g)
	niRecs, niAssign := window.FilterNonInfo(records, assign, classes)
	niWindows := window.Build(niRecs, niAssign, classes, g)
	mark("window", len(windows), start)

	start = time.Now()
	res.Summary = &model.SummaryReport{TotalRecords: len(records), Rows: rows}
	res.Diagnosis = &model.DiagnosisReport{
		Granularity:    g,
		Windows:        windows,
		NonInfoWindows: niWindows,
	}
	mark("assemble", len(rows)+len(windows), start)

	p.logger.Info("run complete",
		slog.Int("records", len(records)),
		slog.Int("templates", len(templates)),
		slog.Int("windows", len(windows)))
	return res, nil
}

// mine builds one miner per source file, runs them concurrently, and merges
// the shard trees into a single template set. Returns the merged templates
// and the per-record template assignment, aligned with records.
func (p *Pipeline) mine(ctx context.Context, records []model.LogRecord) ([]model.Template, []int, error) {
	// Records arrive grouped by source, so shard boundaries are just the
	// points where Source changes.
	type shard struct{ lo, hi int }
	var shards []shard
	for i := range records {
		if i == 0 || records[i].Source != records[i-1].Source {
			shards = append(shards, shard{lo: i, hi: i})
		}
		shards[len(shards)-1].hi = i + 1
	}

	miners := make([]*miner.Miner, len(shards))
	local := make([]int, len(records)) // shard-local template IDs
	g, ctx := errgroup.WithContext(ctx)
	for si, sh := range shards {
		si, sh := si, sh
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m := miner.New(miner.Config{
				SimilarityThreshold: p.cfg.Miner.SimilarityThreshold,
				Depth:               p.cfg.Miner.Depth,
				MaxChildren:         p.cfg.Miner.MaxChildren,
				MaxTokens:           p.cfg.Miner.MaxTokens,
			})
			for i := sh.lo; i < sh.hi; i++ {
				local[i] = m.Add(records[i].Body)
			}
			miners[si] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	merged := miner.Merge(miners)
	assign := make([]int, len(records))
	for si, sh := range shards {
		remap := merged.Remap[si]
		for i := sh.lo; i < sh.hi; i++ {
			assign[i] = remap[local[i]]
		}
	}
	return merged.Templates, assign, nil
}

// classify scores one representative set per template. Never fails: scorer
// trouble leaves templates unknown rather than sinking the run.
func (p *Pipeline) classify(ctx context.Context, records []model.LogRecord, assign []int) map[int]model.Classification {
	signals := classify.LabelsFromConfig(p.cfg.Signals)
	if len(signals) == 0 {
		signals = classify.DefaultSignals()
	}
	faults := classify.LabelsFromConfig(p.cfg.Faults)
	if len(faults) == 0 {
		faults = classify.DefaultFaults()
	}

	reps := aggregate.Representatives(records, assign)
	c := classify.New(p.scorer, signals, faults,
		p.cfg.Classifier.BatchSize, p.cfg.Classifier.Parallelism, p.logger)
	return c.Run(ctx, reps)
}
