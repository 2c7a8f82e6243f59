package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/larchwood/logsift/internal/classify"
	"github.com/larchwood/logsift/internal/config"
	"github.com/larchwood/logsift/internal/infer"
	"github.com/larchwood/logsift/internal/logging"
	"github.com/larchwood/logsift/internal/pipeline"
	"github.com/larchwood/logsift/internal/report"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	engineFile := flag.String("config", "", "engine configuration file (YAML)")
	timeRange := flag.String("time-range", cfg.TimeRange, "retain records this far back from the newest timestamp (all-data, N-day, N-week, 1-month)")
	window := flag.Duration("window", cfg.Granularity, "diagnosis window width")
	outDir := flag.String("out", cfg.OutputDir, "output directory for reports")
	variant := flag.String("classifier", cfg.Classifier.Variant, "classifier variant (similarity, zero_shot)")
	debug := flag.Bool("debug", cfg.Debug, "write intermediate artifacts and verbose logs")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: logsift [flags] <log file or directory>...")
		flag.PrintDefaults()
		return 1
	}

	if *engineFile != "" {
		if err := cfg.MergeFile(*engineFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	cfg.TimeRange = *timeRange
	cfg.Granularity = *window
	cfg.OutputDir = *outDir
	cfg.Classifier.Variant = *variant
	cfg.Debug = *debug

	logging.Init(cfg.Debug, logging.ParseLevel(cfg.LogLevel))
	logger := slog.Default()

	scorer, closeScorer, err := buildScorer(cfg.Classifier)
	if err != nil {
		logger.Error("classifier setup failed, templates will stay unknown", slog.Any("error", err))
	}
	if closeScorer != nil {
		defer closeScorer()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	p := pipeline.New(&cfg, scorer, logger)
	res, runErr := p.Run(ctx, flag.Args())

	w := report.NewWriter(cfg.OutputDir)
	if runErr != nil {
		logger.Error("run failed", slog.String("reason", string(res.Reason)), slog.Any("error", runErr))
		if err := w.WriteEmpty(cfg.Granularity); err != nil {
			logger.Error("writing empty reports failed", slog.Any("error", err))
		}
		return res.Reason.ExitCode()
	}

	if err := w.WriteSummary(res.Summary); err != nil {
		logger.Error("writing summary failed", slog.Any("error", err))
		return pipeline.ReasonInternalError.ExitCode()
	}
	if err := w.WriteDiagnosis(res.Diagnosis); err != nil {
		logger.Error("writing diagnosis failed", slog.Any("error", err))
		return pipeline.ReasonInternalError.ExitCode()
	}
	if cfg.Debug {
		dbg := &report.Debug{
			Templates: res.Templates,
			Discards:  res.Discards,
			Stages:    res.Stages,
		}
		if err := w.WriteDebug(dbg); err != nil {
			logger.Error("writing debug artifacts failed", slog.Any("error", err))
		}
	}

	logger.Info("reports written",
		slog.String("dir", cfg.OutputDir),
		slog.Duration("took", time.Since(start)))
	return pipeline.ReasonOK.ExitCode()
}

// buildScorer constructs the classifier backend for the configured variant.
// The similarity variant falls back to the model-free lexical embedder when
// no model path is set, so a bare invocation still produces labels.
func buildScorer(cfg config.ClassifierConfig) (classify.Scorer, func(), error) {
	switch cfg.Variant {
	case "similarity":
		if cfg.ModelPath == "" {
			emb := classify.NewLexicalEmbedder(0)
			return classify.NewSimilarityScorer(emb, cfg.ConfidenceThreshold), nil, nil
		}
		emb, err := infer.NewEmbedder(cfg.ModelPath, cfg.VocabPath, cfg.ProjectionPath)
		if err != nil {
			return nil, nil, fmt.Errorf("similarity embedder: %w", err)
		}
		return classify.NewSimilarityScorer(emb, cfg.ConfidenceThreshold), func() { emb.Close() }, nil
	case "zero_shot":
		if cfg.EntailModelPath == "" {
			return nil, nil, errors.New("zero_shot classifier requires LOGSIFT_ENTAIL_MODEL_PATH")
		}
		ent, err := infer.NewEntailer(cfg.EntailModelPath, cfg.VocabPath)
		if err != nil {
			return nil, nil, fmt.Errorf("zero_shot entailer: %w", err)
		}
		return classify.NewZeroShotScorer(ent), func() { ent.Close() }, nil
	case "custom":
		// Custom scorers are injected when logsift is embedded as a library;
		// the CLI has nothing to inject.
		return nil, nil, errors.New("custom classifier is only available via the library API")
	default:
		return nil, nil, fmt.Errorf("unknown classifier variant %q", cfg.Variant)
	}
}
