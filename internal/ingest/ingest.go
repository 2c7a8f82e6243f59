// Package ingest reads raw log files and normalizes them into timestamped
// records. Lines whose timestamp cannot be parsed are routed to a discard
// sink rather than dropped silently; downstream stages only ever see
// records with a valid timestamp.
package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/larchwood/logsift/internal/config"
	"github.com/larchwood/logsift/internal/model"
)

// ErrNoUsableInput signals that no file yielded a single parseable record.
var ErrNoUsableInput = errors.New("ingest: no usable input")

const (
	// maxLineBytes caps how much of a single line is kept in memory.
	// Oversized lines are routed to the discard sink, never aborting
	// the run.
	maxLineBytes = 1024 * 1024
	// discardPreviewBytes bounds the raw text recorded for an
	// oversized line's discard entry.
	discardPreviewBytes = 256
)

var (
	logFilePattern = regexp.MustCompile(`\.log(\.\d+)?$`)
	txtFilePattern = regexp.MustCompile(`\.txt(\.\d+)?$`)
)

var archiveExts = map[string]bool{
	".zip": true, ".tar": true, ".gz": true, ".tgz": true,
	".bz2": true, ".xz": true, ".rar": true, ".7z": true,
}

// Result is the output of one ingestion pass.
type Result struct {
	Records     []model.LogRecord   // retained, in-range, timestamp order not guaranteed
	Discards    []model.DiscardEntry
	Files       []string            // files read, in discovery order
	FilteredOut int                 // valid records excluded by the time-range filter
	Archives    int                 // archive files skipped during discovery
}

// Ingestor discovers input files and normalizes their lines.
type Ingestor struct {
	cfg    config.IngestConfig
	ext    *extractor
	logger *slog.Logger
}

// New builds an Ingestor. patterns may be empty to use the built-in
// timestamp table.
func New(cfg config.IngestConfig, patterns []config.TimestampPattern, logger *slog.Logger) (*Ingestor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ext, err := newExtractor(patterns, time.Now().Year())
	if err != nil {
		return nil, err
	}
	return &Ingestor{cfg: cfg, ext: ext, logger: logger}, nil
}

// Run discovers files under the given paths, reads them in parallel, and
// applies the time-range filter. Output ordering is deterministic: records
// appear in source discovery order, then line order within each source,
// regardless of how many readers ran concurrently.
func (in *Ingestor) Run(ctx context.Context, paths []string, timeRange string) (*Result, error) {
	files, archives, err := in.discover(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		in.logger.Error("no readable input files", slog.Int("archives_skipped", archives))
		return &Result{Archives: archives}, ErrNoUsableInput
	}

	perFile := make([][]model.LogRecord, len(files))
	perFileDiscards := make([][]model.DiscardEntry, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			recs, disc, err := in.readFile(path)
			if err != nil {
				return err
			}
			perFile[i] = recs
			perFileDiscards[i] = disc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	res := &Result{Files: files, Archives: archives}
	seq := 0
	for i := range files {
		for _, r := range perFile[i] {
			r.Seq = seq
			seq++
			res.Records = append(res.Records, r)
		}
		res.Discards = append(res.Discards, perFileDiscards[i]...)
	}

	if len(res.Records) == 0 {
		in.logger.Error("all lines unparseable",
			slog.Int("files", len(files)), slog.Int("discarded", len(res.Discards)))
		return res, ErrNoUsableInput
	}

	before := len(res.Records)
	res.Records = FilterRange(res.Records, timeRange)
	res.FilteredOut = before - len(res.Records)

	in.logger.Info("ingestion complete",
		slog.Int("files", len(files)),
		slog.Int("records", len(res.Records)),
		slog.Int("discarded", len(res.Discards)),
		slog.Int("filtered_out", res.FilteredOut))
	return res, nil
}

// discover expands paths into an ordered list of readable files. Explicitly
// listed files are accepted as given; directory walks apply the file-type
// filters. Archives are counted and skipped.
func (in *Ingestor) discover(paths []string) (files []string, archives int, err error) {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, 0, fmt.Errorf("ingest: stat %s: %w", p, err)
		}
		if !info.IsDir() {
			if isArchive(p) {
				archives++
				continue
			}
			files = append(files, p)
			continue
		}

		var found []string
		walkErr := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if isArchive(path) {
				archives++
				return nil
			}
			if in.wantFile(path) {
				found = append(found, path)
			}
			return nil
		})
		if walkErr != nil {
			return nil, 0, fmt.Errorf("ingest: walk %s: %w", p, walkErr)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, archives, nil
}

func (in *Ingestor) wantFile(path string) bool {
	name := filepath.Base(path)
	if in.cfg.ProcessLogFiles && logFilePattern.MatchString(name) {
		return true
	}
	if in.cfg.ProcessTxtFiles && txtFilePattern.MatchString(name) {
		return true
	}
	return false
}

func isArchive(path string) bool {
	return archiveExts[strings.ToLower(filepath.Ext(path))]
}

// readFile normalizes one file. Only lines with a parseable timestamp
// become records; the rest are returned as discard entries. Lines over
// maxLineBytes are discarded with a truncated preview.
func (in *Ingestor) readFile(path string) ([]model.LogRecord, []model.DiscardEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var records []model.LogRecord
	var discards []model.DiscardEntry

	r := bufio.NewReaderSize(f, 64*1024)
	lineNo := 0
	for {
		raw, tooLong, readErr := readLine(r)
		if readErr != nil && readErr != io.EOF {
			return nil, nil, fmt.Errorf("read %s: %w", path, readErr)
		}
		if len(raw) == 0 && readErr == io.EOF {
			break
		}
		lineNo++
		line := string(raw)
		switch {
		case tooLong:
			preview := line
			if len(preview) > discardPreviewBytes {
				preview = preview[:discardPreviewBytes]
			}
			discards = append(discards, model.DiscardEntry{
				Source:     path,
				LineNumber: lineNo,
				Raw:        preview,
				Reason:     fmt.Sprintf("line exceeds %d bytes", maxLineBytes),
			})
		case strings.TrimSpace(line) == "":
		default:
			ts, body, ok := in.normalizeLine(line)
			if !ok {
				discards = append(discards, model.DiscardEntry{
					Source:     path,
					LineNumber: lineNo,
					Raw:        line,
					Reason:     "no timestamp pattern matched",
				})
				break
			}
			records = append(records, model.LogRecord{
				Source:     path,
				LineNumber: lineNo,
				Timestamp:  ts,
				Raw:        line,
				Body:       body,
			})
		}
		if readErr == io.EOF {
			break
		}
	}
	return records, discards, nil
}

// readLine reads one logical line of any length. Content beyond
// maxLineBytes is consumed and dropped, with tooLong reporting the
// truncation. Returns io.EOF alongside the final line of a file with no
// trailing newline.
func readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, isPrefix, err := r.ReadLine()
		if len(chunk) > 0 && !tooLong {
			buf = append(buf, chunk...)
			if len(buf) > maxLineBytes {
				buf = buf[:maxLineBytes]
				tooLong = true
			}
		}
		if err != nil {
			return buf, tooLong, err
		}
		if !isPrefix {
			return buf, tooLong, nil
		}
	}
}

// normalizeLine extracts (timestamp, body) from a raw line. JSON object
// lines have their configured time/message fields pulled out first; plain
// lines go through the prefix pattern table.
func (in *Ingestor) normalizeLine(line string) (time.Time, string, bool) {
	if tsText, body, ok := tryJSONLine(line, in.cfg.JSONTimeFields, in.cfg.JSONMessageFields); ok {
		if ts, _, ok := in.ext.extract(tsText); ok {
			return ts, body, true
		}
		return time.Time{}, "", false
	}
	return in.ext.extract(line)
}
