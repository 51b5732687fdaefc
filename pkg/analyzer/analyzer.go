// Package analyzer drives a run: it reads log files line by line, classifies
// each line and feeds the entries to an aggregator.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/lixenwraith/log"
	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/convlog/pkg/aggregate"
	"github.com/ccollicutt/convlog/pkg/parser"
)

// Analyzer runs the classifier and aggregator over a set of files.
type Analyzer struct {
	classifier   parser.Classifier
	encoding     string
	decoder      *parser.Decoder
	decodePolicy DecodePolicy
	filePolicy   FilePolicy
	detailed     bool
	workers      int
	logger       *log.Logger
	filename     func(path string) string
	progress     ProgressFunc
}

// ProgressFunc is called before each file is processed. index is 0-based.
type ProgressFunc func(path string, index, total int)

// Option configures analyzer behavior.
type Option func(*Analyzer)

// WithDetailed retains every entry, not just counts.
func WithDetailed(v bool) Option {
	return func(a *Analyzer) {
		a.detailed = v
	}
}

// WithClassifier replaces the default keyword classifier.
func WithClassifier(c parser.Classifier) Option {
	return func(a *Analyzer) {
		if c != nil {
			a.classifier = c
		}
	}
}

// WithEncoding sets the text encoding of the input files.
func WithEncoding(name string) Option {
	return func(a *Analyzer) {
		a.encoding = name
	}
}

// WithDecodePolicy sets what happens to lines that cannot be decoded.
func WithDecodePolicy(p DecodePolicy) Option {
	return func(a *Analyzer) {
		if p != "" {
			a.decodePolicy = p
		}
	}
}

// WithFilePolicy sets what happens when a file cannot be read.
func WithFilePolicy(p FilePolicy) Option {
	return func(a *Analyzer) {
		if p != "" {
			a.filePolicy = p
		}
	}
}

// WithWorkers processes up to n files concurrently. Each worker owns a
// private aggregator and results are merged in file order, so a completed run
// is identical to a sequential one. When a file aborts the run, files still
// being read are dropped rather than counted partially.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithLogger sets the diagnostic logger. A nil logger disables logging.
func WithLogger(l *log.Logger) Option {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// WithFilenameFunc sets how a file path is turned into the filename recorded
// on entries. The default is the base name.
func WithFilenameFunc(fn func(path string) string) Option {
	return func(a *Analyzer) {
		if fn != nil {
			a.filename = fn
		}
	}
}

// WithProgress registers a callback invoked as each file starts.
func WithProgress(fn ProgressFunc) Option {
	return func(a *Analyzer) {
		a.progress = fn
	}
}

// New creates an analyzer. It fails on an unknown encoding or policy.
func New(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		classifier:   parser.NewKeywordClassifier(),
		encoding:     parser.DefaultEncoding,
		decodePolicy: DecodeReplace,
		filePolicy:   FileSkip,
		workers:      1,
		filename:     filepath.Base,
	}

	for _, opt := range opts {
		opt(a)
	}

	if err := a.decodePolicy.Validate(); err != nil {
		return nil, err
	}
	if err := a.filePolicy.Validate(); err != nil {
		return nil, err
	}

	dec, err := parser.NewDecoder(a.encoding, a.decodePolicy != DecodeReplace)
	if err != nil {
		return nil, fmt.Errorf("configuring decoder: %w", err)
	}
	a.decoder = dec

	return a, nil
}

// Detailed reports whether entries are retained.
func (a *Analyzer) Detailed() bool {
	return a.detailed
}

// Analyze processes files in order and returns the aggregated result.
//
// Per-file failures are recorded in the metadata and skipped unless the file
// policy is abort. When ctx is cancelled, or the run is aborted, the partial
// result gathered so far is returned together with the error.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*Result, error) {
	result := &Result{
		Metadata: Metadata{
			Encoding:  a.decoder.Name(),
			Detailed:  a.detailed,
			Workers:   a.workers,
			StartTime: time.Now(),
		},
	}

	agg := aggregate.New(a.detailed)

	var err error
	if a.workers > 1 && len(files) > 1 {
		err = a.analyzeParallel(ctx, files, agg, &result.Metadata)
	} else {
		err = a.analyzeSequential(ctx, files, agg, &result.Metadata)
	}

	result.Stats = agg.Snapshot()
	result.Metadata.EndTime = time.Now()

	if err != nil {
		if isCancellation(err) {
			result.Metadata.Interrupted = true
			a.logWarn("Analysis interrupted", "files_done", len(result.Metadata.Sources), "entries", result.Stats.Total)
		}
		return result, err
	}

	a.logInfo("Analysis complete",
		"files", len(result.Metadata.Sources),
		"skipped", len(result.Metadata.Skipped),
		"lines", result.Metadata.LinesRead,
		"entries", result.Stats.Total)

	return result, nil
}

func (a *Analyzer) analyzeSequential(ctx context.Context, files []string, agg *aggregate.Aggregator, meta *Metadata) error {
	for i, path := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if a.progress != nil {
			a.progress(path, i, len(files))
		}

		// Any file may be rejected half way, so it is staged privately.
		staged := aggregate.New(a.detailed)
		stats, err := a.analyzeFile(ctx, path, staged)
		meta.LinesRead += stats.LinesRead
		meta.LinesSkipped += stats.LinesSkipped
		meta.LinesTruncated += stats.LinesTruncated

		if keepPartial(err) {
			agg.Absorb(staged.Snapshot())
		}

		if err := a.handleFileResult(path, err, meta); err != nil {
			return err
		}
	}
	return nil
}

type fileOutcome struct {
	stats  *aggregate.Stats
	source SourceStats
	err    error
}

func (a *Analyzer) analyzeParallel(ctx context.Context, files []string, agg *aggregate.Aggregator, meta *Metadata) error {
	outcomes := make([]fileOutcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i, path := range files {
		if a.progress != nil {
			a.progress(path, i, len(files))
		}

		g.Go(func() error {
			private := aggregate.New(a.detailed)
			stats, err := a.analyzeFile(gctx, path, private)
			outcomes[i] = fileOutcome{stats: private.Snapshot(), source: stats, err: err}

			if err != nil && (a.filePolicy == FileAbort || errors.Is(err, ErrAborted)) {
				return err
			}
			return nil
		})
	}

	groupErr := g.Wait()
	interrupted := ctx.Err() != nil

	// Fold results in file order so the merged statistics match a
	// sequential run.
	for i, path := range files {
		out := outcomes[i]
		if out.stats == nil {
			continue
		}
		if isCancellation(out.err) && !interrupted {
			// Stopped because another file aborted the run.
			continue
		}
		meta.LinesRead += out.source.LinesRead
		meta.LinesSkipped += out.source.LinesSkipped
		meta.LinesTruncated += out.source.LinesTruncated

		if keepPartial(out.err) {
			agg.Absorb(out.stats)
		}

		if err := a.handleFileResult(path, out.err, meta); err != nil {
			if groupErr == nil {
				groupErr = err
			}
			break
		}
	}

	if groupErr == nil {
		groupErr = ctx.Err()
	}
	return groupErr
}

// handleFileResult records the outcome of one file and returns an error only
// when the run must stop.
func (a *Analyzer) handleFileResult(path string, err error, meta *Metadata) error {
	if err == nil {
		meta.Sources = append(meta.Sources, path)
		return nil
	}

	if isCancellation(err) {
		// The file was read partially; its entries are already counted.
		meta.Sources = append(meta.Sources, path)
		return err
	}

	fileErr := &FileError{Path: path, Err: err}
	meta.Skipped = append(meta.Skipped, *fileErr)

	if errors.Is(err, ErrAborted) || a.filePolicy == FileAbort {
		a.logError("Aborting analysis", "file", path, "error", err)
		return fileErr
	}

	a.logWarn("Skipping file", "file", path, "error", err)
	return nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// keepPartial reports whether the entries read from a file that ended with
// err belong in the result. Interrupted files keep what was read; failed
// files are listed as skipped and contribute nothing.
func keepPartial(err error) bool {
	return err == nil || isCancellation(err)
}

// analyzeFile opens path and feeds its lines to agg.
func (a *Analyzer) analyzeFile(ctx context.Context, path string, agg *aggregate.Aggregator) (SourceStats, error) {
	src, err := parser.OpenFile(path, a.decoder)
	if err != nil {
		return SourceStats{}, err
	}
	defer src.Close()

	a.logDebug("Processing file", "file", path)
	return a.AnalyzeSource(ctx, src, a.filename(path), agg)
}

// AnalyzeSource feeds every line of src to agg, tagging entries with
// filename. Undecodable lines are handled according to the decode policy.
func (a *Analyzer) AnalyzeSource(ctx context.Context, src parser.LineSource, filename string, agg *aggregate.Aggregator) (SourceStats, error) {
	var stats SourceStats

	for {
		line, err := src.Next(ctx)
		if err == io.EOF {
			return stats, nil
		}

		var decodeErr *parser.DecodeError
		if errors.As(err, &decodeErr) {
			stats.LinesRead++
			switch a.decodePolicy {
			case DecodeSkipLine:
				stats.LinesSkipped++
				a.logDebug("Skipping undecodable line", "file", decodeErr.Source, "line", decodeErr.LineNum)
				continue
			case DecodeAbort:
				return stats, fmt.Errorf("%w: %w", ErrAborted, decodeErr)
			default:
				return stats, decodeErr
			}
		}
		if err != nil {
			return stats, err
		}

		stats.LinesRead++
		if line.Truncated {
			stats.LinesTruncated++
			a.logWarn("Line too long, classifying its beginning only",
				"file", line.Source, "line", line.LineNum, "max_bytes", parser.MaxLineSize)
		}
		if entry, ok := a.classifier.Classify(line.Content, filename, line.LineNum); ok {
			agg.Accept(entry)
		}
	}
}

func (a *Analyzer) logDebug(args ...any) {
	if a.logger != nil {
		a.logger.Debug(append([]any{"msg"}, args...)...)
	}
}

func (a *Analyzer) logInfo(args ...any) {
	if a.logger != nil {
		a.logger.Info(append([]any{"msg"}, args...)...)
	}
}

func (a *Analyzer) logWarn(args ...any) {
	if a.logger != nil {
		a.logger.Warn(append([]any{"msg"}, args...)...)
	}
}

func (a *Analyzer) logError(args ...any) {
	if a.logger != nil {
		a.logger.Error(append([]any{"msg"}, args...)...)
	}
}
