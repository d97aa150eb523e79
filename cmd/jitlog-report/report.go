//nolint:wrapcheck
package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	jitlog "github.com/skiretic/voodoo-jitlog"
	"github.com/skiretic/voodoo-jitlog/internal/config"
	"github.com/skiretic/voodoo-jitlog/internal/integration/decompress"
	"github.com/skiretic/voodoo-jitlog/internal/output"
)

const outputFile = "jitlog-report.jsonl"

var (
	errInvalidArgCount = errors.New("expected exactly one argument")
	errNotDirectory    = errors.New("not a directory")
	errNoLogFiles      = errors.New("no .log files found")
)

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Scan a folder of JIT logs and write a JSONL health report",
		ArgsUsage: "<folder>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "redact-path",
				Usage: "Strip file paths from the report",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"j"},
				Usage:   "Number of concurrent workers",
				Value:   runtime.NumCPU(),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Report file path (a gzipped copy is written next to it)",
				Value:   outputFile,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML file overriding analysis thresholds",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: folder path", errInvalidArgCount)
			}

			opts := jitlog.DefaultOptions()

			if path := cmd.String("config"); path != "" {
				var err error
				if opts, err = config.Load(path); err != nil {
					return err
				}
			}

			return runReport(ctx, reportOptions{
				folder:  cmd.Args().First(),
				output:  cmd.String("output"),
				redact:  cmd.Bool("redact-path"),
				workers: max(cmd.Int("workers"), 1),
				analyze: opts,
			})
		},
	}
}

type reportOptions struct {
	folder  string
	output  string
	redact  bool
	workers int
	analyze jitlog.Options
}

func runReport(ctx context.Context, opts reportOptions) error {
	info, err := os.Stat(opts.folder)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%q: %w", opts.folder, errNotDirectory)
	}

	files, err := collectLogFiles(opts.folder)
	if err != nil {
		return fmt.Errorf("scanning folder: %w", err)
	}

	if len(files) == 0 {
		return fmt.Errorf("%q: %w", opts.folder, errNoLogFiles)
	}

	fmt.Fprintf(os.Stderr, "Found %d files to analyze (%d workers)\n", len(files), opts.workers)

	startTime := time.Now()
	results := make([]Record, len(files))

	var progress atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(opts.workers)

	for idx, filePath := range files {
		group.Go(func() error {
			results[idx] = processFile(groupCtx, filePath, opts.analyze)

			done := progress.Add(1)
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", done, len(files), filePath)

			return nil
		})
	}

	// Per-file failures are recorded, never returned.
	_ = group.Wait()

	failed, err := writeRecords(opts.output, results, opts.redact)
	if err != nil {
		return err
	}

	if err := compressFile(opts.output); err != nil {
		slog.Error("compressing report", "error", err)
	}

	elapsed := time.Since(startTime)

	var totalOpen, totalAnalyze time.Duration

	for _, record := range results {
		if record.Timing != nil {
			totalOpen += millisToDuration(record.Timing.OpenMs)
			totalAnalyze += millisToDuration(record.Timing.AnalyzeMs)
		}
	}

	fmt.Fprintf(os.Stderr, "\nDone: %d files in %s (%d failed)\n", len(files), elapsed.Truncate(time.Second), failed)
	fmt.Fprintf(os.Stderr, "Report written to %s (and %s.gz)\n", opts.output, opts.output)

	fmt.Fprintf(os.Stderr, "\n--- Timing ---\n")
	fmt.Fprintf(os.Stderr, "  Wall clock:  %s\n", elapsed.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  open:        %s (cumulative)\n", totalOpen.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  analysis:    %s (cumulative)\n", totalAnalyze.Truncate(time.Millisecond))

	if analyzed := len(files) - failed; analyzed > 0 {
		fmt.Fprintf(os.Stderr, "  avg/file:    %s\n", (totalOpen+totalAnalyze)/time.Duration(analyzed))
	}

	fmt.Fprintln(os.Stderr)

	return runDigest(os.Stdout, opts.output, "")
}

func writeRecords(path string, results []Record, redact bool) (int, error) {
	out, err := os.Create(path) //nolint:gosec // user-chosen output path
	if err != nil {
		return 0, fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	failed := 0

	for idx := range results {
		record := &results[idx]

		if record.Error != "" {
			failed++
		}

		if redact {
			record.File = ""
		}

		if err := enc.Encode(record); err != nil {
			slog.Error("writing record", "index", idx, "error", err)
		}
	}

	return failed, out.Close()
}

func processFile(ctx context.Context, filePath string, opts jitlog.Options) Record {
	fileStart := time.Now()
	timing := &RecordTiming{}
	record := Record{
		File:   filePath,
		Codec:  decompress.CodecFor(filePath).String(),
		Timing: timing,
	}

	if info, err := os.Stat(filePath); err == nil {
		record.Size = info.Size()
	}

	reader, err := decompress.Open(ctx, filePath)

	timing.OpenMs = durationMs(time.Since(fileStart))

	if err != nil {
		record.Error = fmt.Sprintf("open failed: %v", err)

		return record
	}
	defer reader.Close()

	analyzeStart := time.Now()

	result, err := jitlog.Analyze(reader, opts)

	timing.AnalyzeMs = durationMs(time.Since(analyzeStart))
	timing.TotalMs = durationMs(time.Since(fileStart))

	if err != nil {
		record.Error = fmt.Sprintf("analysis failed: %v", err)

		return record
	}

	slog.Debug("analyzed", "file", filePath, "verdict", result.Verdict, "size", humanize.IBytes(uint64(record.Size))) //nolint:gosec // sizes are positive

	record.Analysis = output.ResultToMap(result)

	return record
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func millisToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func collectLogFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if decompress.IsLogFile(path) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)

	return files, nil
}

func compressFile(path string) error {
	src, err := os.Open(path) //nolint:gosec // reading our own output file
	if err != nil {
		return err
	}
	defer src.Close()

	gzFile, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer gzFile.Close()

	gzWriter := gzip.NewWriter(gzFile)

	if _, err := io.Copy(gzWriter, src); err != nil {
		return err
	}

	return gzWriter.Close()
}
