//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	jitlog "github.com/skiretic/voodoo-jitlog"
	"github.com/skiretic/voodoo-jitlog/internal/config"
	"github.com/skiretic/voodoo-jitlog/internal/integration/decompress"
	"github.com/skiretic/voodoo-jitlog/version"
)

var (
	errInvalidArgCount = errors.New("expected exactly one argument: log file path")
	errNotRegularFile  = errors.New("not a regular file")
)

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:      version.Name(),
		Usage:     "Analyze a Voodoo ARM64 JIT debug log and produce a health report",
		Version:   version.Version() + " " + version.Commit(),
		ArgsUsage: "<logfile>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: report, console, json, markdown",
				Value:   formatReport,
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable coloured output",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML file overriding analysis thresholds",
			},
			&cli.StringFlag{
				Name:  "metrics",
				Usage: "Write report counters to this file in Prometheus text format",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Print progress to stderr while scanning",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"D"},
				Usage:   "Enable debug logging and include all raw data in structured output",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := slog.LevelInfo
			if cmd.Bool("debug") {
				level = slog.LevelDebug
			}

			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			if cmd.Bool("no-color") {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}

			return ctx, nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				fmt.Fprintf(os.Stderr, "Usage: %s [flags] <logfile>\n", cmd.Name)
				fmt.Fprintln(os.Stderr, "  Analyzes a Voodoo ARM64 JIT debug log and produces a health report.")

				return fmt.Errorf("%w: got %d", errInvalidArgCount, cmd.NArg())
			}

			filePath := cmd.Args().First()

			info, err := os.Stat(filePath)
			if err != nil {
				return fmt.Errorf("cannot access %s: %w", filePath, err)
			}

			if !info.Mode().IsRegular() {
				return fmt.Errorf("%w: %s", errNotRegularFile, filePath)
			}

			opts, err := loadOptions(cmd.String("config"))
			if err != nil {
				return err
			}

			if cmd.Bool("progress") {
				opts.Progress = func(lines uint64) {
					fmt.Fprintf(os.Stderr, "  Scanned %s lines...\n", humanize.Comma(int64(lines))) //nolint:gosec // line counts fit
				}
			}

			reader, err := decompress.Open(ctx, filePath)
			if err != nil {
				return err
			}
			defer reader.Close()

			result, err := jitlog.Analyze(reader, opts)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if metricsPath := cmd.String("metrics"); metricsPath != "" {
				if err = writeMetrics(metricsPath, filePath, result); err != nil {
					return err
				}
			}

			return outputResult(os.Stdout, fileInfo{path: filePath, size: info.Size()}, result,
				cmd.String("format"), cmd.Bool("debug"))
		},
	}
}

func loadOptions(path string) (jitlog.Options, error) {
	if path == "" {
		return jitlog.DefaultOptions(), nil
	}

	return config.Load(path)
}
