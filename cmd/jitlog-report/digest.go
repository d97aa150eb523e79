package main

import (
	"bufio"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/farcloser/primordium/fault"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"

	"github.com/skiretic/voodoo-jitlog/internal/types"
)

var errUnknownVerdict = errors.New("unknown verdict")

func digestCommand() *cli.Command {
	return &cli.Command{
		Name:      "digest",
		Usage:     "Produce a summary digest from a jitlog JSONL report",
		ArgsUsage: "<report.jsonl>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "verdict",
				Usage: "Show the files that reached a specific verdict (e.g., HEALTHY, JIT_NOT_ACTIVE)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: path to report.jsonl", errInvalidArgCount)
			}

			return runDigest(os.Stdout, cmd.Args().First(), cmd.String("verdict"))
		},
	}
}

func runDigest(w io.Writer, reportPath, verdictFilter string) error {
	var filter types.Verdict

	if verdictFilter != "" {
		var ok bool
		if filter, ok = types.ParseVerdict(verdictFilter); !ok {
			return fmt.Errorf("%w: %q", errUnknownVerdict, verdictFilter)
		}
	}

	records, err := readRecords(reportPath)
	if err != nil {
		return err
	}

	printDigest(w, records)

	if verdictFilter != "" {
		printVerdictDetail(w, records, filter)
	}

	return nil
}

func readRecords(path string) ([]digestRecord, error) {
	file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified report files
	if err != nil {
		return nil, fmt.Errorf("%w: opening report: %w", fault.ErrReadFailure, err)
	}
	defer file.Close()

	var records []digestRecord

	parsed := 0
	scanner := bufio.NewScanner(file)

	const maxLineSize = 16 * 1024 * 1024
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineSize)

	for scanner.Scan() {
		var rec digestRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			records = append(records, digestRecord{Error: "parse error"})

			continue
		}

		parsed++

		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading report: %w", fault.ErrReadFailure, err)
	}

	if len(records) > 0 && parsed == 0 {
		return nil, fmt.Errorf("%w: %s", fault.ErrInvalidJSON, path)
	}

	return records, nil
}

func printDigest(w io.Writer, records []digestRecord) {
	total := len(records)
	failed := 0
	stats := map[string]*verdictBreakdown{}

	for _, verdict := range types.Verdicts {
		stats[verdict.String()] = &verdictBreakdown{Verdict: verdict.String()}
	}

	var lines, errorCount, fallbacks uint64

	for _, rec := range records {
		if rec.Error != "" || rec.Analysis == nil {
			failed++

			continue
		}

		breakdown, ok := stats[rec.Analysis.Summary.Verdict]
		if !ok {
			breakdown = &verdictBreakdown{Verdict: rec.Analysis.Summary.Verdict}
			stats[breakdown.Verdict] = breakdown
		}

		breakdown.Files++
		breakdown.Lines += rec.Analysis.Summary.TotalLines
		breakdown.Errors += rec.Analysis.Errors.Count
		breakdown.Fallbacks += rec.Analysis.Compilation.Fallbacks.Total

		lines += rec.Analysis.Summary.TotalLines
		errorCount += rec.Analysis.Errors.Count
		fallbacks += rec.Analysis.Compilation.Fallbacks.Total
	}

	fmt.Fprintln(w, "=== JIT Log Report Digest ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total logs:    %d\n", total)
	fmt.Fprintf(w, "Failed:        %d\n", failed)
	fmt.Fprintf(w, "Analyzed:      %d\n", total-failed)
	fmt.Fprintf(w, "Lines:         %s\n", comma(lines))
	fmt.Fprintf(w, "Errors:        %s\n", comma(errorCount))
	fmt.Fprintf(w, "Fallbacks:     %s\n", comma(fallbacks))
	fmt.Fprintln(w)

	breakdowns := make([]*verdictBreakdown, 0, len(stats))
	for _, bd := range stats {
		breakdowns = append(breakdowns, bd)
	}

	// Worst verdicts first; unknown verdict names sort last.
	slices.SortFunc(breakdowns, func(a, b *verdictBreakdown) int {
		return cmp.Compare(verdictRank(a.Verdict), verdictRank(b.Verdict))
	})

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Verdict", "Logs", "Lines", "Errors", "Fallbacks"})

	for _, bd := range breakdowns {
		tbl.AppendRow(table.Row{bd.Verdict, bd.Files, comma(bd.Lines), comma(bd.Errors), comma(bd.Fallbacks)})
	}

	tbl.AppendFooter(table.Row{"Total", total - failed, comma(lines), comma(errorCount), comma(fallbacks)})

	fmt.Fprintln(w, tbl.Render())
}

func printVerdictDetail(w io.Writer, records []digestRecord, verdict types.Verdict) {
	fmt.Fprintln(w)

	var matches []digestRecord

	for _, rec := range records {
		if rec.Error != "" || rec.Analysis == nil || rec.Analysis.Summary.Verdict != verdict.String() {
			continue
		}

		if rec.File == "" {
			rec.File = "(redacted)"
		}

		matches = append(matches, rec)
	}

	if len(matches) == 0 {
		fmt.Fprintf(w, "No logs reached %s\n", verdict)

		return
	}

	// Noisiest logs first.
	slices.SortStableFunc(matches, func(a, b digestRecord) int {
		return cmp.Compare(b.Analysis.Errors.Count+b.Analysis.Compilation.Fallbacks.Total,
			a.Analysis.Errors.Count+a.Analysis.Compilation.Fallbacks.Total)
	})

	fmt.Fprintf(w, "=== %s: %d logs ===\n\n", verdict.Description(), len(matches))

	for _, rec := range matches {
		fmt.Fprintf(w, "  %s (%s)\n", rec.File, humanize.IBytes(uint64(max(rec.Size, 0))))
		fmt.Fprintf(w, "    lines: %s  blocks: %s  posts: %s\n",
			comma(rec.Analysis.Summary.TotalLines),
			comma(rec.Analysis.Compilation.Blocks),
			comma(rec.Analysis.Execution.Posts))
		fmt.Fprintf(w, "    errors: %s  fallbacks: %s  worst finding: %s\n",
			comma(rec.Analysis.Errors.Count),
			comma(rec.Analysis.Compilation.Fallbacks.Total),
			rec.Analysis.Summary.WorstStatus)
		fmt.Fprintln(w)
	}
}

func verdictRank(name string) int {
	if verdict, ok := types.ParseVerdict(name); ok {
		return int(verdict)
	}

	return len(types.Verdicts)
}

func comma(v uint64) string {
	return humanize.Comma(int64(v)) //nolint:gosec // counts stay far below 2^63
}
