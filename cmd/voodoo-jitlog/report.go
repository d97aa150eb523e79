package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	jitlog "github.com/skiretic/voodoo-jitlog"
	"github.com/skiretic/voodoo-jitlog/internal/types"
)

const ruleWidth = 60

//nolint:gochecknoglobals // effectively const
var statusColors = map[jitlog.Status]color.Attribute{
	jitlog.StatusOK:   color.FgGreen,
	jitlog.StatusInfo: color.FgCyan,
	jitlog.StatusWarn: color.FgYellow,
	jitlog.StatusFail: color.FgRed,
}

// renderReport prints the sectioned health report with a summary table and the verdict line.
func renderReport(w io.Writer, file fileInfo, result *jitlog.Result) error {
	bold := color.New(color.Bold)

	fmt.Fprintln(w)
	bold.Fprintln(w, "Voodoo ARM64 JIT Log Analyzer")
	fmt.Fprintln(w, strings.Repeat("─", ruleWidth))
	fmt.Fprintf(w, "File: %s (%s)\n", file.path, humanize.IBytes(uint64(file.size))) //nolint:gosec // file sizes are positive
	fmt.Fprintf(w, "  Scanned %s lines.\n\n", humanize.Comma(int64(result.Report.TotalLines)))   //nolint:gosec // line counts fit

	for _, section := range jitlog.Sections {
		var findings []jitlog.Finding

		for _, finding := range result.Findings {
			if finding.Section == section {
				findings = append(findings, finding)
			}
		}

		if len(findings) == 0 {
			continue
		}

		bold.Fprintf(w, "═══ %s ═══\n", section)

		for _, finding := range findings {
			color.New(statusColors[finding.Status]).Fprintf(w, "%-4s", finding.Status)
			fmt.Fprintf(w, "     %s\n", finding.Summary)

			for _, detail := range finding.Details {
				fmt.Fprintf(w, "             %s\n", detail)
			}
		}

		fmt.Fprintln(w)
	}

	bold.Fprintln(w, "═══ SUMMARY ═══")
	fmt.Fprintln(w)

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)

	for _, row := range result.Summary {
		tbl.AppendRow(table.Row{row.Label, row.Value})
	}

	fmt.Fprintln(w, tbl.Render())
	fmt.Fprintln(w)

	color.New(verdictColor(result.Verdict), color.Bold).Fprintf(w, "  VERDICT: %s\n", result.Verdict.Description())
	fmt.Fprintln(w)

	return nil
}

func verdictColor(verdict types.Verdict) color.Attribute {
	switch verdict {
	case types.VerdictHealthy:
		return color.FgGreen
	case types.VerdictFunctionalWithFallbacks, types.VerdictFunctionalWithWarnings:
		return color.FgYellow
	case types.VerdictCompilingNotExecuting, types.VerdictJITNotActive:
		return color.FgRed
	}

	return color.FgRed
}
