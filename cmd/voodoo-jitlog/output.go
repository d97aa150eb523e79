//nolint:wrapcheck
package main

import (
	"fmt"
	"io"

	"github.com/farcloser/primordium/format"

	jitlog "github.com/skiretic/voodoo-jitlog"
	"github.com/skiretic/voodoo-jitlog/internal/output"
)

const formatReport = "report"

type fileInfo struct {
	path string
	size int64
}

func outputResult(w io.Writer, file fileInfo, result *jitlog.Result, formatName string, debug bool) error {
	if formatName == formatReport {
		return renderReport(w, file, result)
	}

	formatter, err := format.GetFormatter(formatName)
	if err != nil {
		return err
	}

	var meta map[string]any
	if debug {
		meta = output.ResultToMap(result)
	} else {
		meta = buildFriendlyOutput(result)
	}

	data := &format.Data{
		Object: file.path,
		Meta:   meta,
	}

	return formatter.PrintAll([]*format.Data{data}, w)
}

// buildFriendlyOutput creates a user-friendly summary of the analysis results.
func buildFriendlyOutput(result *jitlog.Result) map[string]any {
	meta := map[string]any{
		"verdict": result.Verdict.String(),
		"summary": fmt.Sprintf("%s (worst finding: %s)", result.Verdict.Description(), result.WorstStatus),
	}

	// Group findings by section, keeping display order.
	sections := make(map[string]any)

	for _, section := range jitlog.Sections {
		var lines []any

		for _, finding := range result.Findings {
			if finding.Section != section {
				continue
			}

			lines = append(lines, fmt.Sprintf("[%s] %s", finding.Status, finding.Summary))
			for _, detail := range finding.Details {
				lines = append(lines, "    "+detail)
			}
		}

		if len(lines) > 0 {
			sections[section.String()] = lines
		}
	}

	meta["findings"] = sections

	props := make(map[string]any, len(result.Summary))
	for _, row := range result.Summary {
		props[row.Label] = row.Value
	}

	meta["properties"] = props

	return meta
}
