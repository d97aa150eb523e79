//nolint:wrapcheck
package jitlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/farcloser/primordium/fault"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/skiretic/voodoo-jitlog/internal/audit/aggregate"
	"github.com/skiretic/voodoo-jitlog/internal/audit/classify"
	"github.com/skiretic/voodoo-jitlog/internal/types"
)

/*
Usage:

result, err := jitlog.Analyze(file, jitlog.DefaultOptions())
if result.Verdict != types.VerdictHealthy {
    fmt.Println("JIT is degraded")
}

// Iterate findings
for _, finding := range result.Findings {
    fmt.Printf("[%s] %s: %s\n", finding.Status, finding.Section, finding.Summary)
}

// Inspect raw data
fmt.Printf("Unique configs: %d\n", result.Report.Coverage.UniqueConfigs)

*/

// Section groups findings the way the report is laid out.
type Section int

const (
	SectionConfiguration Section = iota
	SectionCompilation
	SectionErrors
	SectionExecution
	SectionCoverage
	SectionPixelOutput
	SectionIterators
	SectionVerification
)

// Sections lists every section in display order.
//
//nolint:gochecknoglobals // effectively const
var Sections = []Section{
	SectionConfiguration,
	SectionCompilation,
	SectionErrors,
	SectionExecution,
	SectionCoverage,
	SectionPixelOutput,
	SectionIterators,
	SectionVerification,
}

func (s Section) String() string {
	switch s {
	case SectionConfiguration:
		return "CONFIGURATION"
	case SectionCompilation:
		return "COMPILATION"
	case SectionErrors:
		return "ERRORS"
	case SectionExecution:
		return "EXECUTION"
	case SectionCoverage:
		return "PIPELINE COVERAGE"
	case SectionPixelOutput:
		return "PIXEL OUTPUT"
	case SectionIterators:
		return "ITERATORS"
	case SectionVerification:
		return "VERIFICATION"
	}

	return "UNKNOWN"
}

// Status is the outcome attached to a finding, ordered from best to worst.
type Status int

const (
	StatusOK Status = iota
	StatusInfo
	StatusWarn
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusInfo:
		return "INFO"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	}

	return "UNKNOWN"
}

// Finding is one line of evidence in the report.
type Finding struct {
	Section Section
	Status  Status
	Summary string
	Details []string // indented continuation lines
}

// SummaryRow is one label/value pair of the summary table.
type SummaryRow struct {
	Label string
	Value string
}

// Result contains all analysis results.
type Result struct {
	// High-level findings, in section order.
	Findings []Finding

	// Summary table rows.
	Summary []SummaryRow

	// Overall verdict and the worst finding status.
	Verdict     types.Verdict
	WorstStatus Status

	// Raw aggregated values.
	Report types.Report
}

// Analyze streams r once, line by line, and returns the health report.
// Malformed UTF-8 is replaced, never fatal. Only a failing reader aborts the analysis.
func Analyze(r io.Reader, opts Options) (*Result, error) {
	state, err := Scan(r, opts)
	if err != nil {
		return nil, err
	}

	return Interpret(state, opts), nil
}

// Scan folds every line of r into a fresh aggregation state.
func Scan(r io.Reader, opts Options) (*aggregate.State, error) {
	applyDefaults(&opts)

	state := aggregate.New(opts.ErrorSamples)
	reader := bufio.NewReaderSize(transform.NewReader(r, unicode.UTF8.NewDecoder()), 1<<20)

	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\r\n")
			state.Fold(line, classify.Classify(line, state.InitAccepted()))

			if opts.Progress != nil && state.Lines()%opts.ProgressInterval == 0 {
				opts.Progress(state.Lines())
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
		}
	}

	return state, nil
}

// Interpret derives the report, findings and verdict from a finished state.
func Interpret(state *aggregate.State, opts Options) *Result {
	applyDefaults(&opts)

	result := &Result{
		Report: state.Summarize(aggregate.SummaryOptions{
			RealisticDiversity: opts.RealisticPixelDiversity,
			PixelSample:        opts.PixelSample,
		}),
	}

	result.Verdict = result.Report.Verdict

	interpretResults(result)

	for _, f := range result.Findings {
		result.WorstStatus = max(result.WorstStatus, f.Status)
	}

	return result
}
