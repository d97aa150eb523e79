package jitlog_test

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/farcloser/primordium/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jitlog "github.com/skiretic/voodoo-jitlog"
	"github.com/skiretic/voodoo-jitlog/internal/testutils"
	"github.com/skiretic/voodoo-jitlog/internal/types"
)

func analyze(t *testing.T, log string) *jitlog.Result {
	t.Helper()

	result, err := jitlog.Analyze(strings.NewReader(log), jitlog.DefaultOptions())
	require.NoError(t, err)

	return result
}

func findings(result *jitlog.Result, section jitlog.Section) []jitlog.Finding {
	var out []jitlog.Finding

	for _, f := range result.Findings {
		if f.Section == section {
			out = append(out, f)
		}
	}

	return out
}

func hasFinding(result *jitlog.Result, status jitlog.Status, prefix string) bool {
	for _, f := range result.Findings {
		if f.Status == status && strings.HasPrefix(f.Summary, prefix) {
			return true
		}
	}

	return false
}

func summaryValue(result *jitlog.Result, label string) string {
	for _, row := range result.Summary {
		if row.Label == label {
			return row.Value
		}
	}

	return ""
}

func TestAnalyzeVerdicts(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		log  string
		want types.Verdict
	}{
		"healthy":      {testutils.HealthyLog(), types.VerdictHealthy},
		"fallbacks":    {testutils.FallbackLog(), types.VerdictFunctionalWithFallbacks},
		"warnings":     {testutils.HealthyLog() + "SIGSEGV in render thread\n", types.VerdictFunctionalWithWarnings},
		"compile only": {testutils.CompileOnlyLog(), types.VerdictCompilingNotExecuting},
		"no jit":       {testutils.NoJITLog(), types.VerdictJITNotActive},
		"empty":        {"", types.VerdictJITNotActive},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			result := analyze(t, tc.log)
			assert.Equal(t, tc.want, result.Verdict)
			assert.Equal(t, tc.want, result.Report.Verdict)
		})
	}
}

func TestAnalyzeHealthyFindings(t *testing.T) {
	t.Parallel()

	result := analyze(t, testutils.HealthyLog())

	assert.Equal(t, jitlog.StatusInfo, result.WorstStatus)
	assert.True(t, hasFinding(result, jitlog.StatusInfo, "Render threads: 2"))
	assert.True(t, hasFinding(result, jitlog.StatusOK, "Blocks compiled: 3"))
	assert.True(t, hasFinding(result, jitlog.StatusOK, "No interpreter fallbacks"))
	assert.True(t, hasFinding(result, jitlog.StatusOK, "Zero errors in 10 lines"))
	assert.True(t, hasFinding(result, jitlog.StatusOK, "Log ends cleanly"))
	assert.True(t, hasFinding(result, jitlog.StatusOK, "Pixel diversity looks realistic"))
	assert.True(t, hasFinding(result, jitlog.StatusOK, "Depth test: active (2 unique Z values)"))
	assert.True(t, hasFinding(result, jitlog.StatusInfo, "Negative iterators"))
	// Fog is never exercised by this log.
	assert.True(t, hasFinding(result, jitlog.StatusInfo, "Fog: not used"))

	assert.Empty(t, findings(result, jitlog.SectionVerification))

	// Findings are emitted in section order.
	last := jitlog.SectionConfiguration
	for _, f := range result.Findings {
		assert.GreaterOrEqual(t, f.Section, last)
		last = f.Section
	}
}

func TestAnalyzeSummaryRows(t *testing.T) {
	t.Parallel()

	result := analyze(t, testutils.FallbackLog())

	rows := make(map[string]string, len(result.Summary))
	for _, row := range result.Summary {
		rows[row.Label] = row.Value
	}

	assert.Equal(t, "4/4 successful (100%)", rows["Block compilation"])
	assert.Equal(t, "1", rows["Interp. fallbacks"])
	assert.Equal(t, "0", rows["Error count"])
	assert.Equal(t, "Clean", rows["Log termination"])
	assert.Equal(t, "None", rows["Thread interleave"])
	assert.NotContains(t, rows, "Verify mismatches")
}

func TestAnalyzeErrorFindings(t *testing.T) {
	t.Parallel()

	log := testutils.HealthyLog() + strings.Repeat("fatal: "+strings.Repeat("x", 200)+" crash\n", 12)

	result := analyze(t, log)

	var errFinding *jitlog.Finding

	for i, f := range result.Findings {
		if f.Section == jitlog.SectionErrors && f.Status == jitlog.StatusFail {
			errFinding = &result.Findings[i]
		}
	}

	require.NotNil(t, errFinding)
	assert.Equal(t, "12 error(s) found:", errFinding.Summary)
	require.Len(t, errFinding.Details, 11)
	assert.Equal(t, "... and 2 more", errFinding.Details[10])
	// Sample lines are clipped for display.
	assert.Less(t, len(errFinding.Details[0]), 140)
	assert.True(t, strings.HasPrefix(errFinding.Details[0], "Line 11: fatal: "))

	assert.Equal(t, jitlog.StatusFail, result.WorstStatus)
	assert.True(t, hasFinding(result, jitlog.StatusWarn, "Log ends with unexpected line"))
}

func TestAnalyzeNoInit(t *testing.T) {
	t.Parallel()

	log := testutils.GenerateLine(1, 0, 0, "0x1", 1, testutils.Mode{}, 1) + "\n" +
		testutils.GenerateLine(2, 1, 0, "0x2", 1, testutils.Mode{}, 1) + "\n"

	result := analyze(t, log)

	assert.True(t, hasFinding(result, jitlog.StatusInfo, "No INIT line found"))
	assert.True(t, hasFinding(result, jitlog.StatusInfo, "Render threads (inferred from odd_even): 2"))
	assert.True(t, hasFinding(result, jitlog.StatusFail, "Framebuffer write: no POST entries"))
}

func TestAnalyzeCRLFAndInvalidUTF8(t *testing.T) {
	t.Parallel()

	log := strings.ReplaceAll(testutils.HealthyLog(), "\n", "\r\n") + "garbage \xff\xfe bytes\r\n"

	result := analyze(t, log)

	assert.Equal(t, uint64(11), result.Report.TotalLines)
	assert.Equal(t, uint64(3), result.Report.Compilation.Blocks)
	assert.Equal(t, "garbage \uFFFD\uFFFD bytes", result.Report.Errors.LastLine)
}

func TestAnalyzeNoTrailingNewline(t *testing.T) {
	t.Parallel()

	log := strings.TrimSuffix(testutils.HealthyLog(), "\n")

	result := analyze(t, log)
	assert.Equal(t, uint64(10), result.Report.TotalLines)
	assert.True(t, result.Report.Errors.EndsCleanly)
}

func TestAnalyzeReadFailure(t *testing.T) {
	t.Parallel()

	_, err := jitlog.Analyze(iotest.ErrReader(errors.New("disk gone")), jitlog.DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrReadFailure)
}

func TestAnalyzeProgress(t *testing.T) {
	t.Parallel()

	var calls []uint64

	opts := jitlog.DefaultOptions()
	opts.ProgressInterval = 4
	opts.Progress = func(lines uint64) {
		calls = append(calls, lines)
	}

	_, err := jitlog.Analyze(strings.NewReader(testutils.HealthyLog()), opts)
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 8}, calls)
}

func TestAnalyzeZeroOptionsUseDefaults(t *testing.T) {
	t.Parallel()

	log := strings.Repeat("abort\n", 30)

	result, err := jitlog.Analyze(strings.NewReader(log), jitlog.Options{})
	require.NoError(t, err)
	assert.Len(t, result.Report.Errors.Samples, jitlog.DefaultOptions().ErrorSamples)
	assert.Equal(t, uint64(30), result.Report.Errors.Count)
}

func TestAnalyzeVerification(t *testing.T) {
	t.Parallel()

	log := testutils.HealthyLog() +
		"VERIFY MISMATCH y=5 (2/12 pixels differ) fbzMode=0x00000100 fogMode=0x00000001\n" +
		"  pixel[2]: dR=+1 dG=0 dB=0\n"

	result := analyze(t, log)

	assert.Equal(t, types.VerdictFunctionalWithWarnings, result.Verdict)
	assert.NotEmpty(t, findings(result, jitlog.SectionVerification))
	assert.True(t, hasFinding(result, jitlog.StatusFail, "Verify mismatches: 1"))

	// 2 of the 410 posted pixels differ.
	assert.True(t, hasFinding(result, jitlog.StatusOK, "Match rate: 99.51% (410 total pixels)"))
	assert.Equal(t, "1 (99.51% match)", summaryValue(result, "Verify mismatches"))
}

func TestAnalyzeVerificationLowMatchRate(t *testing.T) {
	t.Parallel()

	log := testutils.HealthyLog() +
		"VERIFY MISMATCH y=5 (60/400 pixels differ) fogMode=0x00000001\n" +
		"VERIFY MISMATCH y=6 (40/400 pixels differ) fogMode=0x00000001\n"

	result := analyze(t, log)

	assert.True(t, hasFinding(result, jitlog.StatusFail, "Match rate: 75.61% (410 total pixels)"))
	assert.Equal(t, "2 (75.61% match)", summaryValue(result, "Verify mismatches"))
}

func TestAnalyzeVerificationWithoutPixels(t *testing.T) {
	t.Parallel()

	result := analyze(t, testutils.CompileOnlyLog()+
		"VERIFY MISMATCH y=5 (3/64 pixels differ) fogMode=0x00000001\n")

	assert.False(t, hasFinding(result, jitlog.StatusOK, "Match rate"))
	assert.False(t, hasFinding(result, jitlog.StatusFail, "Match rate"))
	assert.Equal(t, "1", summaryValue(result, "Verify mismatches"))
}

func TestAnalyzeJITWarnings(t *testing.T) {
	t.Parallel()

	result := analyze(t, testutils.HealthyLog())
	assert.Empty(t, summaryValue(result, "JIT warnings"))

	log := testutils.HealthyLog() +
		"VOODOO JIT: WARN emit buffer nearly full\n" +
		"VOODOO JIT: WARN unsupported fog mode, using interpreter\n" +
		"VOODOO JIT: WARN emit buffer nearly full\n"

	result = analyze(t, log)

	assert.Equal(t, uint64(3), result.Report.Errors.JITWarnings)
	assert.True(t, hasFinding(result, jitlog.StatusWarn, "JIT warnings: 3"))
	assert.Equal(t, "3", summaryValue(result, "JIT warnings"))

	// The row sits right after the fallback count.
	require.Greater(t, len(result.Summary), 2)
	assert.Equal(t, "Interp. fallbacks", result.Summary[1].Label)
	assert.Equal(t, "JIT warnings", result.Summary[2].Label)
}

func TestStatusAndSectionStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "PIPELINE COVERAGE", jitlog.SectionCoverage.String())
	assert.Equal(t, "WARN", jitlog.StatusWarn.String())
	assert.Len(t, jitlog.Sections, 8)
}
