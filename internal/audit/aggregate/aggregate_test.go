package aggregate_test

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skiretic/voodoo-jitlog/internal/audit/aggregate"
	"github.com/skiretic/voodoo-jitlog/internal/audit/classify"
	"github.com/skiretic/voodoo-jitlog/internal/testutils"
	"github.com/skiretic/voodoo-jitlog/internal/types"
)

//nolint:gochecknoglobals
var summaryOpts = aggregate.SummaryOptions{RealisticDiversity: 10, PixelSample: 16}

func fold(lines ...string) *aggregate.State {
	state := aggregate.New(10)
	feed(state, lines...)

	return state
}

func feed(state *aggregate.State, lines ...string) {
	for _, line := range lines {
		state.Fold(line, classify.Classify(line, state.InitAccepted()))
	}
}

// scenarioA is one INIT, 100 blocks split 60/40 by parity and evenly by direction, and 100 posts
// averaging 150 pixels.
func scenarioA() []string {
	lines := []string{testutils.InitLine(4, 1, 1)}

	for i := range 100 {
		parity := 0
		if i >= 60 {
			parity = 1
		}

		xdir := 1
		if i%2 == 1 {
			xdir = -1
		}

		mode := testutils.Mode{FbzMode: uint32(i % 4), FbzColorPath: 0x0c000035}
		lines = append(lines, testutils.GenerateLine(i+1, parity, i%8, fmt.Sprintf("0x7f%08x", i), i, mode, xdir))
	}

	for i := range 100 {
		// 100 and 200 alternate, mean 150.
		count := 100
		if i%2 == 1 {
			count = 200
		}

		lines = append(lines, testutils.PostLine(1, 1, 1, 1, fmt.Sprintf("%08x", i+1), count))
	}

	return lines
}

func TestScenarioHealthy(t *testing.T) {
	t.Parallel()

	report := fold(scenarioA()...).Summarize(summaryOpts)

	require.NotNil(t, report.Init)
	assert.Equal(t, uint64(4), report.Init.RenderThreads)
	assert.Equal(t, uint64(1), report.InitLine)

	comp := report.Compilation
	assert.Equal(t, uint64(100), comp.Blocks)
	assert.Equal(t, uint64(60), comp.Even)
	assert.Equal(t, uint64(40), comp.Odd)
	assert.True(t, comp.ParityBalanced)
	assert.Equal(t, uint64(50), comp.XDirPositive)
	assert.Equal(t, uint64(50), comp.XDirNegative)
	assert.True(t, comp.XDirBalanced)
	assert.Equal(t, 100, comp.UniqueCodeAddresses)
	assert.Len(t, comp.BlockSlots, 8)
	assert.True(t, comp.HasRecompRange)
	assert.Equal(t, uint64(0), comp.RecompMin)
	assert.Equal(t, uint64(99), comp.RecompMax)
	assert.Zero(t, comp.FallbacksTotal)

	exec := report.Execution
	assert.Equal(t, uint64(100), exec.Posts)
	assert.Equal(t, uint64(15000), exec.PixelsTotal)
	assert.Equal(t, uint64(200), exec.PixelsMax)
	assert.InDelta(t, 150.0, exec.PixelsMean, 1e-9)
	assert.Equal(t, [types.BucketCount]uint64{0, 0, 50, 50, 0}, exec.Histogram)

	assert.Equal(t, 4, report.Coverage.UniqueConfigs)
	assert.Equal(t, 100, report.Coverage.ActiveZ)
	assert.Zero(t, report.Errors.Count)
	assert.True(t, report.Errors.EndsCleanly)
	assert.Equal(t, types.VerdictHealthy, report.Verdict)
}

func TestScenarioFallbacks(t *testing.T) {
	t.Parallel()

	lines := scenarioA()
	for range 5 {
		lines = append(lines, testutils.FallbackLine())
	}

	report := fold(lines...).Summarize(summaryOpts)

	assert.Equal(t, uint64(5), report.Compilation.FallbacksDisabledOrNull)
	assert.Equal(t, uint64(5), report.Compilation.FallbacksTotal)
	assert.Zero(t, report.Errors.Count)
	assert.Equal(t, types.VerdictFunctionalWithFallbacks, report.Verdict)
}

func TestScenarioCompilingNotExecuting(t *testing.T) {
	t.Parallel()

	var lines []string
	for i := range 100 {
		lines = append(lines, testutils.GenerateLine(i, i%2, 0, "0x1000", 1, testutils.Mode{}, 1))
	}

	report := fold(lines...).Summarize(summaryOpts)

	assert.Equal(t, uint64(100), report.Compilation.Blocks)
	assert.Zero(t, report.Execution.Posts)
	assert.Equal(t, types.VerdictCompilingNotExecuting, report.Verdict)
}

func TestScenarioNotActive(t *testing.T) {
	t.Parallel()

	for name, lines := range map[string][]string{
		"empty":       nil,
		"no generate": strings.Split(strings.TrimSpace(testutils.NoJITLog()), "\n"),
		"posts only":  {testutils.PostLine(0, 0, 0, 0, "00000000", 10)},
	} {
		report := fold(lines...).Summarize(summaryOpts)
		assert.Equal(t, types.VerdictJITNotActive, report.Verdict, name)
	}
}

func TestEmptyLog(t *testing.T) {
	t.Parallel()

	report := fold().Summarize(summaryOpts)

	assert.Zero(t, report.TotalLines)
	assert.Nil(t, report.Init)
	assert.Zero(t, report.InferredRenderThreads)
	assert.False(t, report.Errors.EndsCleanly)
	assert.Zero(t, report.Errors.InterleavedPercent)
	assert.Zero(t, report.Execution.PixelsMean)
	assert.Equal(t, types.DiversityNone, report.Pixels.Diversity)
}

func TestDecide(t *testing.T) {
	t.Parallel()

	cases := []struct {
		blocks, output, fallbacks, errors bool
		want                              types.Verdict
	}{
		{true, true, false, false, types.VerdictHealthy},
		{true, true, true, false, types.VerdictFunctionalWithFallbacks},
		{true, true, false, true, types.VerdictFunctionalWithWarnings},
		{true, true, true, true, types.VerdictFunctionalWithWarnings},
		{true, false, false, false, types.VerdictCompilingNotExecuting},
		{true, false, true, true, types.VerdictCompilingNotExecuting},
		{false, true, false, false, types.VerdictJITNotActive},
		{false, false, false, true, types.VerdictJITNotActive},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, aggregate.Decide(tc.blocks, tc.output, tc.fallbacks, tc.errors), "%+v", tc)
	}
}

func TestHistogramBoundaries(t *testing.T) {
	t.Parallel()

	report := fold(
		testutils.PostLine(0, 0, 0, 0, "00000000", 0),
		testutils.PostLine(0, 0, 0, 0, "00000000", 1),
		testutils.PostLine(0, 0, 0, 0, "00000000", 2),
		testutils.PostLine(0, 0, 0, 0, "00000000", 10),
		testutils.PostLine(0, 0, 0, 0, "00000000", 11),
		testutils.PostLine(0, 0, 0, 0, "00000000", 100),
		testutils.PostLine(0, 0, 0, 0, "00000000", 101),
		testutils.PostLine(0, 0, 0, 0, "00000000", 320),
		testutils.PostLine(0, 0, 0, 0, "00000000", 321),
	).Summarize(summaryOpts)

	assert.Equal(t, [types.BucketCount]uint64{2, 2, 2, 2, 1}, report.Execution.Histogram)
	assert.Equal(t, uint64(321), report.Execution.PixelsMax)
	assert.Zero(t, report.Coverage.ActiveZ)
}

func TestDepthValues(t *testing.T) {
	t.Parallel()

	state := fold(
		testutils.PostLine(0, 0, 0, 0, "00000000", 1),
		testutils.PostLine(0, 0, 0, 0, "0000ffff", 1),
		testutils.PostLine(0, 0, 0, 0, "0000ffff", 1),
		testutils.PostLine(0, 0, 0, 0, "0000FFFF", 1),
	)

	// The all-zero depth is excluded; duplicates collapse; case is kept as written.
	assert.Equal(t, []string{"0000FFFF", "0000ffff"}, state.ActiveZValues())
}

func TestPixelTokenMembership(t *testing.T) {
	t.Parallel()

	state := fold(
		testutils.PixelsLine(0, 0, 3, "0A1B", "0a1b", "0000", "nope"),
		testutils.PixelsLine(1, 0, 3, "0a1b"),
	)

	assert.Equal(t, []string{"0000", "0A1B", "0a1b"}, state.PixelValues())

	report := state.Summarize(summaryOpts)
	assert.Equal(t, uint64(2), report.Pixels.Lines)
	assert.Equal(t, 3, report.Pixels.Unique)
	assert.Equal(t, 2, report.Pixels.NonZero)
	assert.Equal(t, types.DiversityLow, report.Pixels.Diversity)
	assert.Empty(t, report.Pixels.Sample)
}

func TestPixelDiversity(t *testing.T) {
	t.Parallel()

	report := fold(testutils.PixelsLine(0, 0, 1, "0000", "0000")).Summarize(summaryOpts)
	assert.Equal(t, types.DiversityAllZero, report.Pixels.Diversity)

	tokens := make([]string, 0, 12)
	for i := range 12 {
		tokens = append(tokens, fmt.Sprintf("%04x", i+1))
	}

	report = fold(testutils.PixelsLine(0, 0, 12, tokens...)).
		Summarize(aggregate.SummaryOptions{RealisticDiversity: 10, PixelSample: 4})
	assert.Equal(t, types.DiversityRealistic, report.Pixels.Diversity)
	assert.Equal(t, []string{"0001", "0002", "0003", "0004"}, report.Pixels.Sample)
}

func TestInterleaveCountedOnce(t *testing.T) {
	t.Parallel()

	report := fold(
		"VOODOO JIT POST: ib=0 VOODOO JIT: cache HIT VOODOO JIT PIXELS",
		testutils.CacheHitLine("0x1"),
	).Summarize(summaryOpts)

	assert.Equal(t, uint64(1), report.Errors.Interleaved)
	assert.InDelta(t, 50.0, report.Errors.InterleavedPercent, 1e-9)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	var lines []string
	for i := range 15 {
		lines = append(lines, fmt.Sprintf("  worker %d: SIGSEGV at 0xdead  ", i))
	}

	lines = append(lines,
		"VOODOO JIT: fail would not count",
		"VOODOO JIT: EXECUTE torn line error",
		"all good here",
	)

	report := fold(lines...).Summarize(summaryOpts)

	assert.Equal(t, uint64(15), report.Errors.Count)
	require.Len(t, report.Errors.Samples, 10)
	assert.Equal(t, uint64(1), report.Errors.Samples[0].Number)
	assert.Equal(t, "worker 0: SIGSEGV at 0xdead", report.Errors.Samples[0].Text)
	assert.Equal(t, "all good here", report.Errors.LastLine)
	assert.False(t, report.Errors.EndsCleanly)
}

func TestRejectReasons(t *testing.T) {
	t.Parallel()

	report := fold(
		testutils.RejectLine("emit_overflow"),
		testutils.RejectLine("emit_overflow"),
		testutils.RejectLine("wx_write_enable_failed"),
		testutils.RejectLine("wx_exec_enable_failed"),
		"VOODOO JIT: REJECT block=9 mystery, interpreter fallback",
		testutils.FallbackLine(),
	).Summarize(summaryOpts)

	comp := report.Compilation
	assert.Equal(t, uint64(5), comp.FallbacksEmitOverflow)
	assert.Equal(t, uint64(1), comp.FallbacksDisabledOrNull)
	assert.Equal(t, uint64(6), comp.FallbacksTotal)
	assert.Equal(t, types.RejectReasons{
		WXWriteEnableFailed: 1,
		WXExecEnableFailed:  1,
		EmitOverflow:        2,
		Other:               1,
	}, comp.RejectReasons)
}

func TestInferredRenderThreads(t *testing.T) {
	t.Parallel()

	report := fold(
		testutils.GenerateLine(1, 0, 0, "0x1", 1, testutils.Mode{}, 1),
		testutils.GenerateLine(2, 1, 0, "0x2", 1, testutils.Mode{}, 1),
		testutils.GenerateLine(3, 2, 0, "0x3", 1, testutils.Mode{}, 1),
	).Summarize(summaryOpts)

	assert.Nil(t, report.Init)
	assert.Equal(t, 3, report.InferredRenderThreads)
}

func TestFirstInitWins(t *testing.T) {
	t.Parallel()

	report := fold(
		"boot",
		testutils.InitLine(2, 1, 1),
		testutils.InitLine(8, 0, 3),
	).Summarize(summaryOpts)

	require.NotNil(t, report.Init)
	assert.Equal(t, uint64(2), report.Init.RenderThreads)
	assert.Equal(t, uint64(2), report.InitLine)
}

func TestCoverage(t *testing.T) {
	t.Parallel()

	state := fold(
		testutils.GenerateLine(1, 0, 0, "0x1", 1, testutils.Mode{FbzMode: 0x100, TextureMode: 0x1}, 1),
		testutils.GenerateLine(2, 0, 0, "0x1", 1, testutils.Mode{FbzMode: 0x100, TextureMode: 0x1}, 1),
		testutils.GenerateLine(3, 0, 0, "0x1", 1, testutils.Mode{FogMode: 0x1}, 1),
	)
	report := state.Summarize(summaryOpts)

	cov := report.Coverage
	assert.Equal(t, 2, cov.UniqueConfigs)
	assert.Equal(t, 2, cov.TextureModes)
	assert.Equal(t, 1, cov.TextureNonZero)
	assert.Equal(t, 1, cov.FogNonZero)
	assert.Zero(t, cov.AlphaNonZero)
	assert.Equal(t, 1, cov.ColorPaths)
	assert.Equal(t, "0x00000000", cov.SoleColorPath)
	assert.True(t, cov.Dither)

	assert.True(t, state.HasConfig(types.PipelineConfig{
		FbzMode:      "0x00000100",
		FbzColorPath: "0x00000000",
		AlphaMode:    "0x00000000",
		TextureMode0: "0x00000001",
		FogMode:      "0x00000000",
		XDirection:   1,
	}))

	noDither := fold(testutils.GenerateLine(1, 0, 0, "0x1", 1, testutils.Mode{FbzMode: 0x200, AlphaMode: 0x10}, 1))
	assert.False(t, noDither.Summarize(summaryOpts).Coverage.Dither)
}

func TestVerification(t *testing.T) {
	t.Parallel()

	mismatch := func(fog uint32, differ int) string {
		return fmt.Sprintf("VERIFY MISMATCH y=1 (%d/64 pixels differ) fbzMode=0x00000100 fbzColorPath=0x0 "+
			"alphaMode=0x0 textureMode=0x0 fogMode=0x%08x", differ, fog)
	}

	report := fold(
		mismatch(0xc1, 3),
		"  pixel[0]: dR=+1 dG=0 dB=-1",
		"  pixel[1]: dR=-9 dG=2 dB=0",
		mismatch(0xc1, 5),
		mismatch(0x01, 1),
		"  pixel[0]: dR=0 dG=4 dB=0",
	).Summarize(summaryOpts)

	ver := report.Verification
	assert.Equal(t, uint64(3), ver.Mismatches)
	assert.Equal(t, uint64(9), ver.PixelsDiffer)
	require.Len(t, ver.ByFogMode, 2)
	assert.Equal(t, uint32(0xc1), ver.ByFogMode[0].FogMode)
	assert.Equal(t, uint64(2), ver.ByFogMode[0].Count)
	assert.Equal(t, uint64(8), ver.ByFogMode[0].PixelsDiffer)
	assert.Len(t, ver.ByConfig, 2)

	assert.Equal(t, uint64(3), ver.DiffsParsed)
	assert.Equal(t, [types.DiffMagCount]uint64{1, 0, 1, 1}, ver.DiffMagnitude)
	assert.Equal(t, int64(9), ver.MaxAbsDR)
	assert.Equal(t, int64(4), ver.MaxAbsDG)
	assert.Equal(t, int64(1), ver.MaxAbsDB)

	// Verify mismatches also count as errors.
	assert.Equal(t, uint64(3), report.Errors.Count)
	assert.Equal(t, types.VerdictJITNotActive, report.Verdict)
}

func TestPixelDiffExtremeDelta(t *testing.T) {
	t.Parallel()

	report := fold(
		"VERIFY MISMATCH y=1 (1/64 pixels differ) fogMode=0x00000000",
		"  pixel[0]: dR=-9223372036854775808 dG=0 dB=0",
	).Summarize(summaryOpts)

	ver := report.Verification
	assert.Equal(t, uint64(1), ver.DiffsParsed)
	assert.Equal(t, [types.DiffMagCount]uint64{0, 0, 0, 1}, ver.DiffMagnitude)
	assert.Equal(t, int64(math.MaxInt64), ver.MaxAbsDR)
}

func TestExecuteScanlines(t *testing.T) {
	t.Parallel()

	report := fold(
		testutils.ExecuteLine(1, "0x1", 0, 10, 4),
		testutils.ExecuteLine(2, "0x1", 0, 10, 4),
		testutils.ExecuteLine(3, "0x1", 0, 10, 5),
		"VOODOO JIT: EXECUTE #4 code=0x1 x=0 x2=10",
	).Summarize(summaryOpts)

	assert.Equal(t, uint64(4), report.Execution.Executes)
	assert.Equal(t, 2, report.Execution.UniqueScanlines)
}
