package aggregate_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skiretic/voodoo-jitlog/internal/audit/aggregate"
	"github.com/skiretic/voodoo-jitlog/internal/testutils"
)

// mixedLog exercises every record kind, plus error and interleaved lines.
func mixedLog() []string {
	lines := append([]string{"boot: loading", testutils.InitLine(2, 1, 1)}, scenarioA()...)

	lines = append(lines,
		testutils.FallbackLine(),
		testutils.RejectLine("wx_write_enable_failed"),
		testutils.CacheHitLine("0x7f00000001"),
		testutils.ExecuteLine(1, "0x7f00000001", 0, 10, 7),
		testutils.PixelsLine(7, 0, 4, "f800", "07e0", "0000", "001F"),
		"VOODOO JIT POST: ib=0 VOODOO JIT: cache HIT",
		"VERIFY MISMATCH y=2 (4/64 pixels differ) fbzMode=0x00000001 fogMode=0x00000002",
		"  pixel[1]: dR=+3 dG=0 dB=0",
		"ERROR: host ran out of memory",
		"VOODOO JIT: WARN slow path",
	)

	for i := range 12 {
		lines = append(lines, fmt.Sprintf("mprotect failure %d", i))
	}

	return append(lines, testutils.GenerateLine(999, 1, 3, "0x7f00000999", 1000, testutils.Mode{AlphaMode: 0x41}, -1))
}

func TestMergeMatchesConcatenation(t *testing.T) {
	t.Parallel()

	lines := mixedLog()

	for _, split := range []int{0, 1, 2, 57, 150, len(lines) - 1, len(lines)} {
		whole := fold(lines...)

		left := fold(lines[:split]...)
		right := fold(lines[split:]...)
		left.Merge(right)

		assert.Equal(t,
			whole.Summarize(summaryOpts),
			left.Summarize(summaryOpts),
			"split at %d", split,
		)
	}
}

func TestMergeAssociative(t *testing.T) {
	t.Parallel()

	lines := mixedLog()
	first, second, third := lines[:40], lines[40:130], lines[130:]

	// (a+b)+c
	leftFirst := fold(first...)
	leftFirst.Merge(fold(second...))
	leftFirst.Merge(fold(third...))

	// a+(b+c)
	tail := fold(second...)
	tail.Merge(fold(third...))

	rightFirst := fold(first...)
	rightFirst.Merge(tail)

	assert.Equal(t, leftFirst.Summarize(summaryOpts), rightFirst.Summarize(summaryOpts))
}

func TestMergeWithEmpty(t *testing.T) {
	t.Parallel()

	lines := mixedLog()
	want := fold(lines...).Summarize(summaryOpts)

	state := fold(lines...)
	state.Merge(aggregate.New(10))
	assert.Equal(t, want, state.Summarize(summaryOpts))

	empty := aggregate.New(10)
	empty.Merge(fold(lines...))
	assert.Equal(t, want, empty.Summarize(summaryOpts))
}

func TestMergeErrorSamplesRenumbered(t *testing.T) {
	t.Parallel()

	left := fold("fine", "fine", "crash one")
	right := fold("crash two")
	left.Merge(right)

	report := left.Summarize(summaryOpts)
	require.Len(t, report.Errors.Samples, 2)
	assert.Equal(t, uint64(3), report.Errors.Samples[0].Number)
	assert.Equal(t, uint64(4), report.Errors.Samples[1].Number)
	assert.Equal(t, "crash two", report.Errors.LastLine)
}

func TestSummarizeDoesNotMutate(t *testing.T) {
	t.Parallel()

	state := fold(mixedLog()...)

	first := state.Summarize(summaryOpts)
	second := state.Summarize(summaryOpts)
	assert.Equal(t, first, second)
}
