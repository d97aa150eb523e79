package jitlog

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/skiretic/voodoo-jitlog/internal/types"
)

const (
	maxSampleLineWidth = 120
	minMatchRate       = 99.0
)

type findings struct {
	list []Finding
}

func (f *findings) add(section Section, status Status, summary string, details ...string) {
	f.list = append(f.list, Finding{Section: section, Status: status, Summary: summary, Details: details})
}

func interpretResults(result *Result) {
	rep := &result.Report
	out := &findings{}

	interpretConfiguration(out, rep)
	interpretCompilation(out, rep)
	interpretErrors(out, rep)
	interpretExecution(out, rep)
	interpretCoverage(out, rep)
	interpretPixels(out, rep)
	interpretIterators(out, rep)
	interpretVerification(out, rep)

	result.Findings = out.list
	result.Summary = summaryRows(rep)
}

func interpretConfiguration(out *findings, rep *types.Report) {
	if rep.Init != nil {
		recompiler := "disabled"
		if rep.Init.RecompilerEnabled {
			recompiler = "enabled"
		}

		out.add(SectionConfiguration, StatusInfo, fmt.Sprintf("Render threads: %d", rep.Init.RenderThreads))
		out.add(SectionConfiguration, StatusInfo, "JIT recompiler: "+recompiler)
		out.add(SectionConfiguration, StatusInfo, fmt.Sprintf("JIT debug level: %d", rep.Init.DebugLevel))

		return
	}

	out.add(SectionConfiguration, StatusInfo, "No INIT line found (older log format)")

	if rep.InferredRenderThreads > 0 {
		out.add(SectionConfiguration, StatusInfo,
			fmt.Sprintf("Render threads (inferred from odd_even): %d", rep.InferredRenderThreads))
	}
}

func interpretCompilation(out *findings, rep *types.Report) {
	comp := &rep.Compilation

	if comp.Blocks > 0 {
		out.add(SectionCompilation, StatusOK, "Blocks compiled: "+comma(comp.Blocks))
	} else {
		out.add(SectionCompilation, StatusFail, "No GENERATE events found, JIT may not be active")
	}

	out.add(SectionCompilation, StatusInfo, "Cache hits: "+comma(comp.CacheHits))
	out.add(SectionCompilation, StatusInfo, fmt.Sprintf("Unique code addresses: %d", comp.UniqueCodeAddresses))

	slots := make([]string, len(comp.BlockSlots))
	for i, slot := range comp.BlockSlots {
		slots[i] = strconv.FormatUint(slot, 10)
	}

	out.add(SectionCompilation, StatusInfo,
		fmt.Sprintf("Block slots used: %d (%s)", len(comp.BlockSlots), strings.Join(slots, ", ")))

	switch {
	case comp.ParityBalanced:
		out.add(SectionCompilation, StatusOK, fmt.Sprintf("Even/odd distribution: %s / %s", comma(comp.Even), comma(comp.Odd)))
	case comp.Blocks > 0:
		only := "odd"
		if comp.Even > 0 {
			only = "even"
		}

		out.add(SectionCompilation, StatusWarn, fmt.Sprintf("Only %s blocks generated", only))
	}

	switch {
	case comp.XDirBalanced:
		out.add(SectionCompilation, StatusOK,
			fmt.Sprintf("xdir coverage: +1 (%s) / -1 (%s)", comma(comp.XDirPositive), comma(comp.XDirNegative)))
	case comp.XDirPositive > 0:
		out.add(SectionCompilation, StatusInfo,
			fmt.Sprintf("xdir: only +1 (%s), no -1 (may be normal for test workload)", comma(comp.XDirPositive)))
	case comp.XDirNegative > 0:
		out.add(SectionCompilation, StatusInfo, fmt.Sprintf("xdir: only -1 (%s), no +1", comma(comp.XDirNegative)))
	}

	if comp.HasRecompRange {
		out.add(SectionCompilation, StatusInfo, fmt.Sprintf("Recomp range: %d .. %d", comp.RecompMin, comp.RecompMax))
	}

	if comp.FallbacksTotal == 0 {
		out.add(SectionCompilation, StatusOK, "No interpreter fallbacks")

		return
	}

	var details []string

	if comp.FallbacksDisabledOrNull > 0 {
		details = append(details, "use_recompiler=0 or NULL block: "+comma(comp.FallbacksDisabledOrNull))
	}

	if comp.FallbacksEmitOverflow > 0 {
		details = append(details, "emit overflow (REJECT): "+comma(comp.FallbacksEmitOverflow))

		reasons := comp.RejectReasons
		for _, reason := range []struct {
			name  string
			count uint64
		}{
			{"wx_write_enable_failed", reasons.WXWriteEnableFailed},
			{"wx_exec_enable_failed", reasons.WXExecEnableFailed},
			{"emit_overflow", reasons.EmitOverflow},
			{"other", reasons.Other},
		} {
			if reason.count > 0 {
				details = append(details, fmt.Sprintf("  %s: %s", reason.name, comma(reason.count)))
			}
		}
	}

	out.add(SectionCompilation, StatusFail, "Interpreter fallbacks: "+comma(comp.FallbacksTotal), details...)
}

func interpretErrors(out *findings, rep *types.Report) {
	errs := &rep.Errors

	if errs.Count == 0 {
		out.add(SectionErrors, StatusOK, fmt.Sprintf("Zero errors in %s lines", comma(rep.TotalLines)))
	} else {
		details := make([]string, 0, len(errs.Samples)+1)
		for _, sample := range errs.Samples {
			details = append(details, fmt.Sprintf("Line %d: %s", sample.Number, truncate(sample.Text, maxSampleLineWidth)))
		}

		if more := errs.Count - uint64(len(errs.Samples)); more > 0 {
			details = append(details, fmt.Sprintf("... and %s more", comma(more)))
		}

		out.add(SectionErrors, StatusFail, fmt.Sprintf("%s error(s) found:", comma(errs.Count)), details...)
	}

	if errs.JITWarnings > 0 {
		out.add(SectionErrors, StatusWarn, "JIT warnings: "+comma(errs.JITWarnings))
	}

	if errs.Interleaved > 0 {
		out.add(SectionErrors, StatusWarn, fmt.Sprintf("Interleaved lines: %s (%.1f%%), cosmetic threading race, not a bug",
			comma(errs.Interleaved), errs.InterleavedPercent))
	} else {
		out.add(SectionErrors, StatusOK, "No interleaved log output")
	}

	if errs.EndsCleanly {
		out.add(SectionErrors, StatusOK, "Log ends cleanly")
	} else {
		out.add(SectionErrors, StatusWarn, "Log ends with unexpected line: "+truncate(errs.LastLine, 80))
	}
}

func interpretExecution(out *findings, rep *types.Report) {
	exec := &rep.Execution

	out.add(SectionExecution, StatusInfo, "EXECUTE calls: "+comma(exec.Executes))

	if exec.UniqueScanlines > 0 {
		out.add(SectionExecution, StatusInfo, fmt.Sprintf("Unique scanlines executed: %d", exec.UniqueScanlines))
	}

	out.add(SectionExecution, StatusInfo, "POST entries: "+comma(exec.Posts))
	out.add(SectionExecution, StatusInfo, "Total pixels rendered: "+comma(exec.PixelsTotal))
	out.add(SectionExecution, StatusInfo, fmt.Sprintf("Max pixels/scanline: %d", exec.PixelsMax))

	if exec.Posts == 0 {
		return
	}

	out.add(SectionExecution, StatusInfo, fmt.Sprintf("Pixels/scanline: mean %.1f, median %.0f, stddev %.1f",
		exec.PixelsMean, exec.PixelsMedian, exec.PixelsStdDev))

	details := make([]string, 0, types.BucketCount)

	for bucket, count := range exec.Histogram {
		if count > 0 {
			details = append(details, fmt.Sprintf("%7s: %s", types.BucketLabels[bucket], comma(count)))
		}
	}

	out.add(SectionExecution, StatusInfo, "Pixel count distribution:", details...)
}

func interpretCoverage(out *findings, rep *types.Report) {
	cov := &rep.Coverage

	out.add(SectionCoverage, StatusInfo, fmt.Sprintf("Unique pipeline configs: %d", cov.UniqueConfigs))

	if cov.TextureNonZero > 0 {
		out.add(SectionCoverage, StatusOK,
			fmt.Sprintf("Texture fetch: %d modes (%d non-zero)", cov.TextureModes, cov.TextureNonZero))
	} else {
		out.add(SectionCoverage, StatusWarn, "Texture fetch: not exercised (all textureMode=0)")
	}

	switch {
	case cov.ColorPaths > 1:
		out.add(SectionCoverage, StatusOK, fmt.Sprintf("Color combine: %d fbzColorPath configs", cov.ColorPaths))
	case cov.ColorPaths == 1:
		out.add(SectionCoverage, StatusInfo, fmt.Sprintf("Color combine: 1 config (%s)", cov.SoleColorPath))
	default:
		out.add(SectionCoverage, StatusWarn, "Color combine: no data")
	}

	if cov.AlphaNonZero > 0 {
		out.add(SectionCoverage, StatusOK,
			fmt.Sprintf("Alpha test/blend: %d modes (%d non-zero)", cov.AlphaModes, cov.AlphaNonZero))
	} else {
		out.add(SectionCoverage, StatusWarn, "Alpha test/blend: not exercised (all alphaMode=0)")
	}

	if cov.FogNonZero > 0 {
		out.add(SectionCoverage, StatusOK, fmt.Sprintf("Fog: %d modes (%d non-zero)", cov.FogModes, cov.FogNonZero))
	} else {
		out.add(SectionCoverage, StatusInfo, "Fog: not used by test workload (fogMode=0)")
	}

	if cov.ActiveZ > 0 {
		out.add(SectionCoverage, StatusOK, fmt.Sprintf("Depth test: active (%s unique Z values)", humanize.Comma(int64(cov.ActiveZ))))
	} else {
		out.add(SectionCoverage, StatusWarn, "Depth test: no non-zero Z values seen")
	}

	out.add(SectionCoverage, StatusInfo, fmt.Sprintf("fbzMode configs: %d", cov.FbzModes))

	if cov.Dither {
		out.add(SectionCoverage, StatusOK, "Dithering: exercised")
	} else {
		out.add(SectionCoverage, StatusInfo, "Dithering: not enabled in test workload")
	}

	if rep.Execution.Posts > 0 {
		out.add(SectionCoverage, StatusOK,
			fmt.Sprintf("Framebuffer write: %s scanlines completed", comma(rep.Execution.Posts)))
	} else {
		out.add(SectionCoverage, StatusFail, "Framebuffer write: no POST entries, blocks may not be executing")
	}
}

func interpretPixels(out *findings, rep *types.Report) {
	px := &rep.Pixels

	out.add(SectionPixelOutput, StatusInfo, "PIXEL log lines: "+comma(px.Lines))
	out.add(SectionPixelOutput, StatusInfo, fmt.Sprintf("Unique RGB565 values: %d (%d non-zero)", px.Unique, px.NonZero))

	switch px.Diversity {
	case types.DiversityRealistic:
		out.add(SectionPixelOutput, StatusOK, "Pixel diversity looks realistic", "Sample: "+strings.Join(px.Sample, " "))
	case types.DiversityLow:
		out.add(SectionPixelOutput, StatusWarn, fmt.Sprintf("Low pixel diversity (%d non-zero values)", px.NonZero))
	case types.DiversityAllZero:
		out.add(SectionPixelOutput, StatusWarn, "All pixels are 0x0000, may indicate rendering issue or early boot")
	case types.DiversityNone:
	}
}

func interpretIterators(out *findings, rep *types.Report) {
	it := rep.Iterators

	if it.Total() == 0 {
		out.add(SectionIterators, StatusInfo, "No negative iterator values seen")

		return
	}

	var details []string

	for _, ch := range []struct {
		name  string
		count uint64
	}{
		{"ir", it.NegativeIR},
		{"ig", it.NegativeIG},
		{"ib", it.NegativeIB},
		{"ia", it.NegativeIA},
	} {
		if ch.count > 0 {
			details = append(details, fmt.Sprintf("%s: %s", ch.name, comma(ch.count)))
		}
	}

	out.add(SectionIterators, StatusInfo, "Negative iterators (normal for signed Gouraud):", details...)
}

func interpretVerification(out *findings, rep *types.Report) {
	ver := &rep.Verification

	if ver.Mismatches == 0 && ver.DiffsParsed == 0 {
		return
	}

	if ver.Mismatches > 0 {
		details := make([]string, 0, len(ver.ByFogMode))
		for _, g := range ver.ByFogMode {
			details = append(details, fmt.Sprintf("fogMode=0x%08x: %s mismatches, %s pixels differ",
				g.FogMode, comma(g.Count), comma(g.PixelsDiffer)))
		}

		out.add(SectionVerification, StatusFail,
			fmt.Sprintf("Verify mismatches: %s (%s pixels differ)", comma(ver.Mismatches), comma(ver.PixelsDiffer)),
			details...)

		cfgDetails := make([]string, 0, len(ver.ByConfig))
		for _, g := range ver.ByConfig {
			cfgDetails = append(cfgDetails, fmt.Sprintf(
				"fbzMode=0x%08x fbzColorPath=0x%08x alphaMode=0x%08x textureMode=0x%08x fogMode=0x%08x: %s",
				g.FbzMode, g.FbzColorPath, g.AlphaMode, g.TextureMode, g.FogMode, comma(g.Count)))
		}

		if pct, ok := matchRate(rep); ok {
			status := StatusFail
			if pct >= minMatchRate {
				status = StatusOK
			}

			out.add(SectionVerification, status,
				fmt.Sprintf("Match rate: %.2f%% (%s total pixels)", pct, comma(rep.Execution.PixelsTotal)))
		}

		out.add(SectionVerification, StatusInfo, fmt.Sprintf("Mismatching configs: %d", len(ver.ByConfig)), cfgDetails...)
	}

	if ver.DiffsParsed > 0 {
		details := make([]string, 0, types.DiffMagCount)
		for bucket, count := range ver.DiffMagnitude {
			details = append(details, fmt.Sprintf("%5s: %s", types.DiffMagLabels[bucket], comma(count)))
		}

		out.add(SectionVerification, StatusInfo,
			fmt.Sprintf("Pixel diffs: %s (max |dR|=%d |dG|=%d |dB|=%d)",
				comma(ver.DiffsParsed), ver.MaxAbsDR, ver.MaxAbsDG, ver.MaxAbsDB),
			details...)
	}
}

func summaryRows(rep *types.Report) []SummaryRow {
	comp := &rep.Compilation
	cov := &rep.Coverage

	rows := []SummaryRow{
		{"Block compilation", ifElse(comp.Blocks > 0,
			fmt.Sprintf("%s/%s successful (100%%)", comma(comp.Blocks), comma(comp.Blocks)), "NONE")},
		{"Interp. fallbacks", comma(comp.FallbacksTotal)},
		{"Error count", comma(rep.Errors.Count)},
		{"Crash indicators", comma(rep.Errors.Count)},
		{"Mode diversity", fmt.Sprintf("%d unique configurations", cov.UniqueConfigs)},
		{"Texture fetch", ifElse(cov.TextureNonZero > 0, fmt.Sprintf("Exercised (%d modes)", cov.TextureModes), "Not used")},
		{"Color combine", ifElse(cov.ColorPaths > 0, fmt.Sprintf("Exercised (%d configs)", cov.ColorPaths), "No data")},
		{"Alpha test/blend", ifElse(cov.AlphaNonZero > 0, fmt.Sprintf("Exercised (%d modes)", cov.AlphaModes), "Not used")},
		{"Fog", ifElse(cov.FogNonZero > 0, fmt.Sprintf("Exercised (%d modes)", cov.FogModes), "Not used by workload")},
		{"Dither", ifElse(cov.Dither, "Exercised", "Not enabled")},
		{"Framebuffer write", ifElse(rep.Execution.Posts > 0, fmt.Sprintf("~%s scanlines", comma(rep.Execution.Posts)), "NONE")},
		{"Depth test", ifElse(cov.ActiveZ > 0, fmt.Sprintf("Active (%s Z values)", humanize.Comma(int64(cov.ActiveZ))), "Not active")},
		{"Pixel output", ifElse(rep.Pixels.NonZero > 0, fmt.Sprintf("%d unique RGB565 colors", rep.Pixels.NonZero), "All zero")},
		{"Cache hits", comma(comp.CacheHits)},
		{"xdir coverage", xdirSummary(comp)},
		{"Thread interleave", ifElse(rep.Errors.Interleaved > 0, "Cosmetic only", "None")},
		{"Log termination", ifElse(rep.Errors.EndsCleanly, "Clean", "Unexpected")},
	}

	if rep.Errors.JITWarnings > 0 {
		rows = slices.Insert(rows, 2, SummaryRow{"JIT warnings", comma(rep.Errors.JITWarnings)})
	}

	if rep.Verification.Mismatches > 0 {
		value := comma(rep.Verification.Mismatches)
		if pct, ok := matchRate(rep); ok {
			value += fmt.Sprintf(" (%.2f%% match)", pct)
		}

		rows = append(rows, SummaryRow{"Verify mismatches", value})
	}

	return rows
}

// matchRate is the percentage of rendered pixels the verifier found identical. It is undefined
// without rendered pixels or without differing ones.
func matchRate(rep *types.Report) (float64, bool) {
	total := rep.Execution.PixelsTotal
	differ := rep.Verification.PixelsDiffer

	if total == 0 || differ == 0 {
		return 0, false
	}

	return 100 * (1 - float64(differ)/float64(total)), true
}

func xdirSummary(comp *types.Compilation) string {
	switch {
	case comp.XDirBalanced:
		return fmt.Sprintf("+1 (%s) / -1 (%s)", comma(comp.XDirPositive), comma(comp.XDirNegative))
	case comp.XDirPositive > 0:
		return "+1 only"
	case comp.XDirNegative > 0:
		return "-1 only"
	default:
		return "No data"
	}
}

func comma(v uint64) string {
	return humanize.Comma(int64(v)) //nolint:gosec // counts stay far below 2^63
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}

	return string(runes[:width])
}

func ifElse(cond bool, yes, no string) string {
	if cond {
		return yes
	}

	return no
}
