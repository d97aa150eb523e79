// Package output provides shared result serialization for voodoo-jitlog JSON output.
package output

import (
	"fmt"

	jitlog "github.com/skiretic/voodoo-jitlog"
	"github.com/skiretic/voodoo-jitlog/internal/types"
)

// ResultToMap converts an analysis result into the canonical map structure
// used for JSON and JSONL serialization.
func ResultToMap(result *jitlog.Result) map[string]any {
	rep := &result.Report

	meta := map[string]any{
		"summary": map[string]any{
			"verdict":      result.Verdict.String(),
			"description":  result.Verdict.Description(),
			"worst_status": result.WorstStatus.String(),
			"total_lines":  rep.TotalLines,
		},
	}

	findings := make([]any, 0, len(result.Findings))
	for _, finding := range result.Findings {
		entry := map[string]any{
			"section": finding.Section.String(),
			"status":  finding.Status.String(),
			"summary": finding.Summary,
		}
		if len(finding.Details) > 0 {
			entry["details"] = finding.Details
		}

		findings = append(findings, entry)
	}

	meta["findings"] = findings

	rows := make([]any, 0, len(result.Summary))
	for _, row := range result.Summary {
		rows = append(rows, map[string]any{"label": row.Label, "value": row.Value})
	}

	meta["summary_table"] = rows

	meta["configuration"] = ConfigurationToMap(rep)
	meta["compilation"] = CompilationToMap(&rep.Compilation)
	meta["errors"] = ErrorsToMap(&rep.Errors)
	meta["execution"] = ExecutionToMap(&rep.Execution)

	cov := rep.Coverage
	meta["coverage"] = map[string]any{
		"unique_configs":   cov.UniqueConfigs,
		"fbz_modes":        cov.FbzModes,
		"color_paths":      cov.ColorPaths,
		"texture_modes":    cov.TextureModes,
		"texture_non_zero": cov.TextureNonZero,
		"alpha_modes":      cov.AlphaModes,
		"alpha_non_zero":   cov.AlphaNonZero,
		"fog_modes":        cov.FogModes,
		"fog_non_zero":     cov.FogNonZero,
		"active_z":         cov.ActiveZ,
		"dither":           cov.Dither,
	}

	meta["pixels"] = map[string]any{
		"lines":     rep.Pixels.Lines,
		"unique":    rep.Pixels.Unique,
		"non_zero":  rep.Pixels.NonZero,
		"diversity": rep.Pixels.Diversity.String(),
		"sample":    rep.Pixels.Sample,
	}

	meta["negative_iterators"] = map[string]any{
		"ir": rep.Iterators.NegativeIR,
		"ig": rep.Iterators.NegativeIG,
		"ib": rep.Iterators.NegativeIB,
		"ia": rep.Iterators.NegativeIA,
	}

	if rep.Verification.Mismatches > 0 || rep.Verification.DiffsParsed > 0 {
		meta["verification"] = VerificationToMap(&rep.Verification)
	}

	return meta
}

// ConfigurationToMap converts the INIT data, or its inferred replacement, to a map.
func ConfigurationToMap(rep *types.Report) map[string]any {
	if rep.Init == nil {
		return map[string]any{
			"init_found":              false,
			"inferred_render_threads": rep.InferredRenderThreads,
		}
	}

	return map[string]any{
		"init_found":         true,
		"init_line":          rep.InitLine,
		"render_threads":     rep.Init.RenderThreads,
		"recompiler_enabled": rep.Init.RecompilerEnabled,
		"debug_level":        rep.Init.DebugLevel,
	}
}

// CompilationToMap converts compilation statistics to a map.
func CompilationToMap(comp *types.Compilation) map[string]any {
	meta := map[string]any{
		"blocks":                comp.Blocks,
		"cache_hits":            comp.CacheHits,
		"unique_code_addresses": comp.UniqueCodeAddresses,
		"block_slots":           comp.BlockSlots,
		"even":                  comp.Even,
		"odd":                   comp.Odd,
		"xdir_positive":         comp.XDirPositive,
		"xdir_negative":         comp.XDirNegative,
		"fallbacks": map[string]any{
			"total":            comp.FallbacksTotal,
			"disabled_or_null": comp.FallbacksDisabledOrNull,
			"emit_overflow":    comp.FallbacksEmitOverflow,
			"reasons": map[string]any{
				"wx_write_enable_failed": comp.RejectReasons.WXWriteEnableFailed,
				"wx_exec_enable_failed":  comp.RejectReasons.WXExecEnableFailed,
				"emit_overflow":          comp.RejectReasons.EmitOverflow,
				"other":                  comp.RejectReasons.Other,
			},
		},
	}

	if comp.HasRecompRange {
		meta["recomp_min"] = comp.RecompMin
		meta["recomp_max"] = comp.RecompMax
	}

	return meta
}

// ErrorsToMap converts error statistics to a map.
func ErrorsToMap(errs *types.Errors) map[string]any {
	samples := make([]any, 0, len(errs.Samples))
	for _, sample := range errs.Samples {
		samples = append(samples, map[string]any{
			"line": sample.Number,
			"text": sample.Text,
		})
	}

	return map[string]any{
		"count":               errs.Count,
		"samples":             samples,
		"interleaved":         errs.Interleaved,
		"interleaved_percent": fmt.Sprintf("%.2f", errs.InterleavedPercent),
		"last_line":           errs.LastLine,
		"ends_cleanly":        errs.EndsCleanly,
		"jit_warnings":        errs.JITWarnings,
	}
}

// ExecutionToMap converts execution statistics to a map.
func ExecutionToMap(exec *types.Execution) map[string]any {
	histogram := make(map[string]any, types.BucketCount)
	for bucket, count := range exec.Histogram {
		histogram[types.BucketLabels[bucket]] = count
	}

	return map[string]any{
		"executes":         exec.Executes,
		"unique_scanlines": exec.UniqueScanlines,
		"posts":            exec.Posts,
		"pixels_total":     exec.PixelsTotal,
		"pixels_max":       exec.PixelsMax,
		"pixels_mean":      exec.PixelsMean,
		"pixels_median":    exec.PixelsMedian,
		"pixels_stddev":    exec.PixelsStdDev,
		"histogram":        histogram,
	}
}

// VerificationToMap converts verify mismatch and pixel diff statistics to a map.
func VerificationToMap(ver *types.Verification) map[string]any {
	byFog := make([]any, 0, len(ver.ByFogMode))
	for _, g := range ver.ByFogMode {
		byFog = append(byFog, map[string]any{
			"fog_mode":      fmt.Sprintf("0x%08x", g.FogMode),
			"count":         g.Count,
			"pixels_differ": g.PixelsDiffer,
		})
	}

	byConfig := make([]any, 0, len(ver.ByConfig))
	for _, g := range ver.ByConfig {
		byConfig = append(byConfig, map[string]any{
			"fbz_mode":       fmt.Sprintf("0x%08x", g.FbzMode),
			"fbz_color_path": fmt.Sprintf("0x%08x", g.FbzColorPath),
			"alpha_mode":     fmt.Sprintf("0x%08x", g.AlphaMode),
			"texture_mode":   fmt.Sprintf("0x%08x", g.TextureMode),
			"fog_mode":       fmt.Sprintf("0x%08x", g.FogMode),
			"count":          g.Count,
			"pixels_differ":  g.PixelsDiffer,
		})
	}

	magnitude := make(map[string]any, types.DiffMagCount)
	for bucket, count := range ver.DiffMagnitude {
		magnitude[types.DiffMagLabels[bucket]] = count
	}

	return map[string]any{
		"mismatches":     ver.Mismatches,
		"pixels_differ":  ver.PixelsDiffer,
		"by_fog_mode":    byFog,
		"by_config":      byConfig,
		"diffs_parsed":   ver.DiffsParsed,
		"diff_magnitude": magnitude,
		"max_abs_dr":     ver.MaxAbsDR,
		"max_abs_dg":     ver.MaxAbsDG,
		"max_abs_db":     ver.MaxAbsDB,
	}
}
