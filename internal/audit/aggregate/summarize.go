package aggregate

import (
	"cmp"
	"maps"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/skiretic/voodoo-jitlog/internal/audit/shared"
	"github.com/skiretic/voodoo-jitlog/internal/types"
)

const (
	ditherFbzModeBit   = 1 << 8
	ditherAlphaModeBit = 1 << 0
)

// SummaryOptions tunes report derivation.
type SummaryOptions struct {
	// RealisticDiversity is the number of non-zero pixel values above which output looks like real scenes.
	RealisticDiversity int
	// PixelSample bounds the number of pixel values listed in the report.
	PixelSample int
}

// Summarize derives the report from the accumulated state. It does not modify s.
func (s *State) Summarize(opts SummaryOptions) types.Report {
	report := types.Report{
		TotalLines: s.totalLines,
		InitLine:   s.initLine,
	}

	if s.init != nil {
		initCopy := *s.init
		report.Init = &initCopy
	} else {
		report.InferredRenderThreads = len(s.parity)
	}

	report.Compilation = s.compilation()
	report.Errors = s.errorsSummary()
	report.Execution = s.execution()
	report.Coverage = s.coverage()
	report.Pixels = s.pixelOutput(opts)
	report.Iterators = s.iterators
	report.Verification = s.verification()

	report.Verdict = Decide(
		report.Compilation.Blocks > 0,
		report.Execution.Posts > 0,
		report.Compilation.FallbacksTotal > 0,
		report.Errors.Count > 0,
	)

	return report
}

// Decide maps the four health inputs to a verdict. Rows are checked in order; errors dominate
// fallbacks when both co-occur with output.
func Decide(hasBlocks, hasOutput, hasFallbacks, hasErrors bool) types.Verdict {
	switch {
	case hasBlocks && hasOutput && !hasFallbacks && !hasErrors:
		return types.VerdictHealthy
	case hasBlocks && hasOutput && hasFallbacks && !hasErrors:
		return types.VerdictFunctionalWithFallbacks
	case hasBlocks && hasOutput && hasErrors:
		return types.VerdictFunctionalWithWarnings
	case hasBlocks && !hasOutput:
		return types.VerdictCompilingNotExecuting
	default:
		return types.VerdictJITNotActive
	}
}

func (s *State) compilation() types.Compilation {
	comp := types.Compilation{
		Blocks:                  s.blocks,
		CacheHits:               s.cacheHits,
		UniqueCodeAddresses:     len(s.codeAddrs),
		BlockSlots:              slices.Sorted(maps.Keys(s.slots)),
		Even:                    s.parity[0],
		Odd:                     s.parity[1],
		XDirPositive:            s.xdir[1],
		XDirNegative:            s.xdir[-1],
		HasRecompRange:          s.hasRecomp,
		RecompMin:               s.recompMin,
		RecompMax:               s.recompMax,
		FallbacksDisabledOrNull: s.fallbackDisabled,
		FallbacksEmitOverflow:   s.fallbackEmit,
		FallbacksTotal:          s.fallbackDisabled + s.fallbackEmit,
		RejectReasons:           s.rejectReasons,
	}

	comp.ParityBalanced = comp.Even > 0 && comp.Odd > 0
	comp.XDirBalanced = comp.XDirPositive > 0 && comp.XDirNegative > 0

	return comp
}

func (s *State) errorsSummary() types.Errors {
	last := strings.TrimSpace(s.lastLine)

	errs := types.Errors{
		Count:       s.errorCount,
		Samples:     slices.Clone(s.errors),
		Interleaved: s.interleaved,
		LastLine:    last,
		EndsCleanly: strings.Contains(last, shared.Prefix),
		JITWarnings: s.jitWarnings,
	}

	if s.totalLines > 0 {
		errs.InterleavedPercent = 100 * float64(s.interleaved) / float64(s.totalLines)
	}

	return errs
}

func (s *State) execution() types.Execution {
	exec := types.Execution{
		Executes:        s.executes,
		UniqueScanlines: len(s.scanlines),
		Posts:           s.posts,
		PixelsTotal:     s.pixelsTotal,
		PixelsMax:       s.pixelsMax,
		Histogram:       s.histogram,
	}

	if s.posts == 0 {
		return exec
	}

	// The frequency map is the whole distribution, with counts as weights.
	keys := slices.Sorted(maps.Keys(s.pixelCounts))
	values := make([]float64, len(keys))
	weights := make([]float64, len(keys))

	for i, k := range keys {
		values[i] = float64(k)
		weights[i] = float64(s.pixelCounts[k])
	}

	exec.PixelsMean = stat.Mean(values, weights)
	exec.PixelsMedian = stat.Quantile(0.5, stat.Empirical, values, weights)

	if s.posts > 1 {
		exec.PixelsStdDev = stat.StdDev(values, weights)
	}

	return exec
}

func (s *State) coverage() types.Coverage {
	cov := types.Coverage{
		UniqueConfigs:  len(s.configs),
		FbzModes:       len(s.fbzModes),
		ColorPaths:     len(s.colorPaths),
		TextureModes:   len(s.texModes),
		TextureNonZero: nonZeroModes(s.texModes),
		AlphaModes:     len(s.alphaModes),
		AlphaNonZero:   nonZeroModes(s.alphaModes),
		FogModes:       len(s.fogModes),
		FogNonZero:     nonZeroModes(s.fogModes),
		ActiveZ:        len(s.activeZ),
		Dither:         anyBitSet(s.fbzModes, ditherFbzModeBit) || anyBitSet(s.alphaModes, ditherAlphaModeBit),
	}

	if len(s.colorPaths) == 1 {
		for path := range s.colorPaths {
			cov.SoleColorPath = path
		}
	}

	return cov
}

func (s *State) pixelOutput(opts SummaryOptions) types.PixelOutput {
	nonZero := make([]string, 0, len(s.pixels))

	for px := range s.pixels {
		if px != shared.ZeroPixel {
			nonZero = append(nonZero, px)
		}
	}

	slices.Sort(nonZero)

	out := types.PixelOutput{
		Lines:   s.pixelLines,
		Unique:  len(s.pixels),
		NonZero: len(nonZero),
	}

	switch {
	case out.NonZero > opts.RealisticDiversity:
		out.Diversity = types.DiversityRealistic
	case out.NonZero > 0:
		out.Diversity = types.DiversityLow
	case out.Lines > 0:
		out.Diversity = types.DiversityAllZero
	default:
		out.Diversity = types.DiversityNone
	}

	if out.Diversity == types.DiversityRealistic {
		out.Sample = nonZero[:min(len(nonZero), opts.PixelSample)]
	}

	return out
}

func (s *State) verification() types.Verification {
	byFog := slices.Clone(s.byFog)
	byConfig := slices.Clone(s.byConfig)

	byCount := func(a, b types.MismatchGroup) int {
		return cmp.Compare(b.Count, a.Count)
	}

	slices.SortStableFunc(byFog, byCount)
	slices.SortStableFunc(byConfig, byCount)

	return types.Verification{
		Mismatches:    s.mismatches,
		PixelsDiffer:  s.pixelsDiffer,
		ByFogMode:     byFog,
		ByConfig:      byConfig,
		DiffsParsed:   s.diffsParsed,
		DiffMagnitude: s.diffMagnitude,
		MaxAbsDR:      s.maxAbsDR,
		MaxAbsDG:      s.maxAbsDG,
		MaxAbsDB:      s.maxAbsDB,
	}
}

// ActiveZValues returns the sorted set of non-neutral depth values.
func (s *State) ActiveZValues() []string {
	return slices.Sorted(maps.Keys(s.activeZ))
}

// PixelValues returns the sorted set of pixel tokens seen, including the black value.
func (s *State) PixelValues() []string {
	return slices.Sorted(maps.Keys(s.pixels))
}

// Configs returns the number of distinct pipeline configurations compiled.
func (s *State) Configs() int {
	return len(s.configs)
}

// HasConfig reports whether the given pipeline configuration was compiled.
func (s *State) HasConfig(cfg types.PipelineConfig) bool {
	_, ok := s.configs[cfg]

	return ok
}

func nonZeroModes(set map[string]struct{}) int {
	n := len(set)
	if _, ok := set[shared.ZeroModeLiteral]; ok {
		n--
	}

	return n
}

func anyBitSet(set map[string]struct{}, bit uint64) bool {
	for mode := range set {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(mode, "0x"), "0X"), 16, 64)
		if err != nil {
			continue
		}

		if v&bit != 0 {
			return true
		}
	}

	return false
}
