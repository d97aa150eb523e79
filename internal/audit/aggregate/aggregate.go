// Package aggregate folds classified log lines into running statistics.
//
// A State is created empty per analysis, mutated once per line by a single goroutine, and read
// through Summarize once the stream ends. All growth is in sets whose cardinality is bounded by
// the diversity of the system under test (addresses, configurations, colours, depth values),
// never by the number of lines.
package aggregate

import (
	"math"
	"strings"

	"github.com/skiretic/voodoo-jitlog/internal/audit/classify"
	"github.com/skiretic/voodoo-jitlog/internal/audit/shared"
	"github.com/skiretic/voodoo-jitlog/internal/types"
)

const (
	maxFogModeGroups = 64
	maxConfigGroups  = 256
)

// State is the mutable aggregation of one log.
type State struct {
	errorSamples int

	totalLines uint64
	lastLine   string

	init     *types.Init
	initLine uint64

	blocks     uint64
	cacheHits  uint64
	parity     map[uint64]uint64
	slots      map[uint64]struct{}
	codeAddrs  map[string]struct{}
	hasRecomp  bool
	recompMin  uint64
	recompMax  uint64
	xdir       map[int64]uint64
	fbzModes   map[string]struct{}
	colorPaths map[string]struct{}
	alphaModes map[string]struct{}
	texModes   map[string]struct{}
	fogModes   map[string]struct{}
	configs    map[types.PipelineConfig]struct{}

	fallbackDisabled uint64
	fallbackEmit     uint64
	rejectReasons    types.RejectReasons

	executes  uint64
	scanlines map[int64]struct{}

	posts       uint64
	pixelsTotal uint64
	pixelsMax   uint64
	pixelCounts map[uint64]uint64
	histogram   [types.BucketCount]uint64
	iterators   types.Iterators
	activeZ     map[string]struct{}

	pixelLines uint64
	pixels     map[string]struct{}

	errorCount  uint64
	errors      []types.ErrorLine
	interleaved uint64
	jitWarnings uint64

	mismatches    uint64
	pixelsDiffer  uint64
	byFog         []types.MismatchGroup
	byConfig      []types.MismatchGroup
	diffsParsed   uint64
	diffMagnitude [types.DiffMagCount]uint64
	maxAbsDR      int64
	maxAbsDG      int64
	maxAbsDB      int64
}

// New returns an empty state retaining at most errorSamples error lines.
func New(errorSamples int) *State {
	return &State{
		errorSamples: max(errorSamples, 0),
		parity:       make(map[uint64]uint64),
		slots:        make(map[uint64]struct{}),
		codeAddrs:    make(map[string]struct{}),
		xdir:         make(map[int64]uint64),
		fbzModes:     make(map[string]struct{}),
		colorPaths:   make(map[string]struct{}),
		alphaModes:   make(map[string]struct{}),
		texModes:     make(map[string]struct{}),
		fogModes:     make(map[string]struct{}),
		configs:      make(map[types.PipelineConfig]struct{}),
		scanlines:    make(map[int64]struct{}),
		pixelCounts:  make(map[uint64]uint64),
		activeZ:      make(map[string]struct{}),
		pixels:       make(map[string]struct{}),
	}
}

// InitAccepted reports whether an Init record has been folded. Later Init lines are discarded.
func (s *State) InitAccepted() bool {
	return s.init != nil
}

// Lines returns the number of lines folded so far.
func (s *State) Lines() uint64 {
	return s.totalLines
}

// Fold accounts for one raw line and its classification. The line's ordinal is its position in
// the sequence of Fold calls, starting at 1.
func (s *State) Fold(line string, rec types.Record) {
	s.totalLines++
	s.lastLine = line

	if classify.Interleaved(line) {
		s.interleaved++
	}

	switch rec.Kind {
	case types.KindInit:
		if s.init == nil && rec.Init != nil {
			initCopy := *rec.Init
			s.init = &initCopy
			s.initLine = s.totalLines
		}
	case types.KindGenerate:
		s.foldGenerate(rec.Generate)
	case types.KindCacheHit:
		s.cacheHits++
	case types.KindInterpreterFallback:
		s.foldFallback(rec)
	case types.KindExecute:
		s.executes++
		if rec.Execute != nil && rec.Execute.RealY >= 0 {
			s.scanlines[rec.Execute.RealY] = struct{}{}
		}
	case types.KindPost:
		s.foldPost(rec.Post)
	case types.KindPixels:
		s.pixelLines++
		for _, tok := range rec.Pixels.Tokens {
			s.pixels[tok] = struct{}{}
		}
	case types.KindVerifyMismatch:
		s.foldVerifyMismatch(rec.VerifyMismatch)
		s.recordError(s.totalLines, line)
	case types.KindPixelDiff:
		s.foldPixelDiff(rec.PixelDiff)
	case types.KindJITWarning:
		s.jitWarnings++
	case types.KindUnmatched:
		if !rec.Suppressed && classify.MatchesError(line) {
			s.recordError(s.totalLines, line)
		}
	}
}

func (s *State) foldGenerate(gen *types.Generate) {
	s.blocks++
	s.parity[gen.Parity]++
	s.slots[gen.BlockSlot] = struct{}{}
	s.codeAddrs[gen.CodeAddress] = struct{}{}

	s.observeRecomp(gen.RecompileCounter, gen.RecompileCounter)

	s.fbzModes[gen.FbzMode] = struct{}{}
	s.colorPaths[gen.FbzColorPath] = struct{}{}
	s.alphaModes[gen.AlphaMode] = struct{}{}
	s.texModes[gen.TextureMode0] = struct{}{}
	s.fogModes[gen.FogMode] = struct{}{}
	s.xdir[gen.XDirection]++
	s.configs[gen.Config()] = struct{}{}
}

func (s *State) observeRecomp(lo, hi uint64) {
	if !s.hasRecomp {
		s.hasRecomp = true
		s.recompMin = lo
		s.recompMax = hi

		return
	}

	s.recompMin = min(s.recompMin, lo)
	s.recompMax = max(s.recompMax, hi)
}

func (s *State) foldFallback(rec types.Record) {
	switch rec.Fallback {
	case types.FallbackDisabledOrNull:
		s.fallbackDisabled++
	case types.FallbackEmitOverflow:
		s.fallbackEmit++

		switch rec.RejectReason {
		case "wx_write_enable_failed":
			s.rejectReasons.WXWriteEnableFailed++
		case "wx_exec_enable_failed":
			s.rejectReasons.WXExecEnableFailed++
		case "emit_overflow":
			s.rejectReasons.EmitOverflow++
		default:
			s.rejectReasons.Other++
		}
	}
}

func (s *State) foldPost(post *types.Post) {
	s.posts++
	s.pixelsTotal += post.PixelCount
	s.pixelsMax = max(s.pixelsMax, post.PixelCount)
	s.pixelCounts[post.PixelCount]++
	s.histogram[types.BucketFor(post.PixelCount)]++

	if post.IR < 0 {
		s.iterators.NegativeIR++
	}

	if post.IG < 0 {
		s.iterators.NegativeIG++
	}

	if post.IB < 0 {
		s.iterators.NegativeIB++
	}

	if post.IA < 0 {
		s.iterators.NegativeIA++
	}

	if post.Z != shared.ZeroZLiteral {
		s.activeZ[post.Z] = struct{}{}
	}
}

func (s *State) foldVerifyMismatch(vm *types.VerifyMismatch) {
	s.mismatches++
	s.pixelsDiffer += vm.PixelsDiffer

	s.byFog = bumpGroup(s.byFog, types.MismatchGroup{FogMode: vm.FogMode}, 1, vm.PixelsDiffer, maxFogModeGroups)
	s.byConfig = bumpGroup(s.byConfig, types.MismatchGroup{
		FbzMode:      vm.FbzMode,
		FbzColorPath: vm.FbzColorPath,
		AlphaMode:    vm.AlphaMode,
		TextureMode:  vm.TextureMode,
		FogMode:      vm.FogMode,
	}, 1, vm.PixelsDiffer, maxConfigGroups)
}

// bumpGroup adds to the group matching key's registers, appending it when there is room.
func bumpGroup(groups []types.MismatchGroup, key types.MismatchGroup, count, differ uint64, limit int) []types.MismatchGroup {
	for i := range groups {
		g := &groups[i]
		if g.FbzMode == key.FbzMode && g.FbzColorPath == key.FbzColorPath && g.AlphaMode == key.AlphaMode &&
			g.TextureMode == key.TextureMode && g.FogMode == key.FogMode {
			g.Count += count
			g.PixelsDiffer += differ

			return groups
		}
	}

	if len(groups) >= limit {
		return groups
	}

	key.Count = count
	key.PixelsDiffer = differ

	return append(groups, key)
}

func (s *State) foldPixelDiff(diff *types.PixelDiff) {
	s.diffsParsed++

	adr, adg, adb := abs(diff.DR), abs(diff.DG), abs(diff.DB)
	s.maxAbsDR = max(s.maxAbsDR, adr)
	s.maxAbsDG = max(s.maxAbsDG, adg)
	s.maxAbsDB = max(s.maxAbsDB, adb)
	s.diffMagnitude[types.DiffMagFor(max(adr, adg, adb))]++
}

func (s *State) recordError(number uint64, line string) {
	s.errorCount++

	if len(s.errors) < s.errorSamples {
		s.errors = append(s.errors, types.ErrorLine{Number: number, Text: strings.TrimSpace(line)})
	}
}

// abs saturates at math.MaxInt64, since -math.MinInt64 does not fit.
func abs(v int64) int64 {
	switch {
	case v == math.MinInt64:
		return math.MaxInt64
	case v < 0:
		return -v
	}

	return v
}
