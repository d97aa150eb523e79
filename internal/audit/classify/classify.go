// Package classify turns single JIT log lines into typed records.
//
// Matching is two-stage: a cheap substring probe selects a candidate shape, then a strict
// field pattern confirms it. Rules are tried in priority order and the first confirmed match wins.
// Some shapes swallow the line when the probe hits but the fields do not (format drift, or
// a torn write from a racing render thread): the line is then reported as a suppressed Unmatched
// record and is not counted as anything, not even as an error.
package classify

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/skiretic/voodoo-jitlog/internal/audit/shared"
	"github.com/skiretic/voodoo-jitlog/internal/types"
)

//nolint:gochecknoglobals // compiled once, read-only
var (
	initRe = regexp.MustCompile(
		`VOODOO JIT: INIT\s+render_threads=(\d+)\s+use_recompiler=(\d+)\s+jit_debug=(\d+)`,
	)

	generateRe = regexp.MustCompile(
		`VOODOO JIT: GENERATE #(\d+)\s+` +
			`odd_even=(\d+)\s+` +
			`block=(\d+)\s+` +
			`code=(0x[0-9a-fA-F]+)\s+` +
			`recomp=(\d+)\s+` +
			`fbzMode=(0x[0-9a-fA-F]+)\s+` +
			`fbzColorPath=(0x[0-9a-fA-F]+)\s+` +
			`alphaMode=(0x[0-9a-fA-F]+)\s+` +
			`textureMode\[0\]=(0x[0-9a-fA-F]+)\s+` +
			`fogMode=(0x[0-9a-fA-F]+)\s+` +
			`xdir=(-?\d+)`,
	)

	rejectRe = regexp.MustCompile(`VOODOO JIT: REJECT.*interpreter fallback`)

	executeRe = regexp.MustCompile(
		`VOODOO JIT: EXECUTE #(\d+)\s+code=(0x[0-9a-fA-F]+)\s+x=(\d+)\s+x2=(\d+)(?:\s+real_y=(-?\d+))?`,
	)

	postRe = regexp.MustCompile(
		`VOODOO JIT POST:\s+` +
			`ib=(-?\d+)\s+ig=(-?\d+)\s+ir=(-?\d+)\s+ia=(-?\d+)\s+` +
			`z=([0-9a-fA-F]+)\s+` +
			`pixel_count=(\d+)`,
	)

	pixelsRe = regexp.MustCompile(`VOODOO JIT PIXELS y=(\d+) x=(\d+)\.\.(\d+):\s*(.*)`)

	pixelsDifferRe = regexp.MustCompile(`\((\d+)/(\d+) pixels differ\)`)
	fbzModeRe      = regexp.MustCompile(`fbzMode=(0x[0-9a-fA-F]+)`)
	fbzColorPathRe = regexp.MustCompile(`fbzColorPath=(0x[0-9a-fA-F]+)`)
	alphaModeRe    = regexp.MustCompile(`alphaMode=(0x[0-9a-fA-F]+)`)
	textureModeRe  = regexp.MustCompile(`textureMode(?:\[0\])?=(0x[0-9a-fA-F]+)`)
	fogModeRe      = regexp.MustCompile(`fogMode=(0x[0-9a-fA-F]+)`)

	diffRe = regexp.MustCompile(`dR=([+-]?\d+).*?dG=([+-]?\d+).*?dB=([+-]?\d+)`)
)

// rule is one entry of the dispatch table.
type rule struct {
	// probe is the cheap substring test. A rule whose probe fails is skipped.
	probe func(line string, initAccepted bool) bool
	// match is the strict structured test.
	match func(line string) (types.Record, bool)
	// swallow ignores the line when the probe hits and match fails, instead of trying later rules.
	swallow bool
}

//nolint:gochecknoglobals // dispatch table, effectively const
var rules = []rule{
	{
		probe: func(line string, initAccepted bool) bool { return !initAccepted && strings.Contains(line, "INIT") },
		match: matchInit,
	},
	{
		probe: contains("GENERATE"),
		match: matchGenerate,
	},
	{
		probe: contains(shared.Prefix + ": cache HIT"),
		match: always(types.Record{Kind: types.KindCacheHit}),
	},
	{
		probe: contains("INTERPRETER FALLBACK"),
		match: always(types.Record{Kind: types.KindInterpreterFallback, Fallback: types.FallbackDisabledOrNull}),
	},
	{
		probe: contains("REJECT"),
		match: matchReject,
	},
	{
		probe:   contains("EXECUTE"),
		match:   matchExecute,
		swallow: true,
	},
	{
		probe: contains(shared.Prefix + " POST:"),
		match: matchPost,
	},
	{
		probe:   contains("PIXELS"),
		match:   matchPixels,
		swallow: true,
	},
	{
		probe: func(line string, _ bool) bool {
			return strings.HasPrefix(line, "VERIFY MISMATCH") && !strings.Contains(line, shared.Prefix)
		},
		match: matchVerifyMismatch,
	},
	{
		probe: func(line string, _ bool) bool {
			return !strings.Contains(line, shared.Prefix) &&
				strings.Contains(line, "pixel[") && strings.Contains(line, "dR=")
		},
		match:   matchPixelDiff,
		swallow: true,
	},
	{
		probe: contains(shared.Prefix + ": WARN"),
		match: always(types.Record{Kind: types.KindJITWarning}),
	},
}

// Classify returns the record for one line. It never fails: anything that does not fit a known
// shape is Unmatched. initAccepted must be true once an Init record has been folded, so that
// later INIT lines are no longer considered.
func Classify(line string, initAccepted bool) types.Record {
	for _, r := range rules {
		if !r.probe(line, initAccepted) {
			continue
		}

		if rec, ok := r.match(line); ok {
			return rec
		}

		if r.swallow {
			return types.Record{Kind: types.KindUnmatched, Suppressed: true}
		}
	}

	return types.Record{Kind: types.KindUnmatched}
}

// Interleaved reports whether two writers' output landed on the same line.
func Interleaved(line string) bool {
	return strings.Count(line, shared.Prefix) >= 2
}

func contains(marker string) func(string, bool) bool {
	return func(line string, _ bool) bool {
		return strings.Contains(line, marker)
	}
}

func always(rec types.Record) func(string) (types.Record, bool) {
	return func(string) (types.Record, bool) {
		return rec, true
	}
}

func matchInit(line string) (types.Record, bool) {
	m := initRe.FindStringSubmatch(line)
	if m == nil {
		return types.Record{}, false
	}

	threads, ok1 := parseUint(m[1])
	recompiler, ok2 := parseUint(m[2])
	debug, ok3 := parseUint(m[3])

	if !ok1 || !ok2 || !ok3 {
		return types.Record{}, false
	}

	return types.Record{
		Kind: types.KindInit,
		Init: &types.Init{
			RenderThreads:     threads,
			RecompilerEnabled: recompiler != 0,
			DebugLevel:        debug,
		},
	}, true
}

func matchGenerate(line string) (types.Record, bool) {
	m := generateRe.FindStringSubmatch(line)
	if m == nil {
		return types.Record{}, false
	}

	seq, ok1 := parseUint(m[1])
	parity, ok2 := parseUint(m[2])
	slot, ok3 := parseUint(m[3])
	recomp, ok4 := parseUint(m[5])
	xdir, ok5 := parseInt(m[11])

	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return types.Record{}, false
	}

	return types.Record{
		Kind: types.KindGenerate,
		Generate: &types.Generate{
			SequenceID:       seq,
			Parity:           parity,
			BlockSlot:        slot,
			CodeAddress:      m[4],
			RecompileCounter: recomp,
			FbzMode:          m[6],
			FbzColorPath:     m[7],
			AlphaMode:        m[8],
			TextureMode0:     m[9],
			FogMode:          m[10],
			XDirection:       xdir,
		},
	}, true
}

func matchReject(line string) (types.Record, bool) {
	if !rejectRe.MatchString(line) {
		return types.Record{}, false
	}

	return types.Record{
		Kind:         types.KindInterpreterFallback,
		Fallback:     types.FallbackEmitOverflow,
		RejectReason: rejectReason(line),
	}, true
}

// rejectReason extracts the reason token following the REJECT keyword.
func rejectReason(line string) string {
	idx := strings.Index(line, "REJECT")
	rest := line[idx+len("REJECT"):]

	for _, reason := range []string{"wx_write_enable_failed", "emit_overflow", "wx_exec_enable_failed"} {
		if strings.Contains(rest, reason) {
			return reason
		}
	}

	return ""
}

func matchExecute(line string) (types.Record, bool) {
	m := executeRe.FindStringSubmatch(line)
	if m == nil {
		return types.Record{}, false
	}

	seq, ok1 := parseUint(m[1])
	x, ok2 := parseUint(m[3])
	x2, ok3 := parseUint(m[4])

	if !ok1 || !ok2 || !ok3 {
		return types.Record{}, false
	}

	realY := int64(-1)

	if m[5] != "" {
		if y, ok := parseInt(m[5]); ok && y >= 0 {
			realY = y
		}
	}

	return types.Record{
		Kind: types.KindExecute,
		Execute: &types.Execute{
			SequenceID:  seq,
			CodeAddress: m[2],
			X:           x,
			X2:          x2,
			RealY:       realY,
		},
	}, true
}

func matchPost(line string) (types.Record, bool) {
	m := postRe.FindStringSubmatch(line)
	if m == nil {
		return types.Record{}, false
	}

	ib, ok1 := parseInt(m[1])
	ig, ok2 := parseInt(m[2])
	ir, ok3 := parseInt(m[3])
	ia, ok4 := parseInt(m[4])
	count, ok5 := parseUint(m[6])

	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return types.Record{}, false
	}

	return types.Record{
		Kind: types.KindPost,
		Post: &types.Post{
			IB:         ib,
			IG:         ig,
			IR:         ir,
			IA:         ia,
			Z:          m[5],
			PixelCount: count,
		},
	}, true
}

func matchPixels(line string) (types.Record, bool) {
	m := pixelsRe.FindStringSubmatch(line)
	if m == nil {
		return types.Record{}, false
	}

	y, ok1 := parseUint(m[1])
	xStart, ok2 := parseUint(m[2])
	xEnd, ok3 := parseUint(m[3])

	if !ok1 || !ok2 || !ok3 {
		return types.Record{}, false
	}

	var tokens []string

	for tok := range strings.FieldsSeq(m[4]) {
		if IsPixelToken(tok) {
			tokens = append(tokens, tok)
		}
	}

	return types.Record{
		Kind: types.KindPixels,
		Pixels: &types.Pixels{
			Y:      y,
			XStart: xStart,
			XEnd:   xEnd,
			Tokens: tokens,
		},
	}, true
}

// IsPixelToken reports whether tok is exactly four hex digits, in either case.
func IsPixelToken(tok string) bool {
	if len(tok) != 4 {
		return false
	}

	for i := range len(tok) {
		if !isHex(tok[i]) {
			return false
		}
	}

	return true
}

func matchVerifyMismatch(line string) (types.Record, bool) {
	vm := &types.VerifyMismatch{
		FbzMode:      hexField(fbzModeRe, line),
		FbzColorPath: hexField(fbzColorPathRe, line),
		AlphaMode:    hexField(alphaModeRe, line),
		TextureMode:  hexField(textureModeRe, line),
		FogMode:      hexField(fogModeRe, line),
	}

	if m := pixelsDifferRe.FindStringSubmatch(line); m != nil {
		differ, okDiffer := parseUint(m[1])
		total, okTotal := parseUint(m[2])

		// Out-of-range counts are dropped as a pair; the mismatch event itself still counts.
		if okDiffer && okTotal {
			vm.PixelsDiffer, vm.PixelsTotal = differ, total
		}
	}

	return types.Record{Kind: types.KindVerifyMismatch, VerifyMismatch: vm}, true
}

func matchPixelDiff(line string) (types.Record, bool) {
	m := diffRe.FindStringSubmatch(line)
	if m == nil {
		return types.Record{}, false
	}

	dr, ok1 := parseInt(strings.TrimPrefix(m[1], "+"))
	dg, ok2 := parseInt(strings.TrimPrefix(m[2], "+"))
	db, ok3 := parseInt(strings.TrimPrefix(m[3], "+"))

	if !ok1 || !ok2 || !ok3 {
		return types.Record{}, false
	}

	return types.Record{
		Kind:      types.KindPixelDiff,
		PixelDiff: &types.PixelDiff{DR: dr, DG: dg, DB: db},
	}, true
}

// hexField returns the value of the first "key=0x..." match, truncated to 32 bits, or 0.
func hexField(re *regexp.Regexp, line string) uint32 {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0
	}

	v, err := strconv.ParseUint(m[1][2:], 16, 64)
	if err != nil {
		return 0
	}

	return uint32(v) //nolint:gosec // registers are 32-bit, truncation is intended
}

func parseUint(s string) (uint64, bool) {
	v, err := strconv.ParseUint(s, 10, 64)

	return v, err == nil
}

func parseInt(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)

	return v, err == nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
