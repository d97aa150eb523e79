package types

// Kind identifies which record shape a log line was classified as.
type Kind int

const (
	KindUnmatched Kind = iota
	KindInit
	KindGenerate
	KindCacheHit
	KindInterpreterFallback
	KindExecute
	KindPost
	KindPixels
	KindVerifyMismatch
	KindPixelDiff
	KindJITWarning
)

func (k Kind) String() string {
	switch k {
	case KindUnmatched:
		return "unmatched"
	case KindInit:
		return "init"
	case KindGenerate:
		return "generate"
	case KindCacheHit:
		return "cache-hit"
	case KindInterpreterFallback:
		return "interpreter-fallback"
	case KindExecute:
		return "execute"
	case KindPost:
		return "post"
	case KindPixels:
		return "pixels"
	case KindVerifyMismatch:
		return "verify-mismatch"
	case KindPixelDiff:
		return "pixel-diff"
	case KindJITWarning:
		return "jit-warning"
	}

	return "unknown"
}

// FallbackReason separates configuration fallbacks from code-generation capacity fallbacks.
type FallbackReason int

const (
	FallbackDisabledOrNull FallbackReason = iota
	FallbackEmitOverflow
)

func (r FallbackReason) String() string {
	switch r {
	case FallbackDisabledOrNull:
		return "disabled_or_null"
	case FallbackEmitOverflow:
		return "emit_overflow"
	}

	return "unknown"
}

// Init is the JIT startup configuration line.
type Init struct {
	RenderThreads     uint64
	RecompilerEnabled bool
	DebugLevel        uint64
}

// Generate is a compiled block. Hex fields keep the exact text found in the log.
type Generate struct {
	SequenceID       uint64
	Parity           uint64
	BlockSlot        uint64
	CodeAddress      string
	RecompileCounter uint64
	FbzMode          string
	FbzColorPath     string
	AlphaMode        string
	TextureMode0     string
	FogMode          string
	XDirection       int64
}

// Config returns the pipeline configuration tuple of the block.
func (g *Generate) Config() PipelineConfig {
	return PipelineConfig{
		FbzMode:      g.FbzMode,
		FbzColorPath: g.FbzColorPath,
		AlphaMode:    g.AlphaMode,
		TextureMode0: g.TextureMode0,
		FogMode:      g.FogMode,
		XDirection:   g.XDirection,
	}
}

// PipelineConfig is the 6-tuple used as a proxy for rasterizer configuration coverage.
type PipelineConfig struct {
	FbzMode      string
	FbzColorPath string
	AlphaMode    string
	TextureMode0 string
	FogMode      string
	XDirection   int64
}

// Execute is a call into a compiled block. RealY is -1 when the line does not carry it.
type Execute struct {
	SequenceID  uint64
	CodeAddress string
	X           uint64
	X2          uint64
	RealY       int64
}

// Post is the per-span write-back record.
// Iterators are signed: negative values come from signed Gouraud interpolation and are normal.
type Post struct {
	IB         int64
	IG         int64
	IR         int64
	IA         int64
	Z          string
	PixelCount uint64
}

// Pixels is a scanline dump. Tokens holds only the well-formed 4-hex-digit values.
type Pixels struct {
	Y      uint64
	XStart uint64
	XEnd   uint64
	Tokens []string
}

// VerifyMismatch is a divergence reported by the JIT verifier against the interpreter.
// Register fields are zero when absent from the line.
type VerifyMismatch struct {
	PixelsDiffer uint64
	PixelsTotal  uint64
	FbzMode      uint32
	FbzColorPath uint32
	AlphaMode    uint32
	TextureMode  uint32
	FogMode      uint32
}

// PixelDiff is a single per-pixel colour delta following a verify mismatch.
type PixelDiff struct {
	DR int64
	DG int64
	DB int64
}

// Record is the classified form of one log line. Exactly one payload matching Kind is set.
type Record struct {
	Kind Kind

	Init           *Init
	Generate       *Generate
	Fallback       FallbackReason
	RejectReason   string
	Execute        *Execute
	Post           *Post
	Pixels         *Pixels
	VerifyMismatch *VerifyMismatch
	PixelDiff      *PixelDiff

	// Suppressed marks an Unmatched line that carried a known marker but failed the strict field match.
	// Such lines are ignored entirely, including by the error scan.
	Suppressed bool
}

// ErrorLine is a retained error-pattern match.
type ErrorLine struct {
	Number uint64
	Text   string
}

// Verdict is the overall health classification of a run.
type Verdict int

const (
	VerdictJITNotActive Verdict = iota
	VerdictCompilingNotExecuting
	VerdictFunctionalWithWarnings
	VerdictFunctionalWithFallbacks
	VerdictHealthy
)

// Verdicts lists every verdict, worst first.
//
//nolint:gochecknoglobals // effectively const
var Verdicts = []Verdict{
	VerdictJITNotActive,
	VerdictCompilingNotExecuting,
	VerdictFunctionalWithWarnings,
	VerdictFunctionalWithFallbacks,
	VerdictHealthy,
}

func (v Verdict) String() string {
	switch v {
	case VerdictHealthy:
		return "HEALTHY"
	case VerdictFunctionalWithFallbacks:
		return "FUNCTIONAL_WITH_FALLBACKS"
	case VerdictFunctionalWithWarnings:
		return "FUNCTIONAL_WITH_WARNINGS"
	case VerdictCompilingNotExecuting:
		return "COMPILING_NOT_EXECUTING"
	case VerdictJITNotActive:
		return "JIT_NOT_ACTIVE"
	}

	return "UNKNOWN"
}

// Description is the human-readable verdict line.
func (v Verdict) Description() string {
	switch v {
	case VerdictHealthy:
		return "HEALTHY"
	case VerdictFunctionalWithFallbacks:
		return "FUNCTIONAL WITH INTERPRETER FALLBACKS"
	case VerdictFunctionalWithWarnings:
		return "FUNCTIONAL WITH WARNINGS"
	case VerdictCompilingNotExecuting:
		return "COMPILING BUT NOT EXECUTING"
	case VerdictJITNotActive:
		return "JIT NOT ACTIVE"
	}

	return "UNKNOWN"
}

// ParseVerdict accepts either the enum name or the description.
func ParseVerdict(s string) (Verdict, bool) {
	for _, v := range Verdicts {
		if s == v.String() || s == v.Description() {
			return v, true
		}
	}

	return 0, false
}

// Pixel count buckets, upper-inclusive.
const (
	Bucket1 = iota
	Bucket2To10
	Bucket11To100
	Bucket101To320
	Bucket321Plus
	BucketCount
)

// BucketLabels are the display labels of the pixel count histogram, indexed by bucket.
var BucketLabels = [BucketCount]string{"1", "2-10", "11-100", "101-320", "321+"} //nolint:gochecknoglobals // effectively const

// BucketFor returns the histogram bucket of a pixel count. Zero lands in the first bucket.
func BucketFor(pixelCount uint64) int {
	switch {
	case pixelCount <= 1:
		return Bucket1
	case pixelCount <= 10:
		return Bucket2To10
	case pixelCount <= 100:
		return Bucket11To100
	case pixelCount <= 320:
		return Bucket101To320
	default:
		return Bucket321Plus
	}
}

// Pixel diff magnitude buckets, by the largest absolute channel delta.
const (
	DiffMag0To1 = iota
	DiffMag2To3
	DiffMag4To6
	DiffMag7Plus
	DiffMagCount
)

// DiffMagLabels are the display labels of the pixel diff magnitude histogram.
var DiffMagLabels = [DiffMagCount]string{"0-1", "2-3", "4-6", "7+"} //nolint:gochecknoglobals // effectively const

// DiffMagFor returns the magnitude bucket for a maximum absolute channel delta.
func DiffMagFor(maxAbs int64) int {
	switch {
	case maxAbs <= 1:
		return DiffMag0To1
	case maxAbs <= 3:
		return DiffMag2To3
	case maxAbs <= 6:
		return DiffMag4To6
	default:
		return DiffMag7Plus
	}
}

/*
Pixel Diversity Interpretation

| Non-zero unique values | Diversity   | Meaning                                      |
|------------------------|-------------|----------------------------------------------|
| > 10                   | realistic   | Real scenes are being rasterized.            |
| 1 to 10                | low         | Flat fills or a very early boot screen.      |
| 0, pixel lines present | all-zero    | Output is black. Rendering issue or boot.    |
| 0, no pixel lines      | none        | Pixel dumping was not enabled.               |
*/

// PixelDiversity classifies the spread of non-zero pixel values.
type PixelDiversity int

const (
	DiversityNone PixelDiversity = iota
	DiversityAllZero
	DiversityLow
	DiversityRealistic
)

func (d PixelDiversity) String() string {
	switch d {
	case DiversityNone:
		return "none"
	case DiversityAllZero:
		return "all-zero"
	case DiversityLow:
		return "low"
	case DiversityRealistic:
		return "realistic"
	}

	return "unknown"
}

// RejectReasons tallies the reason tokens of emit-overflow rejects.
type RejectReasons struct {
	WXWriteEnableFailed uint64
	WXExecEnableFailed  uint64
	EmitOverflow        uint64
	Other               uint64
}

// Compilation summarizes Generate, cache and fallback activity.
type Compilation struct {
	Blocks              uint64
	CacheHits           uint64
	UniqueCodeAddresses int
	BlockSlots          []uint64 // sorted
	Even                uint64
	Odd                 uint64
	ParityBalanced      bool
	XDirPositive        uint64
	XDirNegative        uint64
	XDirBalanced        bool
	HasRecompRange      bool
	RecompMin           uint64
	RecompMax           uint64

	FallbacksDisabledOrNull uint64
	FallbacksEmitOverflow   uint64
	FallbacksTotal          uint64
	RejectReasons           RejectReasons
}

// Errors summarizes error-pattern matches and stream hygiene.
type Errors struct {
	Count              uint64
	Samples            []ErrorLine
	Interleaved        uint64
	InterleavedPercent float64
	LastLine           string
	EndsCleanly        bool
	JITWarnings        uint64
}

// Execution summarizes Execute and Post activity.
type Execution struct {
	Executes        uint64
	UniqueScanlines int
	Posts           uint64
	PixelsTotal     uint64
	PixelsMax       uint64
	PixelsMean      float64
	PixelsStdDev    float64
	PixelsMedian    float64
	Histogram       [BucketCount]uint64
}

// Coverage summarizes pipeline-mode register diversity.
type Coverage struct {
	UniqueConfigs  int
	FbzModes       int
	ColorPaths     int
	SoleColorPath  string // set when exactly one fbzColorPath was observed
	TextureModes   int
	TextureNonZero int
	AlphaModes     int
	AlphaNonZero   int
	FogModes       int
	FogNonZero     int
	ActiveZ        int
	Dither         bool
}

// PixelOutput summarizes the dumped pixel values.
type PixelOutput struct {
	Lines     uint64
	Unique    int
	NonZero   int
	Diversity PixelDiversity
	Sample    []string // sorted, bounded
}

// Iterators counts negative iterator values per channel.
type Iterators struct {
	NegativeIR uint64
	NegativeIG uint64
	NegativeIB uint64
	NegativeIA uint64
}

// Total returns the sum over all channels.
func (it Iterators) Total() uint64 {
	return it.NegativeIR + it.NegativeIG + it.NegativeIB + it.NegativeIA
}

// MismatchGroup is a verify mismatch breakdown entry.
type MismatchGroup struct {
	FbzMode      uint32
	FbzColorPath uint32
	AlphaMode    uint32
	TextureMode  uint32
	FogMode      uint32
	Count        uint64
	PixelsDiffer uint64
}

// Verification summarizes JIT-vs-interpreter verification output.
type Verification struct {
	Mismatches    uint64
	PixelsDiffer  uint64
	ByFogMode     []MismatchGroup // only FogMode, Count, PixelsDiffer are meaningful
	ByConfig      []MismatchGroup
	DiffsParsed   uint64
	DiffMagnitude [DiffMagCount]uint64
	MaxAbsDR      int64
	MaxAbsDG      int64
	MaxAbsDB      int64
}

// Report is the structured end-of-stream summary of a log.
type Report struct {
	TotalLines uint64

	Init                  *Init // nil when the log carries no INIT line
	InitLine              uint64
	InferredRenderThreads int

	Compilation  Compilation
	Errors       Errors
	Execution    Execution
	Coverage     Coverage
	Pixels       PixelOutput
	Iterators    Iterators
	Verification Verification

	Verdict Verdict
}
