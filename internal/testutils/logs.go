package testutils

import (
	"fmt"
	"strings"
)

// Mode is the register set printed on a GENERATE line.
type Mode struct {
	FbzMode      uint32
	FbzColorPath uint32
	AlphaMode    uint32
	TextureMode  uint32
	FogMode      uint32
}

// InitLine renders an INIT line.
func InitLine(threads, recompiler, debug int) string {
	return fmt.Sprintf("VOODOO JIT: INIT render_threads=%d use_recompiler=%d jit_debug=%d", threads, recompiler, debug)
}

// GenerateLine renders a GENERATE line.
func GenerateLine(seq, parity, slot int, code string, recomp int, mode Mode, xdir int) string {
	return fmt.Sprintf("VOODOO JIT: GENERATE #%d odd_even=%d block=%d code=%s recomp=%d "+
		"fbzMode=0x%08x fbzColorPath=0x%08x alphaMode=0x%08x textureMode[0]=0x%08x fogMode=0x%08x xdir=%d",
		seq, parity, slot, code, recomp,
		mode.FbzMode, mode.FbzColorPath, mode.AlphaMode, mode.TextureMode, mode.FogMode, xdir)
}

// ExecuteLine renders an EXECUTE line with a real_y field.
func ExecuteLine(seq int, code string, x, x2, realY int) string {
	return fmt.Sprintf("VOODOO JIT: EXECUTE #%d code=%s x=%d x2=%d real_y=%d", seq, code, x, x2, realY)
}

// PostLine renders a POST line.
func PostLine(ib, ig, ir, ia int, z string, pixelCount int) string {
	return fmt.Sprintf("VOODOO JIT POST: ib=%d ig=%d ir=%d ia=%d z=%s pixel_count=%d", ib, ig, ir, ia, z, pixelCount)
}

// PixelsLine renders a PIXELS dump line.
func PixelsLine(y, x0, x1 int, tokens ...string) string {
	return fmt.Sprintf("VOODOO JIT PIXELS y=%d x=%d..%d: %s", y, x0, x1, strings.Join(tokens, " "))
}

// RejectLine renders an emit-overflow REJECT line.
func RejectLine(reason string) string {
	return fmt.Sprintf("VOODOO JIT: REJECT block=3 reason=%s, using interpreter fallback", reason)
}

// FallbackLine renders a disabled-or-null interpreter fallback line.
func FallbackLine() string {
	return "VOODOO JIT: INTERPRETER FALLBACK use_recompiler=0 block=NULL"
}

// CacheHitLine renders a cache hit line.
func CacheHitLine(code string) string {
	return "VOODOO JIT: cache HIT code=" + code
}

// HealthyLog is a small log whose verdict is HEALTHY: compiled blocks on both parities, both
// directions, scanlines written with depth, and more than ten distinct non-zero pixel values.
func HealthyLog() string {
	textured := Mode{FbzMode: 0x00000100, FbzColorPath: 0x0c000035, AlphaMode: 0x00000001, TextureMode: 0x0824101f}
	flat := Mode{FbzMode: 0x00000300, FbzColorPath: 0x08000001}

	lines := []string{
		InitLine(2, 1, 1),
		GenerateLine(1, 0, 0, "0x7f0000001000", 1, textured, 1),
		GenerateLine(2, 1, 1, "0x7f0000002000", 1, flat, -1),
		CacheHitLine("0x7f0000001000"),
		ExecuteLine(1, "0x7f0000001000", 10, 20, 5),
		PostLine(100, 200, 300, 255, "0000ffff", 10),
		ExecuteLine(2, "0x7f0000002000", 0, 400, 6),
		PostLine(-4, 12, 7, 255, "0000fffe", 400),
		PixelsLine(5, 10, 21, "f800", "07e0", "001f", "ffff", "1234", "4321", "abcd", "dcba", "0f0f", "f0f0", "5555", "0000"),
		GenerateLine(3, 0, 2, "0x7f0000003000", 2, textured, 1),
	}

	return strings.Join(lines, "\n") + "\n"
}

// FallbackLog is HealthyLog plus one emit-overflow reject.
func FallbackLog() string {
	return HealthyLog() + RejectLine("emit_overflow") + "\n" + GenerateLine(4, 1, 0, "0x7f0000004000", 3, Mode{}, 1) + "\n"
}

// CompileOnlyLog compiles a block but never posts a scanline.
func CompileOnlyLog() string {
	return InitLine(1, 1, 1) + "\n" + GenerateLine(1, 0, 0, "0x7f0000001000", 1, Mode{}, 1) + "\n"
}

// NoJITLog carries no JIT activity at all.
func NoJITLog() string {
	return "starting emulator\nloading roms\nvoodoo: card initialized\n"
}
