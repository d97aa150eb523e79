package classify

import (
	"strings"

	"github.com/skiretic/voodoo-jitlog/internal/audit/shared"
)

// errorTokens are matched case-insensitively. Lines carrying the JIT prefix are never scanned,
// since mode names and hex literals routinely contain some of these words.
//
//nolint:gochecknoglobals // effectively const
var errorTokens = []string{
	"error", "fail", "crash", "overflow", "invalid", "abort",
	"sigill", "sigsegv", "sigbus", "rejected", "skip",
	"fault", "trap", "mprotect", "exceeded", "truncated",
}

// MatchesError reports whether a line outside the JIT's own output looks like a failure.
func MatchesError(line string) bool {
	if strings.Contains(line, shared.Prefix) {
		return false
	}

	lower := strings.ToLower(line)

	for _, tok := range errorTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}

	return false
}
