//nolint:tagliatelle
package main

// Record is a single line in the JSONL report file.
type Record struct {
	File     string         `json:"file,omitempty"`
	Codec    string         `json:"codec,omitempty"`
	Size     int64          `json:"size"`
	Analysis map[string]any `json:"analysis,omitempty"`
	Error    string         `json:"error,omitempty"`
	Timing   *RecordTiming  `json:"timing,omitempty"`
}

// RecordTiming captures per-file processing durations in milliseconds.
type RecordTiming struct {
	OpenMs    float64 `json:"open_ms"`
	AnalyzeMs float64 `json:"analyze_ms"`
	TotalMs   float64 `json:"total_ms"`
}

// digestRecord holds the typed fields needed by the digest command.
type digestRecord struct {
	File     string          `json:"file,omitempty"`
	Size     int64           `json:"size"`
	Analysis *digestAnalysis `json:"analysis,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type digestAnalysis struct {
	Summary     digestSummary     `json:"summary"`
	Compilation digestCompilation `json:"compilation"`
	Errors      digestErrors      `json:"errors"`
	Execution   digestExecution   `json:"execution"`
}

type digestSummary struct {
	Verdict     string `json:"verdict"`
	Description string `json:"description"`
	WorstStatus string `json:"worst_status"`
	TotalLines  uint64 `json:"total_lines"`
}

type digestCompilation struct {
	Blocks    uint64          `json:"blocks"`
	Fallbacks digestFallbacks `json:"fallbacks"`
}

type digestFallbacks struct {
	Total uint64 `json:"total"`
}

type digestErrors struct {
	Count uint64 `json:"count"`
}

type digestExecution struct {
	Posts uint64 `json:"posts"`
}

// verdictBreakdown tracks per-verdict totals for the digest.
type verdictBreakdown struct {
	Verdict   string
	Files     int
	Lines     uint64
	Errors    uint64
	Fallbacks uint64
}
