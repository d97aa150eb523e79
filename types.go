package jitlog

// Options configures log analysis.
type Options struct {
	// ErrorSamples is the number of error lines retained verbatim (default: 10).
	// The error count itself is never bounded.
	ErrorSamples int `yaml:"error_samples"`

	// RealisticPixelDiversity is the number of distinct non-zero pixel values above which
	// output is considered realistic (default: 10).
	RealisticPixelDiversity int `yaml:"realistic_pixel_diversity"`

	// PixelSample is how many non-zero pixel values are listed in the report (default: 16).
	PixelSample int `yaml:"pixel_sample"`

	// ProgressInterval is the number of lines between Progress calls (default: 1,000,000).
	ProgressInterval uint64 `yaml:"progress_interval"`

	// Progress, when set, is called every ProgressInterval lines with the running line count.
	Progress func(lines uint64) `yaml:"-"`
}

// DefaultOptions returns the thresholds used by the stock report.
func DefaultOptions() Options {
	return Options{
		ErrorSamples:            10,
		RealisticPixelDiversity: 10,
		PixelSample:             16,
		ProgressInterval:        1_000_000,
	}
}

func applyDefaults(opts *Options) {
	defaults := DefaultOptions()

	if opts.ErrorSamples <= 0 {
		opts.ErrorSamples = defaults.ErrorSamples
	}

	if opts.RealisticPixelDiversity <= 0 {
		opts.RealisticPixelDiversity = defaults.RealisticPixelDiversity
	}

	if opts.PixelSample <= 0 {
		opts.PixelSample = defaults.PixelSample
	}

	if opts.ProgressInterval == 0 {
		opts.ProgressInterval = defaults.ProgressInterval
	}
}
