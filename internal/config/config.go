// Package config loads analysis thresholds from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/farcloser/primordium/fault"
	"gopkg.in/yaml.v3"

	jitlog "github.com/skiretic/voodoo-jitlog"
)

var (
	// ErrInvalidConfig is returned when the configuration file cannot be decoded or holds bad values.
	ErrInvalidConfig = errors.New("invalid configuration")

	errNegativeValue = errors.New("must not be negative")
)

// Load reads path and overlays it on the default options. Keys absent from the file keep their
// defaults. Unknown keys are rejected.
func Load(path string) (jitlog.Options, error) {
	opts := jitlog.DefaultOptions()

	file, err := os.Open(path) //nolint:gosec // user-specified config file
	if err != nil {
		return opts, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	if err = decoder.Decode(&opts); err != nil {
		if errors.Is(err, io.EOF) {
			return opts, nil
		}

		return opts, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	if err = validate(opts); err != nil {
		return opts, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	return opts, nil
}

func validate(opts jitlog.Options) error {
	for name, value := range map[string]int{
		"error_samples":             opts.ErrorSamples,
		"realistic_pixel_diversity": opts.RealisticPixelDiversity,
		"pixel_sample":              opts.PixelSample,
	} {
		if value < 0 {
			return fmt.Errorf("%s: %w", name, errNegativeValue)
		}
	}

	return nil
}
