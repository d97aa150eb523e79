package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	jitlog "github.com/skiretic/voodoo-jitlog"
	"github.com/skiretic/voodoo-jitlog/internal/types"
)

const metricsNamespace = "voodoo_jit"

// writeMetrics exports the report counters in the Prometheus text exposition format, for the node
// exporter textfile collector. Each call uses its own registry.
func writeMetrics(path, logPath string, result *jitlog.Result) error {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"log": logPath}

	gauge := func(name, help string, value float64) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
		g.Set(value)
		registry.MustRegister(g)
	}

	rep := &result.Report

	gauge("log_lines", "Lines read from the log.", float64(rep.TotalLines))
	gauge("blocks_compiled", "GENERATE events.", float64(rep.Compilation.Blocks))
	gauge("cache_hits", "Block cache hits.", float64(rep.Compilation.CacheHits))
	gauge("interpreter_fallbacks", "Interpreter fallbacks of any kind.", float64(rep.Compilation.FallbacksTotal))
	gauge("errors", "Lines matching the error vocabulary.", float64(rep.Errors.Count))
	gauge("interleaved_lines", "Lines carrying more than one log prefix.", float64(rep.Errors.Interleaved))
	gauge("executes", "EXECUTE events.", float64(rep.Execution.Executes))
	gauge("posts", "POST events.", float64(rep.Execution.Posts))
	gauge("pixels_total", "Pixels rendered.", float64(rep.Execution.PixelsTotal))
	gauge("unique_configs", "Distinct pipeline configurations compiled.", float64(rep.Coverage.UniqueConfigs))
	gauge("active_z_values", "Distinct non-zero depth values.", float64(rep.Coverage.ActiveZ))
	gauge("unique_pixels_non_zero", "Distinct non-zero RGB565 values.", float64(rep.Pixels.NonZero))
	gauge("verify_mismatches", "JIT versus interpreter verification mismatches.", float64(rep.Verification.Mismatches))

	histogram := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   metricsNamespace,
		Name:        "scanlines_by_pixel_count",
		Help:        "POST scanlines per pixel count bucket.",
		ConstLabels: labels,
	}, []string{"bucket"})

	for bucket, count := range rep.Execution.Histogram {
		histogram.WithLabelValues(types.BucketLabels[bucket]).Set(float64(count))
	}

	registry.MustRegister(histogram)

	verdict := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   metricsNamespace,
		Name:        "verdict",
		Help:        "1 for the verdict reached, 0 otherwise.",
		ConstLabels: labels,
	}, []string{"verdict"})

	for _, v := range types.Verdicts {
		value := 0.0
		if v == result.Verdict {
			value = 1
		}

		verdict.WithLabelValues(v.String()).Set(value)
	}

	registry.MustRegister(verdict)

	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}

	return nil
}
