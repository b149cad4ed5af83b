package events

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/expfmt"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
	"github.com/tonykolomeytsev/figx/internal/figmodel"
)

// MetricSink accumulates counters/histograms in a private
// prometheus.Registry and serializes it to a text-format sidecar file at
// run end — the Prometheus text-format file SPEC_FULL.md §4.H names
// explicitly (".figx-out/metrics.prom"), not a live HTTP endpoint.
type MetricSink struct {
	registry *prometheus.Registry

	resourcesTotal       prometheus.Counter
	cacheHitsTotal       prometheus.Counter
	cacheMissesTotal     prometheus.Counter
	bytesDownloadedTotal prometheus.Counter
	stepDuration         *prometheus.HistogramVec
	pipelineFailures     prometheus.Counter
}

// NewMetricSink creates a MetricSink with its own private registry so
// registering it never collides with a package-level default registry.
func NewMetricSink() *MetricSink {
	reg := prometheus.NewRegistry()
	s := &MetricSink{
		registry: reg,
		resourcesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "figx_resources_total", Help: "Resources processed.",
		}),
		cacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "figx_cache_hits_total", Help: "Cache lookups that hit.",
		}),
		cacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "figx_cache_misses_total", Help: "Cache lookups that missed.",
		}),
		bytesDownloadedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "figx_bytes_downloaded_total", Help: "Bytes fetched from the remote.",
		}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "figx_step_duration_seconds", Help: "Per-step execution time.",
		}, []string{"step"}),
		pipelineFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "figx_pipeline_failures_total", Help: "Pipelines that finished with an error.",
		}),
	}
	reg.MustRegister(s.resourcesTotal, s.cacheHitsTotal, s.cacheMissesTotal,
		s.bytesDownloadedTotal, s.stepDuration, s.pipelineFailures)
	return s
}

func (s *MetricSink) Handle(ev Event) {
	switch ev.Kind {
	case KindCacheHit:
		s.cacheHitsTotal.Inc()
	case KindCacheMiss:
		s.cacheMissesTotal.Inc()
	case KindStepFinished:
		s.stepDuration.WithLabelValues(string(ev.StepKind)).Observe(ev.Duration.Seconds())
		if ev.StepKind == figmodel.StepExportFromRemote {
			s.bytesDownloadedTotal.Add(float64(ev.Bytes))
		}
	case KindPipelineFinished:
		s.resourcesTotal.Inc()
		if ev.Err != nil {
			s.pipelineFailures.Inc()
		}
	}
}

// WriteTo serializes the registry's current state in Prometheus text
// exposition format to path, using write-to-temp + atomic rename so a
// concurrent reader never observes a partial file.
func (s *MetricSink) WriteTo(path string) error {
	families, err := s.registry.Gather()
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryWrite, "metricsink.write_to.gather", err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryWrite, "metricsink.write_to.create", err)
	}
	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			f.Close()
			os.Remove(tmp)
			return apperrors.Wrap(apperrors.CategoryWrite, "metricsink.write_to.encode", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.CategoryWrite, "metricsink.write_to.close", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.CategoryWrite, "metricsink.write_to.rename", err)
	}
	return nil
}

var _ Sink = (*MetricSink)(nil)
