package events

import "log/slog"

// LogSink renders events through log/slog, the same structured-logging
// pattern hooks.SlogLogger wraps for the pipeline hook chain.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a LogSink backed by log.
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Handle(ev Event) {
	switch ev.Kind {
	case KindPipelineStarted:
		s.log.Info("pipeline.started", "pipeline", ev.PipelineLabel)
	case KindStepStarted:
		s.log.Debug("pipeline.step.started", "pipeline", ev.PipelineLabel, "step", ev.StepKind)
	case KindCacheHit:
		s.log.Debug("cache.hit", "fingerprint", ev.Fingerprint)
	case KindCacheMiss:
		s.log.Debug("cache.miss", "fingerprint", ev.Fingerprint)
	case KindStepFinished:
		if ev.Err != nil {
			s.log.Error("pipeline.step.finished", "pipeline", ev.PipelineLabel, "step", ev.StepKind,
				"duration_ms", ev.Duration.Milliseconds(), "error", ev.Err.Error())
			return
		}
		s.log.Debug("pipeline.step.finished", "pipeline", ev.PipelineLabel, "step", ev.StepKind,
			"duration_ms", ev.Duration.Milliseconds(), "bytes", ev.Bytes)
	case KindPipelineFinished:
		if ev.Err != nil {
			s.log.Error("pipeline.finished", "pipeline", ev.PipelineLabel,
				"duration_ms", ev.Duration.Milliseconds(), "error", ev.Err.Error())
			return
		}
		s.log.Info("pipeline.finished", "pipeline", ev.PipelineLabel,
			"duration_ms", ev.Duration.Milliseconds(), "bytes", ev.Bytes)
	case KindIndexProgress:
		s.log.Debug("nodeindex.progress", "seen", ev.IndexSeen, "total", ev.IndexTotal)
	}
}

var _ Sink = (*LogSink)(nil)
