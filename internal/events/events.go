// Package events implements the multi-producer, single-consumer event bus
// of SPEC_FULL.md §4.H: PipelineStarted, StepStarted, CacheHit,
// CacheMiss, StepFinished, PipelineFinished, and IndexProgress, consumed by
// a log sink, a terminal dashboard sink, and a Prometheus-format sidecar
// metrics sink.
package events

import (
	"time"

	"github.com/tonykolomeytsev/figx/internal/figmodel"
)

// Kind is the closed set of event types the Bus carries.
type Kind string

const (
	KindPipelineStarted  Kind = "pipeline_started"
	KindStepStarted      Kind = "step_started"
	KindCacheHit         Kind = "cache_hit"
	KindCacheMiss        Kind = "cache_miss"
	KindStepFinished     Kind = "step_finished"
	KindPipelineFinished Kind = "pipeline_finished"
	KindIndexProgress    Kind = "index_progress"
)

// Event is a single occurrence pushed onto the Bus. Only the fields
// relevant to Kind are populated.
type Event struct {
	Kind Kind
	Time time.Time

	PipelineLabel string
	StepKind      figmodel.StepKind
	Fingerprint   figmodel.Fingerprint
	Bytes         int64
	Duration      time.Duration
	Err           error

	IndexSeen  int
	IndexTotal int
}

// Sink receives events fanned out from the Bus's single consumer goroutine.
type Sink interface {
	Handle(Event)
}

// Bus is a buffered channel with exactly one consumer goroutine, so
// producers (Scheduler workers) never block on a slow Sink beyond the
// channel's buffer — the multi-producer/single-consumer shape named in the
// spec, modeled on core.Processor's hook fan-out but inverted: events are
// pushed onto a channel instead of calling hook methods directly.
type Bus struct {
	ch    chan Event
	sinks []Sink
	done  chan struct{}
}

// NewBus creates a Bus with the given channel buffer size and starts its
// consumer goroutine fanning events out to sinks in registration order.
func NewBus(buffer int, sinks ...Sink) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	b := &Bus{
		ch:    make(chan Event, buffer),
		sinks: sinks,
		done:  make(chan struct{}),
	}
	go b.consume()
	return b
}

func (b *Bus) consume() {
	defer close(b.done)
	for ev := range b.ch {
		for _, s := range b.sinks {
			s.Handle(ev)
		}
	}
}

// Publish pushes ev onto the bus. It never blocks the caller beyond the
// channel buffer; callers on a hot path (Scheduler workers) should prefer a
// buffer sized so this call never contends.
func (b *Bus) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	b.ch <- ev
}

// Close stops accepting new events and blocks until the consumer goroutine
// has drained the channel and every sink has observed the final event.
func (b *Bus) Close() {
	close(b.ch)
	<-b.done
}

// CacheHit implements cache.EventSink, forwarding to Publish as a
// KindCacheHit event.
func (b *Bus) CacheHit(fp figmodel.Fingerprint) {
	b.Publish(Event{Kind: KindCacheHit, Fingerprint: fp})
}

// CacheMiss implements cache.EventSink.
func (b *Bus) CacheMiss(fp figmodel.Fingerprint) {
	b.Publish(Event{Kind: KindCacheMiss, Fingerprint: fp})
}
