package main

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/tonykolomeytsev/figx/internal/cache"
	"github.com/tonykolomeytsev/figx/internal/events"
	"github.com/tonykolomeytsev/figx/internal/exportresolver"
	"github.com/tonykolomeytsev/figx/internal/httpclient"
	"github.com/tonykolomeytsev/figx/internal/manifest"
	"github.com/tonykolomeytsev/figx/internal/scheduler"
)

// defaultBaseURL is the production REST API root. Tests and CI wiring can
// override FIGX_API_BASE_URL to point at a local stub.
const defaultBaseURL = "https://api.figma.com/v1"

// outDir is the workspace-local directory holding the cache, the metric
// sink's metrics sidecar, and the cache directory lock.
func outDir(root string) string {
	return filepath.Join(root, ".figx-out")
}

// engine bundles everything a run command needs: a locked cache, an HTTP
// client, an export resolver, and an event bus fanning out to the three
// concrete sinks.
type engine struct {
	store   *cache.Store
	exec    *scheduler.Executor
	bus     *events.Bus
	metrics *events.MetricSink
	term    *events.TermSink
}

func newEngine(root string, expectedPipelines int, settings manifest.SettingsDecl) (*engine, error) {
	cacheDir := filepath.Join(outDir(root), "caches")
	store, err := cache.Open(cacheDir)
	if err != nil {
		return nil, err
	}

	baseURL := os.Getenv("FIGX_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpCfg := httpclient.Config{
		MaxRetries:     settings.MaxRetries,
		RequestTimeout: time.Duration(settings.RequestTimeoutSeconds) * time.Second,
		RatePerSecond:  settings.RatePerSecond,
		Burst:          httpclient.DefaultConfig().Burst,
	}
	client := httpclient.New(httpCfg, nil)
	resolver := exportresolver.New(store, client, baseURL)

	log := events.NewLogSink(newLogger())
	metrics := events.NewMetricSink()
	term := events.NewTermSink(os.Stdout, expectedPipelines)
	bus := events.NewBus(256, log, metrics, term)
	store.SetEventSink(bus)

	workers := jobs
	if workers <= 0 {
		workers = settings.WorkerCount
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	exec := scheduler.New(scheduler.Config{WorkerCount: workers, BaseURL: baseURL, UseVips: true}, store, client, resolver, bus)

	return &engine{store: store, exec: exec, bus: bus, metrics: metrics, term: term}, nil
}

func (e *engine) close(root string) {
	_ = e.metrics.WriteTo(filepath.Join(outDir(root), "metrics.prom"))
	e.bus.Close()
	_ = e.store.Close()
}
