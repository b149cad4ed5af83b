// Package scheduler runs a Planner-produced pipeline set on a bounded
// worker pool, per SPEC_FULL.md §4.G: pipelines are independent
// FIFO-dispatched tasks, steps within a pipeline run sequentially, a step
// awaiting the Node Index yields the worker instead of blocking it, export
// requests coalesce through the Export Resolver's debounce window, cache
// single-flight dedups concurrent producers, and cooperative cancellation
// is checked at every step boundary.
package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
	"github.com/tonykolomeytsev/figx/internal/cache"
	"github.com/tonykolomeytsev/figx/internal/events"
	"github.com/tonykolomeytsev/figx/internal/exportresolver"
	"github.com/tonykolomeytsev/figx/internal/figmodel"
	"github.com/tonykolomeytsev/figx/internal/httpclient"
	"github.com/tonykolomeytsev/figx/internal/nodeindex"
	"github.com/tonykolomeytsev/figx/internal/transform"
)

// Config controls worker pool sizing and the remote REST API root.
type Config struct {
	WorkerCount int    // default runtime.NumCPU()
	BaseURL     string // e.g. "https://api.figma.com/v1"
	UseVips     bool   // RenderRasterFromSvg backend selection
}

// Executor is a direct generalization of core.Processor's worker pool to run
// figmodel.Pipeline values instead of image jobs.
type Executor struct {
	cfg    Config
	cache  *cache.Store
	http   *httpclient.Client
	export *exportresolver.Resolver
	bus    *events.Bus

	idxMu   sync.Mutex
	indexes map[string]*indexEntry
}

type indexEntry struct {
	once sync.Once
	idx  *nodeindex.Index
	err  error
}

// New creates an Executor wired to the given Cache, HTTP client, Export
// Resolver, and Event Bus.
func New(cfg Config, store *cache.Store, client *httpclient.Client, export *exportresolver.Resolver, bus *events.Bus) *Executor {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = runtime.NumCPU()
	}
	return &Executor{
		cfg:     cfg,
		cache:   store,
		http:    client,
		export:  export,
		bus:     bus,
		indexes: make(map[string]*indexEntry),
	}
}

// yieldPipeline is a pipeline parked mid-execution at stepIdx, waiting on
// something that was not ready the last time a worker tried it.
type yieldPipeline struct {
	pipeline figmodel.Pipeline
	remote   figmodel.Remote
	stepIdx  int
	input    []byte
	started  time.Time
}

// RunAll executes every pipeline, returning one PipelineResult per
// pipeline in input order. Concurrency is bounded by cfg.WorkerCount via
// errgroup.Group.SetLimit, generalizing core.Processor.Batch's raw
// sync.WaitGroup fan-out; a FIFO requeue channel implements the
// yield-on-Index-block behavior without parking a goroutine.
func (e *Executor) RunAll(ctx context.Context, pipelines []figmodel.Pipeline, remotes map[string]figmodel.Remote) []figmodel.PipelineResult {
	results := make([]figmodel.PipelineResult, len(pipelines))
	queue := make(chan int, len(pipelines)*4+1)
	for i := range pipelines {
		queue <- i
	}

	var g errgroup.Group
	g.SetLimit(e.cfg.WorkerCount)

	var pending sync.WaitGroup
	pending.Add(len(pipelines))
	done := make(chan struct{})
	go func() {
		pending.Wait()
		close(done)
	}()

	yielded := make(map[int]*yieldPipeline)
	var yieldMu sync.Mutex

	for {
		select {
		case <-done:
			_ = g.Wait()
			return results
		case idx, ok := <-queue:
			if !ok {
				_ = g.Wait()
				return results
			}
			g.Go(func() error {
				p := pipelines[idx]
				remote := remotes[remoteRefOf(p)]

				yieldMu.Lock()
				yp, wasYielded := yielded[idx]
				delete(yielded, idx)
				yieldMu.Unlock()

				var state *yieldPipeline
				if wasYielded {
					state = yp
				} else {
					state = &yieldPipeline{pipeline: p, remote: remote, started: time.Now()}
					e.bus.Publish(events.Event{Kind: events.KindPipelineStarted, PipelineLabel: p.Label()})
				}

				next, yieldedAgain, err := e.runOneStep(ctx, state)
				if err != nil {
					pending.Done()
					results[idx] = figmodel.PipelineResult{Pipeline: p, Err: err, Duration: time.Since(state.started)}
					e.bus.Publish(events.Event{Kind: events.KindPipelineFinished, PipelineLabel: p.Label(), Err: err, Duration: time.Since(state.started)})
					return nil
				}
				if yieldedAgain {
					yieldMu.Lock()
					yielded[idx] = next
					yieldMu.Unlock()
					queue <- idx
					return nil
				}
				if next.stepIdx >= len(p.Steps) {
					pending.Done()
					results[idx] = figmodel.PipelineResult{Pipeline: p, BytesWritten: int64(len(next.input)), Duration: time.Since(state.started)}
					e.bus.Publish(events.Event{Kind: events.KindPipelineFinished, PipelineLabel: p.Label(), Duration: time.Since(state.started)})
					return nil
				}
				yieldMu.Lock()
				yielded[idx] = next
				yieldMu.Unlock()
				queue <- idx
				return nil
			})
		}
	}
}

func remoteRefOf(p figmodel.Pipeline) string {
	if v, ok := p.Resource.Overrides["remote"].(string); ok {
		return v
	}
	return ""
}

// runOneStep executes exactly one step of state's pipeline and returns the
// advanced state. yielded is true when the step could not make progress
// (the Index has not yet resolved the needed path) and the pipeline should
// be requeued at the same stepIdx without being considered finished or
// failed.
func (e *Executor) runOneStep(ctx context.Context, state *yieldPipeline) (*yieldPipeline, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, apperrors.Wrap(apperrors.CategoryCancelled, "scheduler.run_one_step", err)
	}
	spec := state.pipeline.Steps[state.stepIdx]
	e.bus.Publish(events.Event{Kind: events.KindStepStarted, PipelineLabel: state.pipeline.Label(), StepKind: spec.Kind})
	t0 := time.Now()

	out, yielded, err := e.execute(ctx, state, spec)
	if yielded {
		return state, true, nil
	}
	duration := time.Since(t0)
	if err != nil {
		e.bus.Publish(events.Event{Kind: events.KindStepFinished, PipelineLabel: state.pipeline.Label(), StepKind: spec.Kind, Duration: duration, Err: err})
		return nil, false, err
	}
	e.bus.Publish(events.Event{Kind: events.KindStepFinished, PipelineLabel: state.pipeline.Label(), StepKind: spec.Kind, Duration: duration, Bytes: int64(len(out))})

	return &yieldPipeline{
		pipeline: state.pipeline,
		remote:   state.remote,
		stepIdx:  state.stepIdx + 1,
		input:    out,
		started:  state.started,
	}, false, nil
}

func (e *Executor) execute(ctx context.Context, state *yieldPipeline, spec figmodel.StepSpec) ([]byte, bool, error) {
	switch spec.Kind {
	case figmodel.StepExportFromRemote:
		return e.executeExport(ctx, state, spec)
	case figmodel.StepSimplifySvg:
		fp := cache.Fingerprint(string(spec.Kind), nil, bytesFingerprint(state.input))
		out, err := e.cache.GetOrCompute(ctx, cache.NamespaceByproducts, fp, func(context.Context) ([]byte, error) {
			return transform.SimplifySvg(state.input)
		})
		return out, false, err
	case figmodel.StepRenderRasterFromSvg:
		fp := cache.Fingerprint(string(spec.Kind), []string{fmt.Sprintf("%v", spec.Scale)}, bytesFingerprint(state.input))
		out, err := e.cache.GetOrCompute(ctx, cache.NamespaceByproducts, fp, func(context.Context) ([]byte, error) {
			return transform.RenderRasterFromSvg(state.input, transform.RasterOptions{Scale: spec.Scale, UseVips: e.cfg.UseVips})
		})
		return out, false, err
	case figmodel.StepTransformRasterToWebp:
		fp := cache.Fingerprint(string(spec.Kind), []string{fmt.Sprintf("%d", spec.Quality)}, bytesFingerprint(state.input))
		out, err := e.cache.GetOrCompute(ctx, cache.NamespaceByproducts, fp, func(context.Context) ([]byte, error) {
			return transform.TransformRasterToWebp(state.input, spec.Quality)
		})
		return out, false, err
	case figmodel.StepTransformSvgToImageVector:
		fp := cache.Fingerprint(string(spec.Kind), []string{spec.Package, state.pipeline.Resource.Name}, bytesFingerprint(state.input))
		out, err := e.cache.GetOrCompute(ctx, cache.NamespaceByproducts, fp, func(context.Context) ([]byte, error) {
			return transform.TransformSvgToImageVector(state.input, spec.Package, state.pipeline.Resource.Name)
		})
		return out, false, err
	case figmodel.StepTransformSvgToAndroidDrawable:
		fp := cache.Fingerprint(string(spec.Kind), nil, bytesFingerprint(state.input))
		out, err := e.cache.GetOrCompute(ctx, cache.NamespaceByproducts, fp, func(context.Context) ([]byte, error) {
			return transform.TransformSvgToAndroidDrawable(state.input)
		})
		return out, false, err
	case figmodel.StepWriteFile:
		if err := cache.WriteAtomic(spec.Path, state.input, 0o644); err != nil {
			return nil, false, err
		}
		return state.input, false, nil
	default:
		return nil, false, apperrors.New(apperrors.CategoryConfig, "scheduler.execute", apperrors.ErrUnsupportedProfile)
	}
}

func (e *Executor) executeExport(ctx context.Context, state *yieldPipeline, spec figmodel.StepSpec) ([]byte, bool, error) {
	idx, err := e.ensureIndex(ctx, state.remote)
	if err != nil {
		return nil, false, err
	}

	nodeID, ok := idx.TryResolve(state.pipeline.NodePath)
	if !ok {
		if idx.Done() {
			return nil, false, apperrors.New(apperrors.CategoryNotFound, "scheduler.execute_export",
				fmt.Errorf("%w: %q", apperrors.ErrNodeNotFound, state.pipeline.NodePath))
		}
		return nil, true, nil // yield: index still streaming, not resolved yet
	}

	url, err := e.export.RequestExport(ctx, exportresolver.Request{
		Remote: state.remote, NodeID: nodeID, Format: spec.Format, Scale: spec.Scale, BaseURL: e.cfg.BaseURL,
	})
	if err != nil {
		return nil, false, err
	}

	fp := cache.Fingerprint(string(spec.Kind), []string{nodeID, spec.Format, fmt.Sprintf("%v", spec.Scale)})
	data, err := e.export.Download(ctx, fp, url)
	return data, false, err
}

func bytesFingerprint(b []byte) figmodel.Fingerprint {
	return cache.Fingerprint("bytes", []string{fmt.Sprintf("%d", len(b))}, figmodel.Fingerprint(xxhash.Sum64(b)))
}

// FetchIndex exposes ensureIndex for callers that only need to stream and
// inspect a Remote's node index without running any pipelines, e.g. the
// `figx scan` command.
func (e *Executor) FetchIndex(ctx context.Context, remote figmodel.Remote) (*nodeindex.Index, error) {
	return e.ensureIndex(ctx, remote)
}

// ensureIndex returns the Index for remote, creating it on first use: a
// cache hit for the raw index bytes populates synchronously, a miss starts
// a streaming fetch in its own goroutine so downloads can begin against
// early-resolved paths before the whole document has arrived.
func (e *Executor) ensureIndex(ctx context.Context, remote figmodel.Remote) (*nodeindex.Index, error) {
	e.idxMu.Lock()
	entry, ok := e.indexes[remote.RemoteID]
	if !ok {
		entry = &indexEntry{}
		e.indexes[remote.RemoteID] = entry
	}
	e.idxMu.Unlock()

	entry.once.Do(func() {
		entry.idx = nodeindex.New()
		fp := cache.IndexKey(remote.FileKey, remote.ContainerNodeIDs)
		if data, ok := e.cache.Get(cache.NamespaceIndex, fp); ok {
			entry.err = entry.idx.Populate(data, remote.ContainerNodeIDs)
			return
		}

		url := fmt.Sprintf("%s/files/%s/nodes", e.cfg.BaseURL, remote.FileKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			entry.err = apperrors.Wrap(apperrors.CategoryConfig, "scheduler.ensure_index", err)
			return
		}
		tok, err := httpclient.TokenResolver(ctx, remote.TokenSources)
		if err != nil {
			entry.err = err
			return
		}
		req.Header.Set("X-Figma-Token", tok)

		resp, err := e.http.Do(ctx, req)
		if err != nil {
			entry.err = err
			return
		}

		var buf bytes.Buffer
		tee := io.TeeReader(resp.Body, &buf)
		go func() {
			defer resp.Body.Close()
			entry.idx.Start(ctx, tee, remote.ContainerNodeIDs)
			_ = e.cache.Put(cache.NamespaceIndex, fp, buf.Bytes())
		}()
	})
	return entry.idx, entry.err
}
