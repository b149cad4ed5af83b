// Package exportresolver implements the two-stage export pipeline of
// SPEC_FULL.md §4.D: a batched image-export request coalesced across
// pipelines sharing (format, scale), followed by a signed-URL download
// streamed through the content-addressed cache. Both stages flow through
// internal/cache so a repeated run performs zero network I/O.
package exportresolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
	"github.com/tonykolomeytsev/figx/internal/cache"
	"github.com/tonykolomeytsev/figx/internal/figmodel"
	"github.com/tonykolomeytsev/figx/internal/httpclient"
)

// BatchWindow is how long a batch accumulates sibling requests before firing,
// the debounce window named in SPEC_FULL.md §4.D.
const BatchWindow = 40 * time.Millisecond

// MaxBatchSize bounds how many node-ids one export request names.
const MaxBatchSize = 256

// Request describes one node that needs an exported image.
type Request struct {
	Remote     figmodel.Remote
	NodeID     string
	Format     string
	Scale      float64
	BaseURL    string // REST API base; overridable for tests
}

type batchKey struct {
	remoteID string
	format   string
	scale    float64
}

type pendingItem struct {
	nodeID string
	result chan urlResult
}

type urlResult struct {
	url string
	err error
}

type batch struct {
	mu    sync.Mutex
	items []pendingItem
	timer *time.Timer
}

// Resolver composes an httpclient.Client and a cache.Store to satisfy export
// requests, coalescing sibling requests into one remote call per
// (remote, format, scale) batch window.
type Resolver struct {
	http  *httpclient.Client
	store *cache.Store

	mu      sync.Mutex
	batches map[batchKey]*batch

	// defaultBaseURL is used when a Request leaves BaseURL empty.
	defaultBaseURL string
}

// New creates a Resolver. baseURL is the REST API root, e.g.
// "https://api.figma.com/v1".
func New(store *cache.Store, client *httpclient.Client, baseURL string) *Resolver {
	return &Resolver{
		http:           client,
		store:          store,
		batches:        make(map[batchKey]*batch),
		defaultBaseURL: baseURL,
	}
}

// RequestExport coalesces req with sibling requests sharing
// (remote, format, scale), fires one batched REST call after BatchWindow
// elapses (or MaxBatchSize is reached), and returns the signed download URL
// assigned to req.NodeID.
func (r *Resolver) RequestExport(ctx context.Context, req Request) (string, error) {
	key := batchKey{remoteID: req.Remote.RemoteID, format: req.Format, scale: req.Scale}

	r.mu.Lock()
	b, ok := r.batches[key]
	if !ok {
		b = &batch{}
		r.batches[key] = b
		b.timer = time.AfterFunc(BatchWindow, func() { r.flush(ctx, key, req) })
	}
	ch := make(chan urlResult, 1)
	b.mu.Lock()
	b.items = append(b.items, pendingItem{nodeID: req.NodeID, result: ch})
	full := len(b.items) >= MaxBatchSize
	b.mu.Unlock()
	r.mu.Unlock()

	if full {
		b.timer.Stop()
		r.flush(ctx, key, req)
	}

	select {
	case <-ctx.Done():
		return "", apperrors.Wrap(apperrors.CategoryCancelled, "exportresolver.request_export", ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return "", res.err
		}
		return res.url, nil
	}
}

func (r *Resolver) flush(ctx context.Context, key batchKey, sample Request) {
	r.mu.Lock()
	b, ok := r.batches[key]
	if ok {
		delete(r.batches, key)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	b.mu.Lock()
	items := b.items
	b.items = nil
	b.mu.Unlock()
	if len(items) == 0 {
		return
	}

	urls, err := r.callExportAPI(ctx, sample, items)
	for _, it := range items {
		if err != nil {
			it.result <- urlResult{err: err}
			continue
		}
		url, ok := urls[it.nodeID]
		if !ok {
			it.result <- urlResult{err: apperrors.New(apperrors.CategoryRemote, "exportresolver.flush",
				fmt.Errorf("no export url returned for node %s", it.nodeID))}
			continue
		}
		it.result <- urlResult{url: url}
	}
}

type exportAPIResponse struct {
	Err    string            `json:"err"`
	Images map[string]string `json:"images"`
}

func (r *Resolver) callExportAPI(ctx context.Context, sample Request, items []pendingItem) (map[string]string, error) {
	base := sample.BaseURL
	if base == "" {
		base = r.defaultBaseURL
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.nodeID)
	}
	u := fmt.Sprintf("%s/images/%s?format=%s&scale=%s&ids=%s",
		base, sample.Remote.FileKey, sample.Format, strconv.FormatFloat(sample.Scale, 'f', -1, 64), joinCommas(ids))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "exportresolver.call_export_api", err)
	}
	tok, err := httpclient.TokenResolver(ctx, sample.Remote.TokenSources)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-Figma-Token", tok)

	resp, err := r.http.Do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed exportAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryRemote, "exportresolver.call_export_api.decode", err)
	}
	if parsed.Err != "" {
		return nil, apperrors.New(apperrors.CategoryRemote, "exportresolver.call_export_api", fmt.Errorf("%s", parsed.Err))
	}
	return parsed.Images, nil
}

func joinCommas(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += id
	}
	return out
}

// Download fetches the bytes at signedURL, storing them in the cache under
// fp so a repeat run of the same pipeline does zero network I/O.
func (r *Resolver) Download(ctx context.Context, fp figmodel.Fingerprint, signedURL string) ([]byte, error) {
	return r.store.GetOrCompute(ctx, cache.NamespaceByproducts, fp, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryConfig, "exportresolver.download", err)
		}
		resp, err := r.http.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryRemote, "exportresolver.download.read", err)
		}
		return data, nil
	})
}
