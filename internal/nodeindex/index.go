// Package nodeindex streams a remote design file and exposes node-name to
// node-id lookups as they become known, per spec.md §4.C. The parser walks
// the document depth-first with encoding/json's token API so that
// resolutions become available before the whole document has arrived —
// the "streaming liveness" property in spec.md §8.
package nodeindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
)

// PathSeparator joins frame names into the slash-separated path syntax used by
// Resource.NodePathTemplate ("Icons / Puzzle / 24").
const PathSeparator = " / "

type waiter struct {
	ch chan resolveResult
}

type resolveResult struct {
	nodeID string
	found  bool
}

// Index is a single Remote's streaming node-path → node-id lookup table.
// One Index is created per distinct Remote touched by the job set.
type Index struct {
	mu       sync.Mutex
	resolved map[string]string // path -> node-id, write-once per key
	tags     map[string]string // path -> container node-id ("tag")
	waiters  map[string][]waiter
	complete bool
	parseErr error

	seen  int
	total int // 0 = unknown until the document declares a node count hint
}

// New creates an empty Index. Call Start to begin streaming a document into
// it, or Populate to load a fully-buffered document synchronously (used on
// a cache hit for the raw index bytes, per spec.md §4.C).
func New() *Index {
	return &Index{
		resolved: make(map[string]string),
		tags:     make(map[string]string),
		waiters:  make(map[string][]waiter),
	}
}

// Start parses r in the current goroutine's caller's choice — callers
// typically invoke Start in its own goroutine so resolution can proceed
// concurrently with download, per the spec's "Index parser runs on its own
// dedicated task" design note.
func (x *Index) Start(ctx context.Context, r io.Reader, containerNodeIDs []string) {
	dec := json.NewDecoder(r)
	err := x.walkDocument(ctx, dec, containerNodeIDs)
	x.mu.Lock()
	x.complete = true
	x.parseErr = err
	waiters := x.waiters
	x.waiters = nil
	x.mu.Unlock()
	for _, ws := range waiters {
		for _, w := range ws {
			w.ch <- resolveResult{found: false}
		}
	}
}

// Populate loads an already-fully-read document synchronously, used when
// the raw bytes were already present in the cache (§4.C: "On a cache hit for
// the raw document, the Index is populated synchronously").
func (x *Index) Populate(data []byte, containerNodeIDs []string) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	err := x.walkDocument(context.Background(), dec, containerNodeIDs)
	x.mu.Lock()
	x.complete = true
	x.parseErr = err
	x.mu.Unlock()
	return err
}

// Resolve blocks until path resolves to a node-id, the document completes
// without finding it, or ctx is cancelled. Already-known paths return
// immediately. Once resolved, a path never changes or disappears within a
// run (Invariant 5 / §8 monotonic index).
func (x *Index) Resolve(ctx context.Context, path string) (string, error) {
	x.mu.Lock()
	if id, ok := x.resolved[path]; ok {
		x.mu.Unlock()
		return id, nil
	}
	if x.complete {
		err := x.parseErr
		x.mu.Unlock()
		if err != nil {
			return "", apperrors.Wrap(apperrors.CategoryRemote, "nodeindex.resolve", err)
		}
		return "", apperrors.New(apperrors.CategoryNotFound, "nodeindex.resolve", fmt.Errorf("%w: %q", apperrors.ErrNodeNotFound, path))
	}
	ch := make(chan resolveResult, 1)
	x.waiters[path] = append(x.waiters[path], waiter{ch: ch})
	x.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", apperrors.Wrap(apperrors.CategoryCancelled, "nodeindex.resolve", ctx.Err())
	case res := <-ch:
		if !res.found {
			return "", apperrors.New(apperrors.CategoryNotFound, "nodeindex.resolve", fmt.Errorf("%w: %q", apperrors.ErrNodeNotFound, path))
		}
		return res.nodeID, nil
	}
}

// TryResolve is Resolve's non-blocking counterpart: it reports whether path
// is already known without waiting for more of the document to arrive. A
// scheduler uses this to yield a worker back to the pool instead of parking
// it on an unresolved path.
func (x *Index) TryResolve(path string) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	id, ok := x.resolved[path]
	return id, ok
}

// Paths returns every path resolved so far, in no particular order. Used by
// diagnostic tooling (`figx scan`) rather than the resolution hot path.
func (x *Index) Paths() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]string, 0, len(x.resolved))
	for p := range x.resolved {
		out = append(out, p)
	}
	return out
}

// Tag returns the container node-id a resolved path belongs to, when
// container tagging is enabled. ok is false if the path carries no tag.
func (x *Index) Tag(path string) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	t, ok := x.tags[path]
	return t, ok
}

// Progress reports how many nodes have been seen so far, and the total if
// known, feeding the IndexProgress event.
func (x *Index) Progress() (seen, total int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.seen, x.total
}

// Done reports whether the parser has finished the document.
func (x *Index) Done() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.complete
}

func (x *Index) insert(path, id, tag string) {
	x.mu.Lock()
	x.resolved[path] = id
	if tag != "" {
		x.tags[path] = tag
	}
	x.seen++
	ws := x.waiters[path]
	delete(x.waiters, path)
	x.mu.Unlock()

	for _, w := range ws {
		w.ch <- resolveResult{nodeID: id, found: true}
	}
}

// visibleComponentTypes are the Figma node "type" values that participate in
// the path index; groups/canvases contribute a path segment but are not
// resolvable leaves themselves unless named explicitly by a resource path.
var visibleComponentTypes = map[string]bool{
	"COMPONENT":         true,
	"COMPONENT_SET":     true,
	"FRAME":             true,
	"GROUP":             true,
	"INSTANCE":          true,
	"CANVAS":            true,
	"VECTOR":            true,
	"BOOLEAN_OPERATION": true,
}

// rawNode accumulates the fields of one JSON node object as the token
// stream is walked; children are recursed into directly rather than
// buffered, keeping memory proportional to tree depth, not tree size.
type rawNode struct {
	id   string
	name string
	typ  string
}

func (x *Index) walkDocument(ctx context.Context, dec *json.Decoder, containerNodeIDs []string) error {
	containerSet := make(map[string]bool, len(containerNodeIDs))
	for _, id := range containerNodeIDs {
		containerSet[id] = true
	}

	// The response envelope is {"document": {...}, ...}; find the "document"
	// key and then walk its node tree. Unrelated top-level keys are skipped.
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("nodeindex: expected top-level object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		if key == "document" {
			// Depth 0 is the document root, depth 1 is the per-page canvas;
			// neither contributes a path segment, so a resource path like
			// "Icons / Puzzle / 24" never needs a page name prefix.
			if err := x.walkNode(ctx, dec, nil, "", containerSet, 0); err != nil {
				return err
			}
			continue
		}
		if err := skipValue(dec); err != nil {
			return err
		}
	}
	_, err = dec.Token() // closing '}'
	return err
}

// walkNode decodes one node object positioned at its opening '{' token,
// recursing into "children" depth-first. activeTag is the nearest ancestor
// container-node-id, once entered, for container tagging. depth 0 is the
// document root and depth 1 is a page canvas; neither is recorded nor
// contributes a path segment.
func (x *Index) walkNode(ctx context.Context, dec *json.Decoder, pathPrefix []string, activeTag string, containerSet map[string]bool, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || d != '{' {
		return fmt.Errorf("nodeindex: expected node object")
	}

	var n rawNode
	var childrenPending bool
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		switch key {
		case "id":
			v, err := dec.Token()
			if err != nil {
				return err
			}
			n.id, _ = v.(string)
		case "name":
			v, err := dec.Token()
			if err != nil {
				return err
			}
			n.name, _ = v.(string)
		case "type":
			v, err := dec.Token()
			if err != nil {
				return err
			}
			n.typ, _ = v.(string)
		case "children":
			childrenPending = true
			if err := x.walkChildrenArray(ctx, dec, pathPrefix, n, activeTag, containerSet, depth); err != nil {
				return err
			}
		default:
			if err := skipValue(dec); err != nil {
				return err
			}
		}
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return err
	}

	if !childrenPending && depth >= 2 {
		x.recordNode(pathPrefix, n, activeTag, containerSet)
	}
	return nil
}

// walkChildrenArray is invoked once the "children" key's value token has not
// yet been consumed; it consumes the '[' delimiter, recurses into each
// child, then the closing ']'. The parent node itself is recorded before
// recursing so the parent's own path is resolvable independent of its
// children. depth 0 is the document root and depth 1 is a page canvas; a
// path segment is only appended starting at depth 1's children (depth 2),
// so resolvable paths never carry a document or page name prefix.
func (x *Index) walkChildrenArray(ctx context.Context, dec *json.Decoder, pathPrefix []string, parent rawNode, activeTag string, containerSet map[string]bool, depth int) error {
	if depth >= 2 {
		x.recordNode(pathPrefix, parent, activeTag, containerSet)
	}

	childTag := activeTag
	if containerSet[parent.id] {
		childTag = parent.id
	}
	childPath := pathPrefix
	if depth >= 2 && parent.name != "" {
		childPath = append(append([]string{}, pathPrefix...), parent.name)
	}

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return fmt.Errorf("nodeindex: expected children array")
	}
	for dec.More() {
		if err := x.walkNode(ctx, dec, childPath, childTag, containerSet, depth+1); err != nil {
			return err
		}
	}
	_, err = dec.Token() // closing ']'
	return err
}

func (x *Index) recordNode(pathPrefix []string, n rawNode, activeTag string, containerSet map[string]bool) {
	if n.name == "" || !visibleComponentTypes[n.typ] {
		return
	}
	segs := append(append([]string{}, pathPrefix...), n.name)
	path := strings.Join(segs, PathSeparator)
	tag := activeTag
	if containerSet[n.id] {
		tag = n.id
	}
	x.insert(path, n.id, tag)
}

// skipValue consumes one complete JSON value (scalar, object, or array)
// without interpreting it, so unrelated fields don't need a struct tag.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if _, ok := tok.(json.Delim); !ok {
		return nil // scalar already consumed
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if dd, ok := tok.(json.Delim); ok {
			switch dd {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
