// Package cache implements the content-addressed, single-flight byte store
// described in spec.md §4.A: a durable mapping from fingerprint to bytes,
// where concurrent requests for the same missing fingerprint result in
// exactly one producer invocation.
package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/tonykolomeytsev/figx/internal/apperrors"
	"github.com/tonykolomeytsev/figx/internal/figmodel"
)

// Namespace selects which on-disk subtree a fingerprint belongs to.
type Namespace string

const (
	// NamespaceIndex stores raw remote-index document bytes.
	NamespaceIndex Namespace = "index"
	// NamespaceByproducts stores intermediate pipeline-step outputs.
	NamespaceByproducts Namespace = "byproducts"
)

// EventSink receives hit/miss observations. internal/events implements this.
type EventSink interface {
	CacheHit(fp figmodel.Fingerprint)
	CacheMiss(fp figmodel.Fingerprint)
}

type noopSink struct{}

func (noopSink) CacheHit(figmodel.Fingerprint)  {}
func (noopSink) CacheMiss(figmodel.Fingerprint) {}

// Store is a durable, single-flight, content-addressed byte store rooted at
// a workspace-local directory (.figx-out/caches by default).
type Store struct {
	root   string
	lock   *dirLock
	sf     singleflight.Group
	events EventSink
}

// Open creates (if absent) and locks the cache root directory, enforcing the
// single-writer-per-run rule from spec.md §5. Callers must call Close when
// the run finishes.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, string(NamespaceIndex)), 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryWrite, "cache.open", err)
	}
	if err := os.MkdirAll(filepath.Join(root, string(NamespaceByproducts)), 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryWrite, "cache.open", err)
	}
	lock, err := acquireDirLock(filepath.Join(root, ".lock"))
	if err != nil {
		return nil, err
	}
	return &Store{root: root, lock: lock, events: noopSink{}}, nil
}

// Close releases the advisory directory lock.
func (s *Store) Close() error {
	return s.lock.release()
}

// SetEventSink attaches a metrics/event observer. Safe to call once before
// any other Store method is used concurrently.
func (s *Store) SetEventSink(sink EventSink) {
	if sink == nil {
		sink = noopSink{}
	}
	s.events = sink
}

func (s *Store) pathFor(ns Namespace, fp figmodel.Fingerprint) string {
	key := String(fp)
	switch ns {
	case NamespaceIndex:
		return filepath.Join(s.root, string(ns), key)
	default:
		return filepath.Join(s.root, string(ns), HexPrefix(fp), key)
	}
}

// Get returns the bytes stored under fp in namespace ns, or ok=false if
// absent. I/O errors on read degrade to a miss per spec.md §4.A — a
// corrupted cache entry is simply re-produced.
func (s *Store) Get(ns Namespace, fp figmodel.Fingerprint) (data []byte, ok bool) {
	b, err := os.ReadFile(s.pathFor(ns, fp))
	if err != nil {
		return nil, false
	}
	return b, true
}

// Put writes data under fp in namespace ns using write-to-temp + atomic
// rename, so readers never observe a partial write (Invariant 4).
func (s *Store) Put(ns Namespace, fp figmodel.Fingerprint, data []byte) error {
	path := s.pathFor(ns, fp)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CategoryWrite, "cache.put.mkdir", err)
	}
	tmp := fmt.Sprintf("%s.tmp-%d", path, os.Getpid())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryWrite, "cache.put.create", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.CategoryWrite, "cache.put.write", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.CategoryWrite, "cache.put.close", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.CategoryWrite, "cache.put.rename", err)
	}
	return nil
}

// Producer computes the bytes for a cache miss. It must be deterministic: the
// Transform Kernel and Export Resolver both supply Producer implementations.
type Producer func(ctx context.Context) ([]byte, error)

// GetOrCompute returns the bytes cached under fp, computing them with
// producer on a miss. Concurrent callers for the same fp share exactly one
// producer invocation (Invariant 1, §8 cache idempotence); if the producer
// fails, every waiter receives the same error and the failure is never
// retried by the Store itself (§7 propagation policy).
func (s *Store) GetOrCompute(ctx context.Context, ns Namespace, fp figmodel.Fingerprint, producer Producer) ([]byte, error) {
	if data, ok := s.Get(ns, fp); ok {
		s.events.CacheHit(fp)
		return data, nil
	}
	s.events.CacheMiss(fp)

	key := string(ns) + ":" + String(fp)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		// Re-check under single-flight: another goroutine may have populated
		// the entry between our initial Get and winning the flight.
		if data, ok := s.Get(ns, fp); ok {
			return data, nil
		}
		data, err := producer(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.Put(ns, fp, data); err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Clean removes cache entries. An empty namespace removes both.
func (s *Store) Clean(ns Namespace) error {
	if ns == "" {
		if err := os.RemoveAll(filepath.Join(s.root, string(NamespaceIndex))); err != nil {
			return apperrors.Wrap(apperrors.CategoryWrite, "cache.clean", err)
		}
		if err := os.RemoveAll(filepath.Join(s.root, string(NamespaceByproducts))); err != nil {
			return apperrors.Wrap(apperrors.CategoryWrite, "cache.clean", err)
		}
		return nil
	}
	if err := os.RemoveAll(filepath.Join(s.root, string(ns))); err != nil {
		return apperrors.Wrap(apperrors.CategoryWrite, "cache.clean", err)
	}
	return nil
}

// InvalidateIndex removes a single remote-index entry, implementing the
// --refetch flag's "invalidate the index entry only" semantics.
func (s *Store) InvalidateIndex(fp figmodel.Fingerprint) error {
	path := s.pathFor(NamespaceIndex, fp)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.CategoryWrite, "cache.invalidate_index", err)
	}
	return nil
}

// WriteAtomic atomically writes data to the final output path on the
// caller's source tree (not the cache), per Invariant 4. Shared by
// WriteFile steps so every terminal write goes through one code path.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CategoryWrite, "write_file.mkdir", err)
	}
	tmp := fmt.Sprintf("%s.tmp-%d", path, os.Getpid())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryWrite, "write_file.create", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.CategoryWrite, "write_file.copy", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.CategoryWrite, "write_file.close", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.Wrap(apperrors.CategoryWrite, "write_file.rename", err)
	}
	return nil
}
