// Package engine exposes the capsule version-control operations: commit,
// history, branching, tagging, merging, and diffing. Per-capsule mutations
// are serialized behind a capsule-scoped lock; different capsules proceed in
// parallel. Loaded histories live in a size-bounded LRU owned by the engine's
// caller via configuration.
package engine

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"

	"github.com/dkeller9/capver/internal/config"
	"github.com/dkeller9/capver/internal/errors"
	"github.com/dkeller9/capver/internal/store"
	"github.com/dkeller9/capver/internal/version"
)

// Engine coordinates the version graph, branch pointers, merge logic, and
// the history store for all capsules.
type Engine struct {
	store store.Store
	cfg   *config.Config
	cache *lru.Cache[string, *version.History]

	mu    sync.Mutex // guards locks
	locks map[string]*sync.RWMutex
}

// New creates an Engine on top of a history store.
func New(st store.Store, cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	size := cfg.HistoryCacheSize
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, *version.History](size)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &Engine{
		store: st,
		cfg:   cfg,
		cache: cache,
		locks: make(map[string]*sync.RWMutex),
	}, nil
}

// lockFor returns the RW lock serializing access to one capsule's history.
func (e *Engine) lockFor(capsuleID string) *sync.RWMutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[capsuleID]
	if !ok {
		l = &sync.RWMutex{}
		e.locks[capsuleID] = l
	}
	return l
}

// history returns the cached history for a capsule, loading it from the
// store on first access. Callers must hold the capsule lock.
func (e *Engine) history(ctx context.Context, capsuleID string) (*version.History, error) {
	if h, ok := e.cache.Get(capsuleID); ok {
		return h, nil
	}
	h, err := e.store.Load(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	e.cache.Add(capsuleID, h)
	return h, nil
}

// persist saves a mutated history and only then installs it in the cache.
// On save failure the cache entry is dropped so the next access reloads
// clean state; the caller sees the error and decides whether to retry.
func (e *Engine) persist(ctx context.Context, h *version.History) error {
	if err := e.store.Save(ctx, h); err != nil {
		e.cache.Remove(h.CapsuleID)
		return err
	}
	e.cache.Add(h.CapsuleID, h)
	return nil
}

// Invalidate drops a capsule's cached history. Call after the underlying
// store was mutated by another process.
func (e *Engine) Invalidate(capsuleID string) {
	l := e.lockFor(capsuleID)
	l.Lock()
	defer l.Unlock()
	e.cache.Remove(capsuleID)
}

// ListCapsules returns every capsule id known to the store, sorted.
func (e *Engine) ListCapsules(ctx context.Context) ([]string, error) {
	return e.store.List(ctx)
}

// NewCapsuleID generates a fresh ULID for an unnamed capsule.
func NewCapsuleID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
