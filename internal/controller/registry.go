package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/pkg/store"
	"github.com/Alturino/storefront/internal/log"
)

const DefaultMaxStores = 10000

// Registry hands out one hydrated store per session. Evicted stores lose
// nothing: their state is rehydrated from the persister on next use. A store
// is never evicted while a caller holds it or while it has work in flight, so
// one session never has two live stores saving to the same key.
type Registry struct {
	mu        sync.Mutex
	stores    map[string]*registryEntry
	newStore  func(session string) *store.Store
	maxStores int
}

type registryEntry struct {
	store  *store.Store
	leases int
}

func NewRegistry(newStore func(session string) *store.Store, maxStores int) *Registry {
	if maxStores <= 0 {
		maxStores = DefaultMaxStores
	}
	return &Registry{
		stores:    map[string]*registryEntry{},
		newStore:  newStore,
		maxStores: maxStores,
	}
}

// Get returns the session's store and a release func the caller must call
// once it is done with the store.
func (r *Registry) Get(c context.Context, session string) (*store.Store, func(), error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Registry Get").
		Str(log.KeySessionKey, session).
		Logger()

	r.mu.Lock()
	entry, ok := r.stores[session]
	if !ok {
		if len(r.stores) >= r.maxStores {
			r.evictLocked(logger)
		}
		entry = &registryEntry{store: r.newStore(session)}
		r.stores[session] = entry
	}
	entry.leases++
	r.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			entry.leases--
			r.mu.Unlock()
		})
	}

	if err := entry.store.Hydrate(c); err != nil {
		release()
		r.mu.Lock()
		if r.stores[session] == entry {
			delete(r.stores, session)
		}
		r.mu.Unlock()
		err = fmt.Errorf("failed hydrating store with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, nil, err
	}
	return entry.store, release, nil
}

// evictLocked drops one idle store. When every store is busy the registry
// grows past capacity until one becomes idle.
func (r *Registry) evictLocked(logger zerolog.Logger) {
	for key, entry := range r.stores {
		if entry.leases > 0 || entry.store.Loading() || entry.store.RefreshPending() {
			continue
		}
		delete(r.stores, key)
		logger.Debug().Str("evicted", key).Msg("evicted store")
		return
	}
	logger.Warn().Int("stores", len(r.stores)).Msg("every store is busy, growing past capacity")
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
