package store

import (
	"sort"
	"sync"
)

// Registry is the delta registry: repository path -> content hash of the
// last successfully indexed version. Loaded once per run, saved wholesale.
type Registry struct {
	mu     sync.RWMutex
	store  *BoltStore
	hashes map[string]string
}

func NewRegistry(store *BoltStore) (*Registry, error) {
	hashes, err := store.LoadRegistry()
	if err != nil {
		return nil, err
	}
	return &Registry{store: store, hashes: hashes}, nil
}

// ShouldReindex reports whether path is new or its hash changed.
func (r *Registry) ShouldReindex(path, hash string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	old, ok := r.hashes[path]
	return !ok || old != hash
}

func (r *Registry) Commit(path, hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashes[path] = hash
}

func (r *Registry) Evict(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hashes, path)
}

// Paths returns the registered paths, sorted.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.hashes))
	for p := range r.hashes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Save() error {
	r.mu.RLock()
	snapshot := make(map[string]string, len(r.hashes))
	for p, h := range r.hashes {
		snapshot[p] = h
	}
	r.mu.RUnlock()
	return r.store.SaveRegistry(snapshot)
}
