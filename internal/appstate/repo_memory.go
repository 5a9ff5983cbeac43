package appstate

import (
	"context"
	"sync"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	prefs map[string]Preferences
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{prefs: make(map[string]Preferences)}
}

func (r *MemoryRepo) Load(ctx context.Context, profile string) (Preferences, error) {
	if err := ctx.Err(); err != nil {
		return Preferences{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefs, ok := r.prefs[profile]
	if !ok {
		return Preferences{}, ErrNotFound
	}
	return prefs.clone(), nil
}

func (r *MemoryRepo) Save(ctx context.Context, profile string, prefs Preferences) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[profile] = prefs.clone()
	return nil
}
