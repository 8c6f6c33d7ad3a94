package reel

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"reelsmith/internal/services"
)

// Lock guards an output root against concurrent generators.
type Lock struct {
	lock *flock.Flock
}

// AcquireLock takes the lock at path without blocking.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, "render", "lock", "ensure lock dir", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "render", "lock", "acquire "+path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "render", "lock", fmt.Sprintf("another generator holds %s", path), nil)
	}
	return &Lock{lock: lock}, nil
}

// Release unlocks. Safe on nil.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
