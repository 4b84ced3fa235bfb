package inverted

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/hupe1980/docgo/index"
)

// acquireLock takes the exclusive writer lock of dir without blocking.
// The lock lives on the local disk regardless of the configured file system.
func acquireLock(dir string) (*flock.Flock, error) {
	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", dir, err)
	}
	if !ok {
		return nil, index.ErrLocked
	}
	return lock, nil
}
