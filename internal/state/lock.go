package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// A lock left behind by a crashed pass is taken over once it is this old.
const lockStaleAfter = 10 * time.Minute

// Lock acquires a file lock on the state so only one pass mutates it at a
// time. A stale lock from a dead process is removed and re-acquired.
func (m *Manager) Lock() error {
	lockPath := m.lockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	if info, err := os.Stat(lockPath); err == nil {
		if time.Since(info.ModTime()) <= lockStaleAfter {
			return fmt.Errorf("state is locked by another pass (lock file: %s); "+
				"remove it manually if no other pass is running", lockPath)
		}
		os.Remove(lockPath)
	}

	holder := fmt.Sprintf("pid=%d\nacquired=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(lockPath, []byte(holder), 0644); err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	return nil
}

// Unlock releases the state lock. Releasing a lock that is not held is not an
// error.
func (m *Manager) Unlock() error {
	if err := os.Remove(m.lockPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (m *Manager) lockPath() string {
	return m.path + ".lock"
}
