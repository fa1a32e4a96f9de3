// ABOUTME: Single instance lock for the run command
// ABOUTME: Keeps two pipelines from driving the same devices at once
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = "motionsync.lock"

// lockPath places the lock next to the settings file
func lockPath(settingsPath string) string {
	return filepath.Join(filepath.Dir(settingsPath), lockFileName)
}

// acquireInstanceLock takes the lock at path and returns its release func
func acquireInstanceLock(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another motionsync instance is running (lock %s)", path)
	}
	return func() { _ = lock.Unlock() }, nil
}
