package applock

import (
	"path/filepath"
	"testing"
)

func TestAcquireCreatesDirectoryAndLocks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "xlatnagiosdatad")
	lock, err := Acquire(dir, "daemon.lock")
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Close()

	// a second instance must be refused while the first holds the lock
	if _, err := Acquire(dir, "daemon.lock"); err == nil {
		t.Error("second acquire should fail while the lock is held")
	}
}

func TestCloseReleasesLock(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(dir, "daemon.lock")
	if err != nil {
		t.Fatal(err)
	}
	if err := lock.Close(); err != nil {
		t.Fatal(err)
	}
	if err := lock.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}

	relock, err := Acquire(dir, "daemon.lock")
	if err != nil {
		t.Fatalf("reacquire after release failed: %v", err)
	}
	relock.Close()
}
