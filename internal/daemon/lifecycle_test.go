package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestLifecycleSingleInstance(t *testing.T) {
	dir := t.TempDir()
	first := NewLifecycleManager(dir, filepath.Join(dir, "daemon.sock"))
	if err := first.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	pid, err := first.PIDFile().Read()
	if err != nil || pid != os.Getpid() {
		t.Errorf("expected our pid, got %d (%v)", pid, err)
	}

	second := NewLifecycleManager(dir, filepath.Join(dir, "daemon.sock"))
	if err := second.Acquire(); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}

	first.Cleanup()
	if _, err := os.Stat(first.PIDFile().Path()); !os.IsNotExist(err) {
		t.Error("expected PID file removed")
	}

	if err := second.Acquire(); err != nil {
		t.Fatalf("Acquire after cleanup: %v", err)
	}
	second.Cleanup()
}

func TestPIDFileReplacesStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	if err := os.WriteFile(path, []byte("999999"), 0600); err != nil {
		t.Fatal(err)
	}

	pf := NewPIDFile(path)
	if err := pf.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != strconv.Itoa(os.Getpid()) {
		t.Errorf("unexpected content %q", data)
	}
	if !pf.IsProcessAlive() {
		t.Error("our own process should be alive")
	}
}

func TestPIDFileReadMissing(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "none.pid"))
	pid, err := pf.Read()
	if err != nil || pid != 0 {
		t.Errorf("expected 0, nil; got %d, %v", pid, err)
	}
	if err := pf.Remove(); err != nil {
		t.Errorf("Remove of missing file: %v", err)
	}
}

func TestIsRunning(t *testing.T) {
	socket := shortSocketPath(t)
	lm := NewLifecycleManager(t.TempDir(), socket)
	if lm.IsRunning() {
		t.Fatal("nothing should be listening yet")
	}

	startDaemon(t, Options{SocketPath: socket})
	if !lm.IsRunning() {
		t.Error("expected daemon to answer")
	}
}
