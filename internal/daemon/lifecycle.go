package daemon

import (
	"fmt"
	"os"
	"path/filepath"
)

// LifecycleManager guarantees a single daemon per state directory.
type LifecycleManager struct {
	lockFile   *LockFile
	pidFile    *PIDFile
	socketPath string
}

func NewLifecycleManager(stateDir, socketPath string) *LifecycleManager {
	return &LifecycleManager{
		lockFile:   NewLockFile(filepath.Join(stateDir, "daemon.lock")),
		pidFile:    NewPIDFile(filepath.Join(stateDir, "daemon.pid")),
		socketPath: socketPath,
	}
}

// Acquire takes the instance lock and records the PID. Call Cleanup when
// the daemon exits.
func (lm *LifecycleManager) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(lm.lockFile.Path()), 0700); err != nil {
		return err
	}

	if err := lm.lockFile.Acquire(); err != nil {
		if pid, _ := lm.pidFile.Read(); pid > 0 && lm.pidFile.IsProcessAlive() {
			return fmt.Errorf("%w (pid %d, socket %s)", err, pid, lm.socketPath)
		}
		return err
	}

	if err := lm.pidFile.Write(); err != nil {
		lm.lockFile.Release()
		return err
	}
	return nil
}

// IsRunning reports whether a daemon answers on the socket.
func (lm *LifecycleManager) IsRunning() bool {
	conn, err := Dial(lm.socketPath, dialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (lm *LifecycleManager) Cleanup() {
	if err := lm.pidFile.Remove(); err != nil {
		log.Warn("failed to remove PID file", "error", err)
	}
	lm.lockFile.Release()
}

func (lm *LifecycleManager) PIDFile() *PIDFile {
	return lm.pidFile
}
