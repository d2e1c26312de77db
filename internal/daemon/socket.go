package daemon

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

type SocketListener struct {
	path     string
	listener net.Listener
}

func NewSocketListener(socketPath string) *SocketListener {
	return &SocketListener{
		path: socketPath,
	}
}

// Start replaces any stale socket file and restricts the new one to the
// owner.
func (sl *SocketListener) Start() error {
	dir := filepath.Dir(sl.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	if err := os.Remove(sl.path); err != nil && !os.IsNotExist(err) {
		return err
	}

	listener, err := net.Listen("unix", sl.path)
	if err != nil {
		return err
	}

	sl.listener = listener
	return os.Chmod(sl.path, 0700)
}

func (sl *SocketListener) Accept() (net.Conn, error) {
	if sl.listener == nil {
		return nil, fmt.Errorf("listener not started")
	}
	return sl.listener.Accept()
}

func (sl *SocketListener) Close() error {
	if sl.listener == nil {
		return nil
	}
	return sl.listener.Close()
}

func (sl *SocketListener) Remove() {
	os.Remove(sl.path)
}

// Dial connects to a daemon socket.
func Dial(socketPath string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", socketPath, timeout)
}
