// Package tunnel opens local port forwards to services running inside jobs.
//
// Each forward is a background "ssh -N -L" process owned by the Manager that
// started it. The owner releases its handles on every exit path with
// Handle.Close or Manager.CloseAll. On Linux the process also receives
// SIGTERM when hpctui dies without closing it; elsewhere a crash can leave
// the forward running until ssh notices the dead connection.
package tunnel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/RevCBH/hpctui/internal/events"
	"github.com/RevCBH/hpctui/internal/logger"
)

const (
	// DefaultStartupGrace is how long Open watches for an early ssh exit.
	DefaultStartupGrace = 500 * time.Millisecond

	// DefaultCloseWait bounds how long Close waits for the process after
	// SIGTERM before killing it.
	DefaultCloseWait = 2 * time.Second

	maxStderr = 4096
)

var (
	// ErrPortInUse means the session already holds a live forward on the port
	ErrPortInUse = errors.New("local port already forwarded in this session")

	// ErrInvalidSpec means a port or host is missing or malformed
	ErrInvalidSpec = errors.New("invalid tunnel spec")
)

// Spec describes one forward: localhost:LocalPort → RemoteHost:RemotePort,
// optionally jumping through Proxy.
type Spec struct {
	LocalPort  int
	RemoteHost string
	RemotePort int
	Proxy      string
}

func (s Spec) validate() error {
	switch {
	case s.LocalPort < 1 || s.LocalPort > 65535:
		return fmt.Errorf("%w: local port %d", ErrInvalidSpec, s.LocalPort)
	case s.RemotePort < 1 || s.RemotePort > 65535:
		return fmt.Errorf("%w: remote port %d", ErrInvalidSpec, s.RemotePort)
	case s.RemoteHost == "" || strings.HasPrefix(s.RemoteHost, "-"):
		return fmt.Errorf("%w: remote host %q", ErrInvalidSpec, s.RemoteHost)
	case strings.HasPrefix(s.Proxy, "-"):
		return fmt.Errorf("%w: proxy %q", ErrInvalidSpec, s.Proxy)
	}
	return nil
}

// Config configures a Manager.
type Config struct {
	// Command is the ssh binary (default: "ssh")
	Command string

	// StartupGrace is how long Open waits for ssh to fail fast (default: 500ms)
	StartupGrace time.Duration

	// CloseWait is how long Close waits after SIGTERM before killing (default: 2s)
	CloseWait time.Duration

	// Cluster labels emitted events
	Cluster string

	// Bus receives tunnel events (optional)
	Bus *events.Bus

	Logger *slog.Logger
}

// Manager owns the forwards of one session.
type Manager struct {
	cfg     Config
	session string
	logger  *slog.Logger

	mu      sync.Mutex
	handles map[int]*Handle

	// signal is replaced in tests
	signal func(*os.Process) error
}

// NewManager creates a Manager with a fresh session id.
func NewManager(cfg Config) *Manager {
	if cfg.Command == "" {
		cfg.Command = "ssh"
	}
	if cfg.StartupGrace <= 0 {
		cfg.StartupGrace = DefaultStartupGrace
	}
	if cfg.CloseWait <= 0 {
		cfg.CloseWait = DefaultCloseWait
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	session := ulid.Make().String()
	return &Manager{
		cfg:     cfg,
		session: session,
		logger:  cfg.Logger.With("session", session),
		handles: make(map[int]*Handle),
		signal:  func(p *os.Process) error { return p.Signal(syscall.SIGTERM) },
	}
}

// Session returns the session id stamped on every handle.
func (m *Manager) Session() string {
	return m.session
}

// Args returns the ssh arguments for spec.
func (m *Manager) Args(spec Spec) []string {
	args := []string{
		"-N",
		"-o", "ExitOnForwardFailure=yes",
		"-o", "ServerAliveInterval=30",
		"-o", "ServerAliveCountMax=3",
		"-o", "ConnectTimeout=10",
	}
	if spec.Proxy != "" {
		args = append(args, "-J", spec.Proxy)
	}
	return append(args,
		"-L", fmt.Sprintf("%d:localhost:%d", spec.LocalPort, spec.RemotePort),
		spec.RemoteHost,
	)
}

// Open starts a forward. It fails with ErrPortInUse when this session still
// holds a live handle on spec.LocalPort, and with the ssh error output when
// the process exits during the startup grace period.
func (m *Manager) Open(ctx context.Context, spec Spec) (*Handle, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if h, ok := m.handles[spec.LocalPort]; ok && h.Alive() {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrPortInUse, spec.LocalPort)
	}

	h := &Handle{
		LocalPort:  spec.LocalPort,
		RemoteHost: spec.RemoteHost,
		RemotePort: spec.RemotePort,
		Proxy:      spec.Proxy,
		Session:    m.session,
		manager:    m,
		done:       make(chan struct{}),
	}
	h.cmd = exec.Command(m.cfg.Command, m.Args(spec)...)
	h.cmd.Stdout = io.Discard
	h.cmd.Stderr = &h.stderr
	configureProcess(h.cmd)

	if err := h.cmd.Start(); err != nil {
		m.mu.Unlock()
		err = fmt.Errorf("start ssh forward: %w", err)
		m.emit(spec, events.TunnelFailed, err)
		return nil, err
	}
	m.handles[spec.LocalPort] = h
	m.mu.Unlock()

	go h.wait()

	select {
	case <-h.done:
		err := fmt.Errorf("ssh forward exited: %s", h.failure())
		m.emit(spec, events.TunnelFailed, err)
		return nil, err
	case <-ctx.Done():
		// never reported as opened, so it is not reported as closed either
		h.closeOnce.Do(func() {
			h.closing.Store(true)
			h.terminate()
		})
		m.emit(spec, events.TunnelFailed, ctx.Err())
		return nil, ctx.Err()
	case <-time.After(m.cfg.StartupGrace):
	}

	h.opened.Store(true)
	m.logger.Info("tunnel opened", "local_port", spec.LocalPort, "remote", fmt.Sprintf("%s:%d", spec.RemoteHost, spec.RemotePort), "proxy", spec.Proxy, "pid", h.cmd.Process.Pid)
	m.emit(spec, events.TunnelOpened, nil)
	return h, nil
}

// Handles returns the live handles ordered by local port.
func (m *Manager) Handles() []*Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		if h.Alive() {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocalPort < out[j].LocalPort })
	return out
}

// CloseAll closes every handle the session still holds.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		h.Close()
	}
}

func (m *Manager) release(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handles[h.LocalPort] == h {
		delete(m.handles, h.LocalPort)
	}
}

func (m *Manager) emit(spec Spec, typ events.EventType, err error) {
	if m.cfg.Bus == nil {
		return
	}
	m.cfg.Bus.Emit(events.NewEvent(typ, "").
		WithCluster(m.cfg.Cluster).
		WithPayload(map[string]any{
			"local_port":  spec.LocalPort,
			"remote_host": spec.RemoteHost,
			"remote_port": spec.RemotePort,
			"session":     m.session,
		}).
		WithError(err))
}

// Handle is one live forward. Close is idempotent and signals the process
// at most once.
type Handle struct {
	LocalPort  int
	RemoteHost string
	RemotePort int
	Proxy      string
	Session    string

	manager *Manager
	cmd     *exec.Cmd
	stderr  limitedBuffer

	done    chan struct{}
	waitErr error

	opened    atomic.Bool
	closing   atomic.Bool
	closeOnce sync.Once
	signals   atomic.Int32
}

func (h *Handle) wait() {
	h.waitErr = h.cmd.Wait()
	close(h.done)
	h.manager.release(h)

	if h.opened.Load() && !h.closing.Load() {
		err := fmt.Errorf("ssh forward exited: %s", h.failure())
		h.manager.logger.Warn("tunnel process exited", "local_port", h.LocalPort, "error", err)
		h.manager.emit(h.spec(), events.TunnelFailed, err)
	}
}

// Alive reports whether the ssh process is still running.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Close stops the forward. Closing twice or closing a handle whose process
// already exited is a no-op. It always returns nil.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.closing.Store(true)
		h.terminate()
		h.manager.logger.Info("tunnel closed", "local_port", h.LocalPort)
		h.manager.emit(h.spec(), events.TunnelClosed, nil)
	})
	return nil
}

// terminate sends SIGTERM once and kills the process if it is still running
// after CloseWait.
func (h *Handle) terminate() {
	defer h.manager.release(h)
	if !h.Alive() {
		return
	}

	h.signals.Add(1)
	if err := h.manager.signal(h.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		h.manager.logger.Warn("failed to signal tunnel process", "local_port", h.LocalPort, "error", err)
	}
	select {
	case <-h.done:
		return
	case <-time.After(h.manager.cfg.CloseWait):
	}

	h.manager.logger.Warn("tunnel process ignored SIGTERM, killing it", "local_port", h.LocalPort, "pid", h.cmd.Process.Pid)
	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		h.manager.logger.Warn("failed to kill tunnel process", "local_port", h.LocalPort, "error", err)
		return
	}
	select {
	case <-h.done:
	case <-time.After(h.manager.cfg.CloseWait):
		h.manager.logger.Warn("tunnel process did not exit", "local_port", h.LocalPort, "pid", h.cmd.Process.Pid)
	}
}

func (h *Handle) spec() Spec {
	return Spec{LocalPort: h.LocalPort, RemoteHost: h.RemoteHost, RemotePort: h.RemotePort, Proxy: h.Proxy}
}

// Signals reports how many times Close signalled the process.
func (h *Handle) Signals() int {
	return int(h.signals.Load())
}

func (h *Handle) failure() string {
	if msg := strings.TrimSpace(h.stderr.String()); msg != "" {
		return msg
	}
	if h.waitErr != nil {
		return h.waitErr.Error()
	}
	return "exited"
}

// limitedBuffer keeps the first maxStderr bytes written to it.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := maxStderr - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
