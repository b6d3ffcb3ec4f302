package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Status represents the current state of a managed process.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusFailed   Status = "failed"
)

// ErrAlreadyRunning is returned when starting a manager twice.
var ErrAlreadyRunning = errors.New("process: already running")

// Config holds configuration for a managed subprocess.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the executable path or a name looked up in PATH.
	Binary string

	// Args are passed to the binary.
	Args []string

	// Env entries are appended to the inherited environment.
	Env []string

	// RestartOnFailure restarts the process when it exits without Stop.
	RestartOnFailure bool

	// RestartDelay is the wait before each restart.
	RestartDelay time.Duration

	// MaxRestartAttempts caps restarts. Zero means unlimited.
	MaxRestartAttempts int

	// GracefulTimeout is how long Stop waits after SIGTERM before SIGKILL.
	GracefulTimeout time.Duration

	// Stdout consumes the child's standard output until it returns.
	// When nil, output lines are logged at debug level.
	Stdout func(r io.Reader)

	// OnStart is called after each successful start.
	OnStart func()

	// OnStop is called when the process exits, with nil after Stop.
	OnStop func(err error)
}

// Logger defines the logging interface used by the manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager supervises one long-running child, the audio capture tool. The
// child runs in its own process group so a shell wrapper and everything it
// spawned stop together.
type Manager struct {
	config Config
	logger Logger

	mu           sync.RWMutex
	child        *child
	status       Status
	restartCount int
	lastError    error

	stop chan struct{} // closed by Stop
	done chan struct{} // closed when supervise returns
}

// child is one launched instance of the binary.
type child struct {
	cmd     *exec.Cmd
	started time.Time
	drained chan struct{} // closed once stdout has been consumed
}

// exit waits for stdout to be consumed, then reaps the process. Wait
// closes the pipe, so it must not run while the consumer still reads.
func (c *child) exit() error {
	<-c.drained
	return c.cmd.Wait()
}

func NewManager(cfg Config) *Manager {
	if cfg.RestartDelay == 0 {
		cfg.RestartDelay = 2 * time.Second
	}
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 5 * time.Second
	}
	return &Manager{config: cfg, logger: noopLogger{}, status: StatusStopped}
}

func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Start launches the child and supervises it until Stop or ctx ends. Only
// the first launch is reported here; later failures land in LastError.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.status == StatusRunning || m.status == StatusStarting {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, m.config.Name)
	}
	m.status = StatusStarting
	m.restartCount = 0
	m.stop, m.done = make(chan struct{}), make(chan struct{})
	stop, done := m.stop, m.done
	m.mu.Unlock()

	c, err := m.launch(ctx)
	if err != nil {
		m.setStatus(StatusFailed, err)
		close(done)
		return err
	}
	go m.supervise(ctx, c, stop, done)
	return nil
}

func (m *Manager) launch(ctx context.Context) (*child, error) {
	cfg := m.config
	cmd := exec.CommandContext(ctx, cfg.Binary, cfg.Args...) //nolint:gosec // operator-configured capture command
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if cfg.Env != nil {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%s stdout: %w", cfg.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%s stderr: %w", cfg.Name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", cfg.Name, err)
	}

	c := &child{cmd: cmd, started: time.Now(), drained: make(chan struct{})}
	m.mu.Lock()
	m.child = c
	m.status = StatusRunning
	m.mu.Unlock()

	consume := cfg.Stdout
	if consume == nil {
		consume = func(r io.Reader) { m.logLines("stdout", r) }
	}
	go func() {
		defer close(c.drained)
		consume(stdout)
		io.Copy(io.Discard, stdout) //nolint:errcheck // keep the child from blocking on a full pipe
	}()
	go m.logLines("stderr", stderr)

	m.logger.Info("process started", "name", cfg.Name, "binary", cfg.Binary, "pid", cmd.Process.Pid)
	if cfg.OnStart != nil {
		cfg.OnStart()
	}
	return c, nil
}

func (m *Manager) logLines(stream string, r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m.logger.Debug("process output", "name", m.config.Name, "stream", stream, "line", sc.Text())
	}
}

// supervise reaps c and, with RestartOnFailure, relaunches after
// RestartDelay until Stop, ctx, or MaxRestartAttempts ends it. A launch
// that fails counts as an attempt just like a crash.
func (m *Manager) supervise(ctx context.Context, c *child, stop, done chan struct{}) {
	defer close(done)
	cfg := m.config

	for {
		var err error
		if c != nil {
			err = c.exit()
		}

		select {
		case <-stop:
			m.ended(nil)
			return
		default:
		}
		if ctx.Err() != nil {
			m.ended(ctx.Err())
			return
		}

		if c != nil && err == nil {
			err = errors.New("exited with status 0")
		}
		if c != nil {
			m.logger.Warn("process exited unexpectedly", "name", cfg.Name, "error", err)
			m.setStatus(StatusFailed, err)
			if cfg.OnStop != nil {
				cfg.OnStop(err)
			}
		}
		if !cfg.RestartOnFailure {
			return
		}

		m.mu.Lock()
		m.restartCount++
		attempt := m.restartCount
		m.mu.Unlock()
		if cfg.MaxRestartAttempts > 0 && attempt > cfg.MaxRestartAttempts {
			m.logger.Error("giving up on process", "name", cfg.Name, "restarts", attempt-1)
			return
		}

		m.logger.Info("restarting process", "name", cfg.Name, "attempt", attempt, "delay", cfg.RestartDelay)
		delay := time.NewTimer(cfg.RestartDelay)
		select {
		case <-ctx.Done():
			delay.Stop()
			m.setStatus(StatusStopped, nil)
			return
		case <-stop:
			delay.Stop()
			m.setStatus(StatusStopped, nil)
			return
		case <-delay.C:
		}

		if c, err = m.launch(ctx); err != nil {
			m.logger.Error("relaunch failed", "name", cfg.Name, "error", err)
			m.setStatus(StatusFailed, err)
		}
	}
}

// ended records a deliberate stop; cause is nil for Stop and ctx.Err() for
// cancellation.
func (m *Manager) ended(cause error) {
	m.logger.Info("process stopped", "name", m.config.Name)
	m.setStatus(StatusStopped, nil)
	if m.config.OnStop != nil {
		m.config.OnStop(cause)
	}
}

func (m *Manager) setStatus(s Status, err error) {
	m.mu.Lock()
	m.status = s
	if err != nil {
		m.lastError = err
	}
	m.mu.Unlock()
}

// Stop signals the process group with SIGTERM, escalates to SIGKILL after
// GracefulTimeout, and returns once supervision has ended. Calling it on an
// idle or already stopped manager is a no-op.
func (m *Manager) Stop() error {
	m.mu.Lock()
	stop, done, c := m.stop, m.done, m.child
	if stop == nil {
		m.mu.Unlock()
		return nil
	}
	select {
	case <-stop:
		m.mu.Unlock()
		<-done
		return nil
	default:
		close(stop)
	}
	running := m.status == StatusRunning
	m.mu.Unlock()

	if !running || c == nil {
		<-done
		m.setStatus(StatusStopped, nil)
		return nil
	}

	pgid := -c.cmd.Process.Pid
	if err := syscall.Kill(pgid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		m.logger.Warn("SIGTERM failed", "name", m.config.Name, "error", err)
	}

	grace := time.NewTimer(m.config.GracefulTimeout)
	defer grace.Stop()
	select {
	case <-done:
		return nil
	case <-grace.C:
	}

	m.logger.Warn("process ignored SIGTERM, killing", "name", m.config.Name, "timeout", m.config.GracefulTimeout)
	if err := syscall.Kill(pgid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("killing %s: %w", m.config.Name, err)
	}
	<-done
	return nil
}

// Status returns the current status of the managed process.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsRunning returns true if the process is currently running.
func (m *Manager) IsRunning() bool {
	return m.Status() == StatusRunning
}

// LastError returns the last error that caused the process to exit.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}

// RestartCount returns the number of restarts since the last Start.
func (m *Manager) RestartCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.restartCount
}

// Stats summarises a managed process.
type Stats struct {
	Name         string        `json:"name"`
	Status       Status        `json:"status"`
	PID          int           `json:"pid,omitempty"`
	Uptime       time.Duration `json:"uptime,omitempty"`
	RestartCount int           `json:"restart_count"`
	LastError    string        `json:"last_error,omitempty"`
}

// Stats returns current statistics for the process.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		Name:         m.config.Name,
		Status:       m.status,
		RestartCount: m.restartCount,
	}
	if m.status == StatusRunning && m.child != nil {
		stats.PID = m.child.cmd.Process.Pid
		stats.Uptime = time.Since(m.child.started)
	}
	if m.lastError != nil {
		stats.LastError = m.lastError.Error()
	}
	return stats
}
