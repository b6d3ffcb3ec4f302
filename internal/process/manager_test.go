package process

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func waitStatus(t *testing.T, m *Manager, want Status) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if m.Status() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Status() = %q, want %q", m.Status(), want)
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(Config{Name: "test-proc", Binary: "/usr/bin/test"})

	if m.config.RestartDelay != 2*time.Second {
		t.Errorf("RestartDelay = %v, want %v", m.config.RestartDelay, 2*time.Second)
	}
	if m.config.GracefulTimeout != 5*time.Second {
		t.Errorf("GracefulTimeout = %v, want %v", m.config.GracefulTimeout, 5*time.Second)
	}
	if m.Status() != StatusStopped {
		t.Errorf("Status() = %q, want %q", m.Status(), StatusStopped)
	}
	if m.IsRunning() {
		t.Error("IsRunning() should be false before Start")
	}
}

func TestNewManager_CustomConfig(t *testing.T) {
	m := NewManager(Config{
		Name:            "custom",
		Binary:          "/opt/bin/capture",
		RestartDelay:    time.Second,
		GracefulTimeout: 30 * time.Second,
	})

	if m.config.RestartDelay != time.Second {
		t.Errorf("RestartDelay = %v, want 1s", m.config.RestartDelay)
	}
	if m.config.GracefulTimeout != 30*time.Second {
		t.Errorf("GracefulTimeout = %v, want 30s", m.config.GracefulTimeout)
	}
}

func TestManager_StopWhenNotRunning(t *testing.T) {
	m := NewManager(Config{Name: "idle", Binary: "/bin/true"})
	if err := m.Stop(); err != nil {
		t.Errorf("Stop() on idle manager error = %v", err)
	}
}

func TestManager_StartWithInvalidBinary(t *testing.T) {
	m := NewManager(Config{Name: "missing", Binary: "/nonexistent/binary"})

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("Start() should fail for a missing binary")
	}
	if m.Status() != StatusFailed {
		t.Errorf("Status() = %q, want %q", m.Status(), StatusFailed)
	}
	if m.LastError() == nil {
		t.Error("LastError() should be set")
	}
	if err := m.Stop(); err != nil {
		t.Errorf("Stop() after failed start error = %v", err)
	}
}

func TestManager_StartAndStop(t *testing.T) {
	var started atomic.Int32
	var stopErr atomic.Pointer[error]
	m := NewManager(Config{
		Name:            "sleeper",
		Binary:          "/bin/sleep",
		Args:            []string{"30"},
		GracefulTimeout: 2 * time.Second,
		OnStart:         func() { started.Add(1) },
		OnStop:          func(err error) { stopErr.Store(&err) },
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !m.IsRunning() {
		t.Fatal("IsRunning() should be true after Start")
	}
	if started.Load() != 1 {
		t.Errorf("OnStart called %d times, want 1", started.Load())
	}

	stats := m.Stats()
	if stats.PID == 0 {
		t.Error("Stats().PID should be set while running")
	}
	if stats.Name != "sleeper" {
		t.Errorf("Stats().Name = %q, want sleeper", stats.Name)
	}

	if err := m.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if m.Status() != StatusStopped {
		t.Errorf("Status() = %q, want %q", m.Status(), StatusStopped)
	}
	if p := stopErr.Load(); p == nil || *p != nil {
		t.Error("OnStop should be called with nil after Stop")
	}

	// Idempotent.
	if err := m.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestManager_StdoutConsumer(t *testing.T) {
	got := make(chan string, 1)
	m := NewManager(Config{
		Name:   "echo",
		Binary: "/bin/sh",
		Args:   []string{"-c", "printf 'pcm-bytes'"},
		Stdout: func(r io.Reader) {
			b, _ := io.ReadAll(r)
			got <- string(b)
		},
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop() //nolint:errcheck // cleanup

	select {
	case s := <-got:
		if s != "pcm-bytes" {
			t.Errorf("stdout = %q, want pcm-bytes", s)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("stdout consumer never received output")
	}

	// Exit without restart is a failure.
	waitStatus(t, m, StatusFailed)
}

func TestManager_RestartOnFailure(t *testing.T) {
	var starts atomic.Int32
	m := NewManager(Config{
		Name:               "flaky",
		Binary:             "/bin/sh",
		Args:               []string{"-c", "exit 3"},
		RestartOnFailure:   true,
		RestartDelay:       20 * time.Millisecond,
		MaxRestartAttempts: 2,
		OnStart:            func() { starts.Add(1) },
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer m.Stop() //nolint:errcheck // cleanup

	deadline := time.Now().Add(3 * time.Second)
	for starts.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if starts.Load() != 3 {
		t.Fatalf("starts = %d, want 3 (initial + 2 restarts)", starts.Load())
	}

	waitStatus(t, m, StatusFailed)
	time.Sleep(100 * time.Millisecond)
	if starts.Load() != 3 {
		t.Errorf("starts = %d after cap, want 3", starts.Load())
	}
	if err := m.LastError(); err == nil || !strings.Contains(err.Error(), "exit status 3") {
		t.Errorf("LastError() = %v, want exit status 3", err)
	}
}

func TestManager_StopDuringRestartDelay(t *testing.T) {
	m := NewManager(Config{
		Name:             "crasher",
		Binary:           "/bin/sh",
		Args:             []string{"-c", "exit 1"},
		RestartOnFailure: true,
		RestartDelay:     time.Hour,
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitStatus(t, m, StatusFailed)

	done := make(chan error, 1)
	go func() { done <- m.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() blocked during restart delay")
	}
	if m.Status() != StatusStopped {
		t.Errorf("Status() = %q, want %q", m.Status(), StatusStopped)
	}
}

func TestManager_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(Config{Name: "sleeper", Binary: "/bin/sleep", Args: []string{"30"}})

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()
	waitStatus(t, m, StatusStopped)
}

func TestManager_SetLogger(t *testing.T) {
	m := NewManager(Config{Name: "test", Binary: "/bin/true"})
	m.SetLogger(noopLogger{})
	if m.logger == nil {
		t.Error("logger should not be nil after SetLogger")
	}
}
