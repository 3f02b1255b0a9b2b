package daemonctl

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"studyforge/internal/config"
	"studyforge/internal/daemon"
)

// DaemonBinary is the executable launched by Start.
const DaemonBinary = "studyforged"

const pollInterval = 100 * time.Millisecond

// ErrDaemonNotRunning indicates no process holds the daemon lock.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// ResolveExecutable finds studyforged next to the running binary, then on
// PATH.
func ResolveExecutable() (string, error) {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), DaemonBinary)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := exec.LookPath(DaemonBinary)
	if err != nil {
		return "", fmt.Errorf("locate %s: %w", DaemonBinary, err)
	}
	return path, nil
}

// Launch starts a detached daemon process in its own session.
func Launch(executablePath string, opts LaunchOptions) (int, error) {
	if strings.TrimSpace(executablePath) == "" {
		return 0, fmt.Errorf("resolve executable: executable path is empty")
	}
	var args []string
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return 0, fmt.Errorf("launch daemon: %w", err)
	}
	pid := proc.Process.Pid
	// Reap the child if it exits while this process is still alive.
	go func() { _ = proc.Wait() }()
	return pid, nil
}

// Running reports whether some process holds the daemon lock.
func Running(cfg *config.Config) (bool, error) {
	return daemon.LockHeld(cfg)
}

// WaitFor polls the daemon lock until it matches want or timeout elapses.
func WaitFor(cfg *config.Config, want bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		held, err := Running(cfg)
		if err != nil {
			return err
		}
		if held == want {
			return nil
		}
		if time.Now().After(deadline) {
			if want {
				return fmt.Errorf("daemon did not start within %s (see %s)", timeout, cfg.Paths.LogDir)
			}
			return fmt.Errorf("daemon did not stop within %s", timeout)
		}
		time.Sleep(pollInterval)
	}
}

// EnsureStarted launches the daemon unless one is already running and waits
// for it to take the lock.
func EnsureStarted(cfg *config.Config, executablePath string, opts LaunchOptions, timeout time.Duration) (StartResult, error) {
	held, err := Running(cfg)
	if err != nil {
		return StartResult{}, err
	}
	if held {
		pid, _ := ReadPID(cfg.PIDPath())
		return StartResult{State: StartStateAlreadyRunning, PID: pid}, nil
	}
	pid, err := Launch(executablePath, opts)
	if err != nil {
		return StartResult{}, err
	}
	if err := WaitFor(cfg, true, timeout); err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, PID: pid}, nil
}

// ReadPID parses the daemon pid file. A missing file returns 0 and no error.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read daemon pid file %q: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("daemon pid file %q is malformed", path)
	}
	return pid, nil
}

// Stop sends SIGTERM to the daemon and waits up to gracePeriod for it to
// release the lock, then falls back to SIGKILL.
func Stop(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	held, err := Running(cfg)
	if err != nil {
		return StopResult{}, err
	}
	if !held {
		return StopResult{}, ErrDaemonNotRunning
	}
	pid, err := ReadPID(cfg.PIDPath())
	if err != nil {
		return StopResult{}, err
	}
	if pid == 0 {
		return StopResult{}, fmt.Errorf("daemon lock is held but %s is missing", cfg.PIDPath())
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return StopResult{}, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	result := StopResult{PID: pid}
	if err := proc.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return result, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}
	if err := WaitFor(cfg, false, gracePeriod); err == nil {
		return result, nil
	}

	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	result.ForcedKill = true
	if err := os.Remove(cfg.PIDPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return result, fmt.Errorf("remove pid file: %w", err)
	}
	if err := WaitFor(cfg, false, gracePeriod); err != nil {
		return result, err
	}
	return result, nil
}
