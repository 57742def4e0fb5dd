// Package launcher starts slave processes from the controller side and
// connects to their command and notification channels.
//
// The child inherits its command socket as descriptor 3 and the write end
// of its notification pipe as descriptor 4, and is told so with -c and -n.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/pithecene-io/ossp/iox"
	"github.com/pithecene-io/ossp/ipc"
)

// Descriptor numbers seen by the child.
const (
	childCmdFD    = 3
	childNotifyFD = 4
)

// Config configures a slave launch.
type Config struct {
	// Path is the slave binary.
	Path string
	// Args are appended after the descriptor flags.
	Args []string
	// Env entries override inherited variables of the same name.
	Env []string
	// LogLevel is passed as -l when non-zero.
	LogLevel int
	// Timestamps passes -t.
	Timestamps bool
}

// Result is the outcome of a slave process.
type Result struct {
	// ExitCode is the process exit code, or -1 when killed by a signal.
	ExitCode int
	// StderrBytes is the captured log output.
	StderrBytes []byte
}

// Slave is a running slave process.
type Slave struct {
	cmd    *exec.Cmd
	ch     *ipc.Channel
	client *ipc.Client
	notify *os.File
	stderr io.ReadCloser
}

// Start launches the slave described by cfg. Cancelling ctx kills it.
func Start(ctx context.Context, cfg *Config) (*Slave, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create command socket: %w", err)
	}
	childSock := os.NewFile(uintptr(fds[1]), "ossp-cmd-child")
	defer iox.DiscardClose(childSock)

	ch, err := ipc.FromFD(fds[0], "ossp-cmd")
	if err != nil {
		return nil, err
	}

	notifyR, notifyW, err := os.Pipe()
	if err != nil {
		iox.DiscardClose(ch)
		return nil, fmt.Errorf("failed to create notification pipe: %w", err)
	}
	defer iox.DiscardClose(notifyW)

	cmd := exec.CommandContext(ctx, cfg.Path, slaveArgs(cfg)...)
	cmd.ExtraFiles = []*os.File{childSock, notifyW}
	if len(cfg.Env) > 0 {
		cmd.Env = deduplicateEnv(append(os.Environ(), cfg.Env...))
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		iox.DiscardClose(ch)
		iox.DiscardClose(notifyR)
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		iox.DiscardClose(ch)
		iox.DiscardClose(notifyR)
		return nil, fmt.Errorf("failed to start slave: %w", err)
	}

	return &Slave{
		cmd:    cmd,
		ch:     ch,
		client: ipc.NewClient(ch),
		notify: notifyR,
		stderr: stderr,
	}, nil
}

func slaveArgs(cfg *Config) []string {
	args := []string{
		"-c", strconv.Itoa(childCmdFD),
		"-n", strconv.Itoa(childNotifyFD),
	}
	if cfg.LogLevel != 0 {
		args = append(args, "-l", strconv.Itoa(cfg.LogLevel))
	}
	if cfg.Timestamps {
		args = append(args, "-t")
	}
	return append(args, cfg.Args...)
}

// Client returns the command client. Commands must not overlap.
func (s *Slave) Client() *ipc.Client {
	return s.client
}

// Notifications returns a decoder over the slave's notification pipe.
func (s *Slave) Notifications() *ipc.NotifyDecoder {
	return ipc.NewNotifyDecoder(s.notify)
}

// Pid returns the slave's process id.
func (s *Slave) Pid() int {
	return s.cmd.Process.Pid
}

// Close closes the command channel, which asks the slave to exit.
func (s *Slave) Close() error {
	return s.ch.Close()
}

// Wait waits for the slave to exit and returns the result.
// Must be called after Close or Kill, or once the slave exits by itself.
func (s *Slave) Wait() (*Result, error) {
	defer iox.DiscardClose(s.notify)

	stderrBytes, _ := io.ReadAll(s.stderr)
	err := s.cmd.Wait()

	result := &Result{StderrBytes: stderrBytes}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("slave wait failed: %w", err)
		}
		result.ExitCode = -1
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			result.ExitCode = status.ExitStatus()
		}
	}
	return result, nil
}

// Kill terminates the slave process.
func (s *Slave) Kill() error {
	if s.cmd.Process != nil {
		return s.cmd.Process.Kill()
	}
	return nil
}

// deduplicateEnv keeps the last occurrence of each env var key.
func deduplicateEnv(env []string) []string {
	seen := make(map[string]int, len(env))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		seen[key] = i
	}
	result := make([]string, 0, len(seen))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		if seen[key] == i {
			result = append(result, entry)
		}
	}
	return result
}
