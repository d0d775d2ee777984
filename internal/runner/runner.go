// Package runner executes external tools and streams their diagnostic output.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// TailLines is how many diagnostic lines an ExecutionError keeps.
const TailLines = 50

// LineFunc receives one diagnostic line without its line terminator.
type LineFunc func(line string)

// ExecutionError reports a process that could not run or exited non-zero.
// ReturnCode is -1 when the process could not be started or waited on.
type ExecutionError struct {
	Command    []string
	ReturnCode int
	Tail       []string
	Err        error
}

func (e *ExecutionError) Error() string {
	name := ""
	if len(e.Command) > 0 {
		name = e.Command[0]
	}
	msg := fmt.Sprintf("%s exited with code %d", name, e.ReturnCode)
	if e.ReturnCode == -1 && e.Err != nil {
		msg = fmt.Sprintf("%s failed to run: %v", name, e.Err)
	}
	if len(e.Tail) > 0 {
		msg += "\n" + strings.Join(e.Tail, "\n")
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Cmd describes a process to start.
type Cmd struct {
	Argv []string
	Dir  string
	// Env entries are appended to the current environment.
	Env []string
}

// Run starts argv, forwards every stderr line to onLine and blocks until the
// process exits. Stdout is discarded. The last TailLines lines are attached
// to the returned *ExecutionError on failure.
func Run(ctx context.Context, argv []string, onLine LineFunc, workdir string) error {
	return RunCmd(ctx, Cmd{Argv: argv, Dir: workdir}, onLine)
}

// RunCmd is Run with extra environment.
func RunCmd(ctx context.Context, c Cmd, onLine LineFunc) error {
	argv := c.Argv
	if len(argv) == 0 {
		return &ExecutionError{ReturnCode: -1, Err: errors.New("empty command")}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdout = io.Discard
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &ExecutionError{Command: argv, ReturnCode: -1, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return &ExecutionError{Command: argv, ReturnCode: -1, Err: err}
	}

	tail := newRing(TailLines)
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLines)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		tail.push(line)
		if onLine != nil {
			onLine(line)
		}
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// keep the pipe drained so the child does not block on a full buffer
		_, _ = io.Copy(io.Discard, stderr)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			return &ExecutionError{Command: argv, ReturnCode: exitErr.ExitCode(), Tail: tail.lines(), Err: err}
		}
		return &ExecutionError{Command: argv, ReturnCode: -1, Tail: tail.lines(), Err: err}
	}
	if scanErr != nil {
		return &ExecutionError{Command: argv, ReturnCode: -1, Tail: tail.lines(), Err: scanErr}
	}
	return nil
}

// scanLines splits on '\n', '\r' or "\r\n". ffmpeg redraws its status line
// with bare carriage returns.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
			} else if !atEOF {
				// need one more byte to tell "\r" from "\r\n"
				return 0, nil, nil
			}
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// ring keeps the most recent n lines.
type ring struct {
	buf  []string
	next int
	full bool
}

func newRing(n int) *ring {
	return &ring{buf: make([]string, n)}
}

func (r *ring) push(s string) {
	r.buf[r.next] = s
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

func (r *ring) lines() []string {
	if !r.full {
		out := make([]string, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]string, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
