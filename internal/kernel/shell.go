package kernel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// ShellRunner is a Submitter that executes submitted code under a local shell
// instead of a kernel gateway. It synthesizes the same message variants a
// kernel would produce: a Stream per output line and an Error when the shell
// exits non-zero.
type ShellRunner struct {
	// Shell is the interpreter binary. Defaults to "bash" when empty.
	Shell string

	// Dir, when set, is the working directory for submissions.
	Dir string
}

// NewShellRunner returns a Submitter backed by the system shell.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{}
}

func (r *ShellRunner) shellBinary() string {
	if r.Shell == "" {
		return "bash"
	}
	return r.Shell
}

// Submit runs code with `bash -c`, relaying each line of stdout and stderr as
// a Stream message. A non-zero exit is relayed as an Error message and also
// returned as a CommandError so callers can distinguish success.
func (r *ShellRunner) Submit(ctx context.Context, code string, onMessage func(Message)) error {
	cmd := exec.CommandContext(ctx, r.shellBinary(), "-c", code)
	cmd.Dir = r.Dir
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("open stderr pipe: %w", err)
	}

	// onMessage must see one message at a time; the two pipe readers are
	// serialized through this mutex.
	var mu sync.Mutex
	emit := func(msg Message) {
		mu.Lock()
		defer mu.Unlock()
		onMessage(msg)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start shell: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go relayLines(&wg, stdout, "stdout", emit)
	go relayLines(&wg, stderr, "stderr", emit)

	done := make(chan error, 1)
	go func() {
		wg.Wait()
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		terminateProcessGroup(cmd)
		<-done
		return ctx.Err()
	case err := <-done:
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			emit(Error{Name: "CalledProcessError", Value: err.Error()})
			return &CommandError{Code: code, Err: err}
		}
	}

	return nil
}

// relayLines forwards pipe output line by line. Lines carry no length cap: a
// capped reader that stops on a long line leaves the pipe full, the child
// blocked on a write, and Submit waiting forever.
func relayLines(wg *sync.WaitGroup, pipe io.Reader, name string, emit func(Message)) {
	defer wg.Done()
	reader := bufio.NewReaderSize(pipe, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if !strings.HasSuffix(line, "\n") {
				line += "\n"
			}
			emit(Stream{Name: name, Text: line})
		}
		if err != nil {
			return
		}
	}
}

// CommandError wraps a non-zero exit from a shell submission.
type CommandError struct {
	Code string
	Err  error
}

func (e *CommandError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("shell submission failed: %v", e.Err)
}

func (e *CommandError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
