package workflow

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Interactor asks the operator yes/no questions.
type Interactor interface {
	ConfirmYesNo(question string) bool
}

// Terminal reads operator answers from one shared buffered reader. A single
// reader matters when input is piped: a per-call bufio.Reader buffers ahead
// past the first newline, so the answer to the next question would be consumed
// and discarded along with it.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal returns a Terminal bound to stdin/stdout. It implements both
// Prompter and Interactor.
func NewTerminal() *Terminal {
	return NewTerminalWith(os.Stdin, os.Stdout)
}

// NewTerminalWith returns a Terminal reading from r and writing to w.
func NewTerminalWith(r io.Reader, w io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(r), out: w}
}

// ReadLine prints the prompt and returns the operator's answer without the
// trailing newline.
func (t *Terminal) ReadLine(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)

	answer, err := t.in.ReadString('\n')
	if err != nil && answer == "" {
		return "", err
	}
	return strings.TrimRight(answer, "\r\n"), nil
}

// ConfirmYesNo prints the question and reads one line. Anything not starting
// with "y" (case-insensitive), including a read error, counts as no.
func (t *Terminal) ConfirmYesNo(question string) bool {
	fmt.Fprintf(t.out, "%s [y/N]: ", question)

	answer, err := t.in.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y")
}
