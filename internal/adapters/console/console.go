// Package console asks the operator to approve paid routing requests.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrNoAnswer is returned when input ends before an answer is read.
var ErrNoAnswer = errors.New("no answer")

// Confirmer prints a prompt and reads a yes/no line. Only the exact answer
// "yes" approves; anything else declines.
type Confirmer struct {
	in  *bufio.Reader
	out io.Writer

	mu      sync.Mutex
	once    sync.Once
	pending bool
	reads   chan struct{}
	answers chan answer
}

type answer struct {
	line string
	err  error
}

// NewConfirmer reads answers from in and writes prompts to out.
func NewConfirmer(in io.Reader, out io.Writer) *Confirmer {
	return &Confirmer{
		in:      bufio.NewReader(in),
		out:     out,
		reads:   make(chan struct{}, 1),
		answers: make(chan answer, 1),
	}
}

// Confirm writes prompt and waits for one line of input or ctx. A line
// still being read when ctx ends answers the next Confirm call.
func (c *Confirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := io.WriteString(c.out, prompt); err != nil {
		return false, fmt.Errorf("confirm: %w", err)
	}
	c.once.Do(func() { go c.readLines() })
	if !c.pending {
		c.reads <- struct{}{}
		c.pending = true
	}

	select {
	case <-ctx.Done():
		return false, fmt.Errorf("confirm: %w", ctx.Err())
	case a := <-c.answers:
		c.pending = false
		switch {
		case a.err == nil:
		case errors.Is(a.err, io.EOF) && a.line != "":
			// last line without a newline
		case errors.Is(a.err, io.EOF):
			return false, fmt.Errorf("confirm: %w", ErrNoAnswer)
		default:
			return false, fmt.Errorf("confirm: %w", a.err)
		}
		return Approves(a.line), nil
	}
}

// readLines reads one line per request so that no input is consumed
// before it is asked for.
func (c *Confirmer) readLines() {
	for range c.reads {
		line, err := c.in.ReadString('\n')
		c.answers <- answer{line: line, err: err}
	}
}

// Approves reports whether answer, without its line ending, is "yes".
func Approves(answer string) bool {
	return strings.TrimRight(answer, "\r\n") == "yes"
}

// Always approves without asking; it backs the non-interactive -yes flag.
type Always struct{}

// Confirm returns true.
func (Always) Confirm(context.Context, string) (bool, error) { return true, nil }
