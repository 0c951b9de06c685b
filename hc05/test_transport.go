package hc05

import (
	"io"
	"slices"
	"strings"
	"sync"
	"time"
)

// TestTransport is a test helper that plays the module's side of the
// link from a script. Each written line is looked up in the script and
// the matching reply becomes readable. Reads never block: with nothing
// pending they return 0 bytes, the way a serial read times out.
type TestTransport struct {
	mu       sync.Mutex
	script   map[string][]string
	pending  []byte
	writes   []string
	baudRate int
	answerAt []int
	closed   bool
}

// NewTestTransport creates a new test transport for testing.
// Exported for use in tests.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		script: make(map[string][]string),
	}
}

// Reply queues replies for a command line, given without CRLF (for
// example "AT+STATE?"). Replies are used in order; the last one keeps
// answering once the others are used up.
func (t *TestTransport) Reply(line string, replies ...string) *TestTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.script[line] = append(t.script[line], replies...)
	return t
}

// AnswerAt restricts replies to the given baud rates.
func (t *TestTransport) AnswerAt(rates ...int) *TestTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.answerAt = rates
	return t
}

// SendData makes data readable without a preceding command.
// This simulates the module or the remote device talking on its own.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, data...)
}

// Writes returns every line written so far, CRLF stripped.
func (t *TestTransport) Writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.writes)
}

// Count returns how many times line was written.
func (t *TestTransport) Count(line string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, w := range t.writes {
		if w == line {
			n++
		}
	}
	return n
}

// BaudRate returns the current line speed.
func (t *TestTransport) BaudRate() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.baudRate
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}

	line := strings.TrimSuffix(string(p), "\r\n")
	t.writes = append(t.writes, line)

	if t.answerAt != nil && !slices.Contains(t.answerAt, t.baudRate) {
		return len(p), nil
	}
	replies := t.script[line]
	if len(replies) == 0 {
		return len(p), nil
	}
	t.pending = append(t.pending, replies[0]...)
	if len(replies) > 1 {
		t.script[line] = replies[1:]
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.EOF
	}
	n = copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

func (t *TestTransport) SetBaudRate(rate int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baudRate = rate
	return nil
}

func (t *TestTransport) SetReadTimeout(time.Duration) error {
	return nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
