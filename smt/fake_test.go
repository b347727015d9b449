package smt

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"slava0135/smtshim/sorts"
)

// fakeSolver is an in-memory conn. respond sees everything written since the
// previous (check-sat) or (get-value ...) and decides the answer, which may
// span several lines; ok=false means the solver never answers.
type fakeSolver struct {
	mu      sync.Mutex
	sent    strings.Builder
	pending strings.Builder
	answers chan string
	respond func(query string) (answer string, ok bool)
	aborted bool
	closed  bool
}

func newFakeSolver(respond func(query string) (string, bool)) *fakeSolver {
	return &fakeSolver{answers: make(chan string, 64), respond: respond}
}

func always(answer string) func(string) (string, bool) {
	return func(string) (string, bool) { return answer, true }
}

// withModel answers verdict to every check and values to every get-value.
func withModel(verdict, values string) func(string) (string, bool) {
	return func(q string) (string, bool) {
		if strings.HasPrefix(q, "(get-value ") {
			return values, true
		}
		return verdict, true
	}
}

func (f *fakeSolver) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.aborted {
		return 0, io.ErrClosedPipe
	}
	f.sent.Write(b)
	for _, line := range strings.SplitAfter(string(b), "\n") {
		f.pending.WriteString(line)
		cmd := strings.TrimSpace(line)
		if cmd == "(check-sat)" || strings.HasPrefix(cmd, "(get-value ") {
			if ans, ok := f.respond(f.pending.String()); ok {
				for _, l := range strings.Split(ans, "\n") {
					f.answers <- l
				}
			}
			f.pending.Reset()
		}
	}
	return len(b), nil
}

func (f *fakeSolver) ReadLine(ctx context.Context) (string, error) {
	select {
	case line := <-f.answers:
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *fakeSolver) Abort() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = true
}

func (f *fakeSolver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSolver) Sent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent.String()
}

func (f *fakeSolver) state() (aborted, closed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.aborted, f.closed
}

func newFakeSession(t *testing.T, f *fakeSolver, cfg Config) *Session {
	t.Helper()
	s, err := start(f, cfg, sorts.Default())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
