package smt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// closeGrace is how long Close waits for the solver to exit on its own after
// its input is closed before killing it.
const closeGrace = 2 * time.Second

// conn is the solver end of a session: commands go out through Write, answers
// come back one line at a time.
type conn interface {
	io.Writer
	ReadLine(ctx context.Context) (string, error)
	// Abort kills the peer without waiting for it.
	Abort()
	Close() error
}

// lineReader pumps lines from r into a channel so that a read can be
// abandoned when its context ends.
type lineReader struct {
	lines    chan string
	err      error
	done     chan struct{}
	stopOnce sync.Once
	finished chan struct{}
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{
		lines:    make(chan string),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go lr.run(r)
	return lr
}

func (lr *lineReader) run(r io.Reader) {
	defer close(lr.finished)
	defer close(lr.lines)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		select {
		case lr.lines <- strings.TrimRight(sc.Text(), "\r"):
		case <-lr.done:
			lr.err = io.ErrClosedPipe
			return
		}
	}
	lr.err = sc.Err()
	if lr.err == nil {
		lr.err = io.EOF
	}
}

func (lr *lineReader) ReadLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-lr.lines:
		if !ok {
			return "", lr.err
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// stop releases the pump if it is blocked handing over a line. The pump may
// still be blocked reading; the caller closes the underlying reader for that.
func (lr *lineReader) stop() {
	lr.stopOnce.Do(func() { close(lr.done) })
}

func (lr *lineReader) wait() {
	<-lr.finished
}

// process is a solver subprocess. Standard output and standard error share
// one pipe: solvers report errors on either.
type process struct {
	*lineReader

	cmd       *exec.Cmd
	stdin     io.WriteCloser
	out       *os.File
	exited    chan struct{}
	waitErr   error
	killed    bool
	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func startProcess(argv []string, env []string) (*process, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("empty solver command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	pr, pw, err := os.Pipe()
	if err != nil {
		stdin.Close()
		return nil, err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("start solver %s: %w", argv[0], err)
	}
	pw.Close()

	p := &process{
		lineReader: newLineReader(pr),
		cmd:        cmd,
		stdin:      stdin,
		out:        pr,
		exited:     make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
	}()
	return p, nil
}

func (p *process) Pid() int {
	return p.cmd.Process.Pid
}

func (p *process) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

func (p *process) Abort() {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.exited:
		return
	default:
	}
	p.killed = true
	_ = p.cmd.Process.Kill()
}

// Close ends the solver's input, gives it closeGrace to exit and kills it
// otherwise. It returns once the process is reaped and the line pump is gone.
func (p *process) Close() error {
	p.closeOnce.Do(func() {
		p.stdin.Close()
		select {
		case <-p.exited:
		case <-time.After(closeGrace):
			p.Abort()
			<-p.exited
		}
		p.stop()
		p.out.Close()
		p.wait()

		p.mu.Lock()
		killed := p.killed
		p.mu.Unlock()
		if p.waitErr != nil && !killed {
			p.closeErr = fmt.Errorf("solver exited: %w", p.waitErr)
		}
	})
	return p.closeErr
}
