// Package smt drives an external SMT-LIB solver over its standard streams.
//
// A Session sends a fixed preamble once, opens a working scope, and then
// answers any number of satisfiability checks by replacing that scope:
//
//	(pop) (push) (declare-const x0 S) ... (assert E) (check-sat)
//
// so the preamble stays visible while everything a previous check declared is
// discarded. Each check reads exactly one line back: sat, unsat or unknown.
// Anything else means the conversation is out of sync; the session reports a
// *ProtocolError and refuses further work. CheckSatModel follows a sat verdict
// with one (get-value ...) for the declared constants.
//
// A Session serializes its callers. Use one per worker, or a Pool to share a
// fixed number of solver processes between goroutines.
package smt

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"slava0135/smtshim/term"
)

// Checker answers satisfiability questions. *Session and *Pool implement it.
type Checker interface {
	CheckSat(ctx context.Context, assertion term.Node) (Verdict, error)
}

// ModelChecker is a Checker that can also report a satisfying assignment.
// *Session and *Pool implement it.
type ModelChecker interface {
	Checker
	CheckSatModel(ctx context.Context, assertion term.Node) (Verdict, *Model, error)
}

type Config struct {
	// Command runs the solver; see SolverCommand.
	Command []string
	// Env is appended to the current environment of the solver process.
	Env []string
	// Preamble is sent verbatim once, below the working scope.
	Preamble string
	// TranscriptDir, if set, receives one session-<id>.smt2 file per session
	// with everything sent to the solver and every verdict as a comment.
	TranscriptDir string
	Logger        *zap.Logger
}

type Session struct {
	id  string
	reg Registry
	log *zap.Logger

	mu         sync.Mutex
	conn       conn
	w          *bufio.Writer
	transcript *bufio.Writer
	file       *os.File
	tr         *Tracker
	buf        bytes.Buffer
	checks     int
	closed     bool
	broken     error
	stats      Stats
}

// NewSession starts the solver process and sends the preamble. A solver that
// cannot be started is reported here, not on the first check.
func NewSession(cfg Config, reg Registry) (*Session, error) {
	p, err := startProcess(cfg.Command, cfg.Env)
	if err != nil {
		return nil, err
	}
	s, err := start(p, cfg, reg)
	if err != nil {
		p.Abort()
		p.Close()
		return nil, err
	}
	s.log.Info("solver session started", zap.Strings("command", cfg.Command), zap.Int("pid", p.Pid()))
	return s, nil
}

func start(c conn, cfg Config, reg Registry) (*Session, error) {
	if reg == nil {
		return nil, errors.New("smt: nil registry")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	s := &Session{
		id:   id,
		reg:  reg,
		log:  log.With(zap.String("session", id)),
		conn: c,
		w:    bufio.NewWriter(c),
		tr:   NewTracker(),
	}
	if cfg.TranscriptDir != "" {
		if err := os.MkdirAll(cfg.TranscriptDir, 0o755); err != nil {
			return nil, fmt.Errorf("create transcript dir: %w", err)
		}
		f, err := os.Create(filepath.Join(cfg.TranscriptDir, "session-"+id+".smt2"))
		if err != nil {
			return nil, fmt.Errorf("create transcript: %w", err)
		}
		s.file = f
		s.transcript = bufio.NewWriter(f)
	}

	s.buf.WriteString(cfg.Preamble)
	if s.buf.Len() > 0 && !bytes.HasSuffix(s.buf.Bytes(), []byte("\n")) {
		s.buf.WriteByte('\n')
	}
	s.buf.WriteString("(push)\n")
	s.record(s.buf.Bytes())
	if err := s.send(); err != nil {
		s.closeTranscript()
		return nil, fmt.Errorf("send preamble: %w", err)
	}
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// CheckSat asks whether assertion is satisfiable. When ctx ends before the
// solver answers, the solver is killed and the session becomes broken: its
// late answer could otherwise be taken for the next check's.
func (s *Session) CheckSat(ctx context.Context, assertion term.Node) (Verdict, error) {
	v, _, err := s.check(ctx, assertion, false)
	return v, err
}

// CheckSatModel is CheckSat followed, on sat, by
//
//	(get-value (x0 x1 ...))
//
// for every variable of assertion. The model is nil unless the verdict is
// sat; it is empty without a round trip when assertion has no variables.
func (s *Session) CheckSatModel(ctx context.Context, assertion term.Node) (Verdict, *Model, error) {
	return s.check(ctx, assertion, true)
}

func (s *Session) check(ctx context.Context, assertion term.Node, model bool) (Verdict, *Model, error) {
	if assertion == nil {
		return Unknown, nil, errors.New("smt: nil assertion")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Unknown, nil, ErrClosed
	}
	if s.broken != nil {
		return Unknown, nil, fmt.Errorf("%w: %w", ErrBroken, s.broken)
	}

	s.checks++
	n := s.checks
	started := time.Now()

	// The whole query is built before anything is written, so a failure here
	// leaves the solver's scope stack untouched.
	s.buf.Reset()
	s.buf.WriteString("(pop)\n(push)\n")
	if err := writeQuery(&s.buf, assertion, s.tr, s.reg); err != nil {
		s.stats.Errors++
		return Unknown, nil, err
	}
	s.stats.SerializeTime += time.Since(started)

	s.comment("START CHECK #%d", n)
	s.record(s.buf.Bytes())
	sent := time.Now()
	if err := s.send(); err != nil {
		return Unknown, nil, s.fail(fmt.Errorf("send check #%d: %w", n, err))
	}
	line, err := s.conn.ReadLine(ctx)
	s.stats.SolveTime += time.Since(sent)
	if err != nil {
		if ctx.Err() != nil {
			s.conn.Abort()
		}
		return Unknown, nil, s.fail(fmt.Errorf("read verdict of check #%d: %w", n, err))
	}
	v, err := parseVerdict(line)
	if err != nil {
		return Unknown, nil, s.fail(err)
	}
	s.stats.record(v)
	s.comment("%s", v)

	var m *Model
	if model && v == Sat {
		if m, err = s.getValue(ctx, n); err != nil {
			return Unknown, nil, err
		}
	}
	s.comment("END CHECK #%d", n)

	s.log.Debug("check-sat",
		zap.Int("check", n),
		zap.Int("vars", s.tr.Len()),
		zap.Stringer("verdict", v),
		zap.Bool("model", m != nil),
		zap.Duration("elapsed", time.Since(started)))
	return v, m, nil
}

// getValue asks for the values of the variables the last query declared. A
// failure breaks the session like a failed check does.
func (s *Session) getValue(ctx context.Context, n int) (*Model, error) {
	if s.tr.Len() == 0 {
		return &Model{}, nil
	}
	s.buf.Reset()
	writeGetValue(&s.buf, s.tr)
	s.record(s.buf.Bytes())
	sent := time.Now()
	if err := s.send(); err != nil {
		return nil, s.fail(fmt.Errorf("send get-value of check #%d: %w", n, err))
	}
	text, err := s.readExpr(ctx)
	s.stats.SolveTime += time.Since(sent)
	if err != nil {
		if ctx.Err() != nil {
			s.conn.Abort()
		}
		return nil, s.fail(fmt.Errorf("read model of check #%d: %w", n, err))
	}
	for _, line := range strings.Split(text, "\n") {
		s.comment("%s", line)
	}
	m, err := parseModel(text, s.tr)
	if err != nil {
		return nil, s.fail(err)
	}
	return m, nil
}

// readExpr reads lines until they hold one complete s-expression. The first
// non-blank line must open one.
func (s *Session) readExpr(ctx context.Context) (string, error) {
	var sb strings.Builder
	for {
		line, err := s.conn.ReadLine(ctx)
		if err != nil {
			return "", err
		}
		if sb.Len() == 0 {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if !strings.HasPrefix(strings.TrimSpace(line), "(") {
				return "", &ProtocolError{Line: line}
			}
		} else {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
		if balanced(sb.String()) {
			return sb.String(), nil
		}
	}
}

// Broken returns the failure that made the session unusable, if any.
func (s *Session) Broken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broken
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close ends the solver's input and reaps the process. A check in progress is
// finished first; cancel its context to cut it short.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.conn.Close()
	s.closeTranscript()
	s.log.Info("solver session closed",
		zap.Int("checks", s.stats.Checks),
		zap.Int("errors", s.stats.Errors),
		zap.Duration("solve_time", s.stats.SolveTime),
		zap.Error(err))
	return err
}

func (s *Session) send() error {
	if _, err := s.w.Write(s.buf.Bytes()); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *Session) fail(err error) error {
	s.broken = err
	s.stats.Errors++
	s.log.Error("solver session broken", zap.Error(err))
	return err
}

func (s *Session) record(b []byte) {
	if s.transcript == nil {
		return
	}
	if _, err := s.transcript.Write(b); err != nil {
		s.dropTranscript(err)
		return
	}
	if err := s.transcript.Flush(); err != nil {
		s.dropTranscript(err)
	}
}

func (s *Session) comment(format string, args ...any) {
	if s.transcript == nil {
		return
	}
	s.record([]byte("; " + fmt.Sprintf(format, args...) + "\n"))
}

// dropTranscript stops recording after the first failed write. The checks
// themselves go on.
func (s *Session) dropTranscript(err error) {
	s.log.Warn("transcript disabled", zap.String("path", s.file.Name()), zap.Error(err))
	s.file.Close()
	s.file = nil
	s.transcript = nil
}

func (s *Session) closeTranscript() {
	if s.file == nil {
		return
	}
	if err := s.transcript.Flush(); err != nil {
		s.log.Warn("transcript incomplete", zap.String("path", s.file.Name()), zap.Error(err))
	}
	if err := s.file.Close(); err != nil {
		s.log.Warn("close transcript", zap.String("path", s.file.Name()), zap.Error(err))
	}
	s.file = nil
	s.transcript = nil
}

// writeQuery appends the declarations, the assertion and the check command
// for one query. The tracker is reset first.
func writeQuery(buf *bytes.Buffer, assertion term.Node, tr *Tracker, reg Registry) error {
	tr.Reset()
	Discover(assertion, tr)
	for _, v := range tr.Vars() {
		sort, err := reg.SortOf(v.Tag())
		if err != nil {
			return fmt.Errorf("declare %s: %w", v, err)
		}
		name, _ := tr.Name(v)
		fmt.Fprintf(buf, "(declare-const %s %s)\n", name, sort)
	}
	buf.WriteString("(assert ")
	if err := Render(buf, assertion, tr, reg); err != nil {
		return err
	}
	buf.WriteString(")\n(check-sat)\n")
	return nil
}

// Script returns the commands a session would send for assertion, without the
// scope handling.
func Script(assertion term.Node, reg Registry) (string, error) {
	var buf bytes.Buffer
	if err := writeQuery(&buf, assertion, NewTracker(), reg); err != nil {
		return "", err
	}
	return buf.String(), nil
}
