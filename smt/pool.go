package smt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"slava0135/smtshim/term"
)

// Factory starts one session.
type Factory func() (*Session, error)

// Pool shares a fixed number of sessions between goroutines. A check takes a
// free session, waiting if there is none, and gives it back afterwards. A
// session that broke is closed and replaced by a fresh one when its slot is
// next taken.
type Pool struct {
	factory Factory
	log     *zap.Logger
	size    int
	// slots holds idle sessions; a nil entry is a slot whose session must be
	// started before use.
	slots chan *Session
	// done is closed by Close and wakes every goroutine waiting for a slot.
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	live    map[*Session]struct{}
	retired Stats
	wait    time.Duration
}

// NewPool starts size sessions in parallel. If any of them fails, the others
// are closed and the first error is returned.
func NewPool(ctx context.Context, size int, factory Factory, log *zap.Logger) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}
	if log == nil {
		log = zap.NewNop()
	}
	sessions := make([]*Session, size)
	g, ctx := errgroup.WithContext(ctx)
	for i := range sessions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := factory()
			if err != nil {
				return err
			}
			sessions[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, s := range sessions {
			if s != nil {
				s.Close()
			}
		}
		return nil, err
	}

	p := &Pool{
		factory: factory,
		log:     log,
		size:    size,
		slots:   make(chan *Session, size),
		done:    make(chan struct{}),
		live:    make(map[*Session]struct{}, size),
	}
	for _, s := range sessions {
		p.live[s] = struct{}{}
		p.slots <- s
	}
	log.Info("solver pool started", zap.Int("size", size))
	return p, nil
}

func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) CheckSat(ctx context.Context, assertion term.Node) (Verdict, error) {
	s, err := p.acquire(ctx)
	if err != nil {
		return Unknown, err
	}
	defer p.release(s)
	return s.CheckSat(ctx, assertion)
}

func (p *Pool) CheckSatModel(ctx context.Context, assertion term.Node) (Verdict, *Model, error) {
	s, err := p.acquire(ctx)
	if err != nil {
		return Unknown, nil, err
	}
	defer p.release(s)
	return s.CheckSatModel(ctx, assertion)
}

func (p *Pool) acquire(ctx context.Context) (*Session, error) {
	if p.isClosed() {
		return nil, ErrClosed
	}
	started := time.Now()
	var s *Session
	select {
	case s = <-p.slots:
	case <-p.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	p.mu.Lock()
	p.wait += time.Since(started)
	closed := p.closed
	p.mu.Unlock()
	if closed {
		p.slots <- s
		return nil, ErrClosed
	}
	if s != nil {
		return s, nil
	}

	s, err := p.factory()
	if err != nil {
		p.slots <- nil
		return nil, fmt.Errorf("restart solver session: %w", err)
	}
	p.mu.Lock()
	p.live[s] = struct{}{}
	p.mu.Unlock()
	p.log.Info("solver session replaced", zap.String("session", s.ID()))
	return s, nil
}

func (p *Pool) release(s *Session) {
	if s.Broken() != nil {
		p.retire(s)
		p.slots <- nil
		return
	}
	p.slots <- s
}

func (p *Pool) retire(s *Session) error {
	err := s.Close()
	st := s.Stats()
	p.mu.Lock()
	delete(p.live, s)
	p.retired = p.retired.Add(st)
	p.mu.Unlock()
	return err
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Stats sums the counters of every session the pool has run. It waits for
// checks in progress.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	total := p.retired
	total.WaitTime += p.wait
	live := make([]*Session, 0, len(p.live))
	for s := range p.live {
		live = append(live, s)
	}
	p.mu.Unlock()
	for _, s := range live {
		total = total.Add(s.Stats())
	}
	return total
}

// Close waits for every session to come back and closes them all. Goroutines
// still waiting for a session get ErrClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	var errs []error
	for i := 0; i < p.size; i++ {
		if s := <-p.slots; s != nil {
			if err := p.retire(s); err != nil {
				errs = append(errs, err)
			}
		}
	}
	p.log.Info("solver pool closed")
	return errors.Join(errs...)
}
