package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
)

// Pool keeps a small set of identically-configured sessions available for
// bursts of independent evaluations, such as a post-game walkthrough. Match
// play never pools; each player owns its single session.
type Pool struct {
	binaryPath string
	opt        Options
	capacity   int

	mu     sync.Mutex
	total  int
	closed bool
	idle   chan *Session
}

var ErrPoolClosed = errors.New("session pool closed")

func NewPool(binaryPath string, opt Options, capacity int) (*Pool, error) {
	if binaryPath == "" {
		return nil, fmt.Errorf("binary path required")
	}
	if _, err := os.Stat(binaryPath); err != nil {
		return nil, fmt.Errorf("stockfish binary check: %w", err)
	}
	if err := validateOptions(opt); err != nil {
		return nil, err
	}
	if capacity <= 0 {
		capacity = 2
	}
	return &Pool{
		binaryPath: binaryPath,
		opt:        opt,
		capacity:   capacity,
		idle:       make(chan *Session, capacity),
	}, nil
}

// Acquire returns a ready session, spawning one while under capacity and
// otherwise waiting for a release.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	for {
		select {
		case session := <-p.idle:
			if session == nil {
				continue
			}
			if err := session.EnsureReady(ctx); err != nil {
				p.retire(session)
				continue
			}
			return session, nil
		default:
		}

		session, err := p.spawn(ctx)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, errPoolAtCapacity) {
			return nil, err
		}

		select {
		case session := <-p.idle:
			if session == nil {
				continue
			}
			if err := session.EnsureReady(ctx); err != nil {
				p.retire(session)
				continue
			}
			return session, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release hands a session back; a session that errored is closed instead of
// reused.
func (p *Pool) Release(session *Session, err error) {
	if session == nil {
		return
	}
	if err != nil {
		p.retire(session)
		return
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		p.retire(session)
		return
	}
	select {
	case p.idle <- session:
	default:
		p.retire(session)
	}
}

func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for {
		select {
		case session := <-p.idle:
			if session == nil {
				continue
			}
			if err := session.Close(); err != nil {
				errs = append(errs, err)
			}
			p.decrement()
		default:
			return errors.Join(errs...)
		}
	}
}

var errPoolAtCapacity = errors.New("session pool at capacity")

func (p *Pool) spawn(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.total >= p.capacity {
		p.mu.Unlock()
		return nil, errPoolAtCapacity
	}
	p.total++
	p.mu.Unlock()

	session, err := NewSession(ctx, p.binaryPath, p.opt)
	if err != nil {
		p.decrement()
		return nil, err
	}
	return session, nil
}

func (p *Pool) retire(session *Session) {
	_ = session.Close()
	p.decrement()
}

func (p *Pool) decrement() {
	p.mu.Lock()
	if p.total > 0 {
		p.total--
	}
	p.mu.Unlock()
}
