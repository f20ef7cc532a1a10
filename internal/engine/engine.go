package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"chessalive/internal/engine/uci"
	"chessalive/internal/obslog"
)

var ErrEngineUnavailable = errors.New("engine unavailable")

// Engine owns at most one Stockfish subprocess, spawned lazily on first use.
// A session that dies stays dead: callers get ErrEngineUnavailable and are
// expected to degrade instead of respawning mid-game.
type Engine struct {
	binaryPath string
	opt        uci.Options

	mu      sync.Mutex
	session *uci.Session
	dead    bool

	randMu sync.Mutex
	rand   *rand.Rand
}

func New(binaryPath string, opt uci.Options) *Engine {
	return &Engine{
		binaryPath: binaryPath,
		opt:        opt,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewForPreset builds an engine configured with a difficulty preset's options.
func NewForPreset(binaryPath string, p DifficultyPreset) *Engine {
	return New(binaryPath, OptionsFromPreset(p))
}

func (e *Engine) ensureSession(ctx context.Context) (*uci.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		return nil, ErrEngineUnavailable
	}
	if e.session != nil {
		return e.session, nil
	}
	if e.binaryPath == "" {
		e.dead = true
		return nil, fmt.Errorf("%w: no stockfish binary configured", ErrEngineUnavailable)
	}
	session, err := uci.NewSession(ctx, e.binaryPath, e.opt)
	if err != nil {
		e.dead = true
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	e.session = session
	return session, nil
}

func (e *Engine) markDead() {
	e.mu.Lock()
	if e.session != nil {
		_ = e.session.Close()
		e.session = nil
	}
	e.dead = true
	e.mu.Unlock()
}

// Search runs one query on the session, tearing it down on failure.
func (e *Engine) Search(ctx context.Context, fen string, moves []string, limits uci.Limits) (uci.SearchResponse, error) {
	session, err := e.ensureSession(ctx)
	if err != nil {
		return uci.SearchResponse{}, err
	}
	resp, err := session.Search(ctx, uci.SearchRequest{FEN: fen, Moves: moves, Limits: limits})
	if err != nil {
		obslog.L().Warn("engine search failed, retiring session", zap.Error(err))
		e.markDead()
		return uci.SearchResponse{}, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return resp, nil
}

// BestMove returns the engine's preferred move in UCI notation.
func (e *Engine) BestMove(ctx context.Context, fen string, moves []string, limits uci.Limits) (string, error) {
	resp, err := e.Search(ctx, fen, moves, limits)
	if err != nil {
		return "", err
	}
	if resp.BestMove == "" || resp.BestMove == "(none)" {
		return "", fmt.Errorf("engine returned no best move")
	}
	return resp.BestMove, nil
}

// Analyze returns the multipv candidates for a position, best line first.
func (e *Engine) Analyze(ctx context.Context, fen string, moves []string, limits uci.Limits) ([]uci.Candidate, error) {
	resp, err := e.Search(ctx, fen, moves, limits)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("engine returned no candidates")
	}
	return resp.Candidates, nil
}

// PickMove searches and then applies the preset's weighted candidate
// selection, so weaker presets sometimes play the second or third line.
func (e *Engine) PickMove(ctx context.Context, fen string, moves []string, p DifficultyPreset) (uci.Candidate, error) {
	resp, err := e.Search(ctx, fen, moves, LimitsFromPreset(p))
	if err != nil {
		return uci.Candidate{}, err
	}
	candidates := resp.Candidates
	if len(candidates) == 0 {
		if resp.BestMove == "" {
			return uci.Candidate{}, fmt.Errorf("engine returned no candidates")
		}
		candidates = []uci.Candidate{{Move: resp.BestMove, Principal: []string{resp.BestMove}}}
	}
	return SelectCandidate(p, candidates, e.random())
}

// NewGame signals a fresh game to the engine if a session is live.
func (e *Engine) NewGame(ctx context.Context) error {
	session, err := e.ensureSession(ctx)
	if err != nil {
		return err
	}
	if err := session.NewGame(ctx); err != nil {
		e.markDead()
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return nil
}

// Alive reports whether the engine can still serve queries.
func (e *Engine) Alive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.dead
}

func (e *Engine) random() *rand.Rand {
	e.randMu.Lock()
	seed := e.rand.Int63()
	e.randMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

func (e *Engine) SetRandomSeed(seed int64) {
	e.randMu.Lock()
	e.rand = rand.New(rand.NewSource(seed))
	e.randMu.Unlock()
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Close()
	e.session = nil
	e.dead = true
	return err
}
