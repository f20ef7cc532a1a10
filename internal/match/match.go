package match

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"chessalive/internal/commentary"
	"chessalive/internal/config"
	"chessalive/internal/engine"
	"chessalive/internal/game"
	"chessalive/internal/llm"
	"chessalive/internal/msgcat"
	"chessalive/internal/obslog"
	"chessalive/internal/player"
	"chessalive/internal/teaching"
)

// State tracks a match through its lifecycle.
type State string

const (
	StateWaiting  State = "waiting"
	StatePlaying  State = "playing"
	StateFinished State = "finished"
)

var ErrNotSetUp = errors.New("match not set up")

// Event is one entry in the match log: game_start, move, commentary, advice
// and game_end, each with a unique id and timestamp.
type Event struct {
	ID        string
	Type      string
	Data      map[string]any
	Timestamp time.Time
}

// Config selects the mode and overrides its defaults.
type Config struct {
	Mode             Mode
	WhiteName        string
	BlackName        string
	EnableCommentary bool
	Frequency        commentary.Frequency // empty = mode default
	EnginePreset     string               // empty = mode default
	LLMStyleWhite    string               // empty = mode default
	LLMStyleBlack    string               // empty = mode default
	MaxMoves         int                  // half-moves; 0 = app default
}

// Match orchestrates one complete game between two players.
type Match struct {
	cfg Config
	app config.AppConfig

	game        *game.Game
	white       player.Player
	black       player.Player
	commentator *commentary.Engine
	advisor     *teaching.Advisor

	state    State
	stopped  atomic.Bool
	maxMoves int

	eventMu sync.Mutex
	events  []Event
	sink    func(Event)

	closeOnce sync.Once
}

func New(cfg Config, app config.AppConfig, sink func(Event)) *Match {
	return &Match{
		cfg:   cfg,
		app:   app,
		game:  game.NewGame(),
		state: StateWaiting,
		sink:  sink,
	}
}

// Setup builds both players and the commentary/teaching stack from the mode
// table. Human players read through input and write through output.
func (m *Match) Setup(input player.InputFunc, output func(string)) error {
	defaults := m.cfg.Mode.Defaults()
	if defaults.White == "" {
		return fmt.Errorf("unknown game mode: %s", m.cfg.Mode)
	}

	client := llm.NewClient(m.app.LLM)

	frequency := m.cfg.Frequency
	if frequency == "" {
		frequency = defaults.CommentaryFrequency
	}
	if m.cfg.EnableCommentary {
		catalog, err := msgcat.New("")
		if err != nil {
			return fmt.Errorf("load message catalog: %w", err)
		}
		m.commentator = commentary.NewEngine(client, catalog, frequency)
	}

	if m.cfg.Mode == Teaching {
		m.advisor = teaching.NewAdvisor(client, m.app.Engine)
	}

	var err error
	if m.white, err = m.buildPlayer(defaults.White, nchess.White, m.cfg.WhiteName, defaults, client, input, output); err != nil {
		return err
	}
	if m.black, err = m.buildPlayer(defaults.Black, nchess.Black, m.cfg.BlackName, defaults, client, input, output); err != nil {
		m.white.Close()
		return err
	}

	m.maxMoves = m.cfg.MaxMoves
	if m.maxMoves <= 0 {
		m.maxMoves = m.app.MaxMoves
	}
	if m.maxMoves <= 0 {
		m.maxMoves = defaults.MaxMoves
	}
	return nil
}

func (m *Match) buildPlayer(kind player.Type, color nchess.Color, name string, defaults ModeDefaults, client *llm.Client, input player.InputFunc, output func(string)) (player.Player, error) {
	switch kind {
	case player.TypeHuman:
		if input == nil {
			return nil, fmt.Errorf("mode %s needs human input", m.cfg.Mode)
		}
		return player.NewHuman(color, name, input, output), nil
	case player.TypeComputer:
		presetName := m.cfg.EnginePreset
		if presetName == "" {
			presetName = defaults.EnginePreset
		}
		if presetName == "" {
			presetName = m.app.DefaultPreset
		}
		preset, err := engine.GetPreset(presetName)
		if err != nil {
			return nil, err
		}
		path := engine.LocateStockfish(m.app.Engine.Path)
		if path == "" {
			return nil, fmt.Errorf("stockfish not found; install it or set STOCKFISH_PATH")
		}
		return player.NewComputer(color, name, path, preset), nil
	case player.TypeLLM:
		style := m.cfg.LLMStyleWhite
		defaultStyle := defaults.LLMStyleWhite
		if color == nchess.Black {
			style = m.cfg.LLMStyleBlack
			defaultStyle = defaults.LLMStyleBlack
		}
		if style == "" {
			style = defaultStyle
		}
		return player.NewLLMPlayer(color, name, client, style), nil
	default:
		return nil, fmt.Errorf("unknown player type: %s", kind)
	}
}

func (m *Match) emit(eventType string, data map[string]any) {
	ev := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}
	m.eventMu.Lock()
	m.events = append(m.events, ev)
	sink := m.sink
	m.eventMu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

func (m *Match) currentPlayer() player.Player {
	if m.game.Turn() == nchess.White {
		return m.white
	}
	return m.black
}

// PlayMove runs one half-move: teaching advice for humans, the player's move,
// the move event and commentary. A nil record with nil error means the player
// resigned or the match was stopped.
func (m *Match) PlayMove(ctx context.Context) (*game.MoveRecord, error) {
	if m.white == nil || m.black == nil {
		return nil, ErrNotSetUp
	}
	if m.game.IsOver() || m.stopped.Load() {
		return nil, nil
	}

	current := m.currentPlayer()

	if m.advisor != nil && current.Type() == player.TypeHuman {
		m.emitAdvice(ctx)
	}

	mv, err := current.GetMove(ctx, m.game)
	if err != nil {
		return nil, fmt.Errorf("get move from %s: %w", current.Name(), err)
	}
	if mv == nil {
		m.game.Resign(current.Color())
		m.emit("resignation", map[string]any{"player": current.Name()})
		return nil, nil
	}

	rec, err := m.game.MakeMove(mv)
	if err != nil {
		return nil, fmt.Errorf("apply move from %s: %w", current.Name(), err)
	}

	data := map[string]any{
		"move":         rec.SAN,
		"piece":        rec.Piece.DisplayName(),
		"is_check":     rec.IsCheck,
		"is_checkmate": rec.IsCheckmate,
	}
	if rec.Captured != nil {
		data["captured"] = rec.Captured.DisplayName()
	}
	if opening := m.game.OpeningName(); opening != "" {
		data["opening"] = opening
	}
	m.emit("move", data)

	if m.commentator != nil {
		for _, c := range m.commentator.GenerateMoveCommentary(ctx, m.game, rec, true) {
			if c.Kind == "move" {
				rec.Commentary = c.Text
			}
			m.emit("commentary", map[string]any{
				"piece": c.Piece.DisplayName(),
				"text":  c.Text,
				"type":  c.Kind,
			})
		}
	}
	return rec, nil
}

func (m *Match) emitAdvice(ctx context.Context) {
	advice, err := m.advisor.Analyze(ctx, m.game)
	if err != nil {
		obslog.L().Warn("teaching advice unavailable", zap.Error(err))
		return
	}
	candidates := make([]map[string]any, 0, len(advice.Candidates))
	for _, c := range advice.Candidates {
		candidates = append(candidates, map[string]any{
			"san":         c.SAN,
			"evaluation":  c.Evaluation,
			"explanation": c.Explanation,
			"response":    c.LikelyResponse,
			"follow_up":   c.FollowUpPlan,
		})
	}
	m.emit("advice", map[string]any{
		"assessment": advice.PositionAssessment,
		"candidates": candidates,
	})
}

// Run plays the match to completion and returns the outcome. A game stopped
// by the half-move cap counts as a draw.
func (m *Match) Run(ctx context.Context) (nchess.Outcome, error) {
	if m.white == nil || m.black == nil {
		return nchess.NoOutcome, ErrNotSetUp
	}

	m.state = StatePlaying
	m.white.GameStart(ctx, m.game)
	m.black.GameStart(ctx, m.game)
	m.emit("game_start", map[string]any{
		"mode":  string(m.cfg.Mode),
		"white": m.white.Name(),
		"black": m.black.Name(),
	})

	if m.commentator != nil {
		for _, c := range m.commentator.GenerateGameStart(ctx, m.game) {
			m.emit("commentary", map[string]any{
				"piece": c.Piece.DisplayName(),
				"text":  c.Text,
				"type":  c.Kind,
			})
		}
	}

	moveCount := 0
	reason := ""
	for !m.stopped.Load() && !m.game.IsOver() {
		if err := ctx.Err(); err != nil {
			m.finish(ctx, moveCount, "canceled")
			return m.game.Outcome(), err
		}
		if moveCount >= m.maxMoves {
			reason = "move_cap"
			break
		}
		rec, err := m.PlayMove(ctx)
		if err != nil {
			m.finish(ctx, moveCount, "error")
			return m.game.Outcome(), err
		}
		if rec == nil {
			break
		}
		moveCount++
	}

	outcome := m.finish(ctx, moveCount, reason)
	return outcome, nil
}

func (m *Match) finish(ctx context.Context, moveCount int, reason string) nchess.Outcome {
	m.state = StateFinished

	outcome := m.game.Outcome()
	if reason == "move_cap" && outcome == nchess.NoOutcome {
		outcome = nchess.Draw
	}

	data := map[string]any{
		"result": resultString(outcome),
		"moves":  moveCount,
		"pgn":    m.game.PGN(),
	}
	if reason != "" {
		data["reason"] = reason
	}
	m.emit("game_end", data)

	if m.commentator != nil {
		for _, c := range m.commentator.GenerateGameEnd(ctx, m.game) {
			m.emit("commentary", map[string]any{
				"piece": c.Piece.DisplayName(),
				"text":  c.Text,
				"type":  c.Kind,
			})
		}
	}

	m.white.GameEnd(ctx, m.game)
	m.black.GameEnd(ctx, m.game)
	m.Close()
	return outcome
}

// Stop requests the loop to end after the move in flight.
func (m *Match) Stop() { m.stopped.Store(true) }

// Close tears down players and the advisor exactly once.
func (m *Match) Close() {
	m.closeOnce.Do(func() {
		if m.white != nil {
			if err := m.white.Close(); err != nil {
				obslog.L().Warn("close white player", zap.Error(err))
			}
		}
		if m.black != nil {
			if err := m.black.Close(); err != nil {
				obslog.L().Warn("close black player", zap.Error(err))
			}
		}
		if m.advisor != nil {
			if err := m.advisor.Close(); err != nil {
				obslog.L().Warn("close teaching advisor", zap.Error(err))
			}
		}
	})
}

func (m *Match) Game() *game.Game { return m.game }
func (m *Match) State() State     { return m.state }

// Events returns a snapshot of the match log.
func (m *Match) Events() []Event {
	m.eventMu.Lock()
	defer m.eventMu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func resultString(o nchess.Outcome) string {
	switch o {
	case nchess.WhiteWon:
		return "1-0"
	case nchess.BlackWon:
		return "0-1"
	case nchess.Draw:
		return "1/2-1/2"
	default:
		return "*"
	}
}
