package player

import (
	"context"
	"fmt"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"chessalive/internal/engine"
	"chessalive/internal/game"
	"chessalive/internal/obslog"
)

// Computer plays moves from a Stockfish subprocess at a difficulty preset.
// The process spawns lazily on the first move; if it dies mid-game the
// player resigns instead of respawning.
type Computer struct {
	color  nchess.Color
	name   string
	engine *engine.Engine
	preset engine.DifficultyPreset
}

func NewComputer(color nchess.Color, name, binaryPath string, preset engine.DifficultyPreset) *Computer {
	if name == "" {
		name = fmt.Sprintf("Stockfish %s (%s)", preset.Name, colorName(color))
	}
	return &Computer{
		color:  color,
		name:   name,
		engine: engine.NewForPreset(binaryPath, preset),
		preset: preset,
	}
}

func (c *Computer) Color() nchess.Color { return c.color }
func (c *Computer) Name() string        { return c.name }
func (c *Computer) Type() Type          { return TypeComputer }

// Engine exposes the underlying engine, used for seeding in tests.
func (c *Computer) Engine() *engine.Engine { return c.engine }

func (c *Computer) GetMove(ctx context.Context, g *game.Game) (*nchess.Move, error) {
	cand, err := c.engine.PickMove(ctx, g.FEN(), nil, c.preset)
	if err != nil {
		obslog.L().Warn("computer player lost its engine, resigning",
			zap.String("player", c.name), zap.Error(err))
		return nil, nil
	}
	mv, err := nchess.UCINotation{}.Decode(g.Position(), cand.Move)
	if err != nil {
		obslog.L().Warn("engine produced undecodable move, resigning",
			zap.String("player", c.name), zap.String("move", cand.Move), zap.Error(err))
		return nil, nil
	}
	return mv, nil
}

func (c *Computer) GameStart(ctx context.Context, _ *game.Game) {
	if err := c.engine.NewGame(ctx); err != nil {
		obslog.L().Warn("engine not ready at game start",
			zap.String("player", c.name), zap.Error(err))
	}
}

func (c *Computer) GameEnd(context.Context, *game.Game) {}

func (c *Computer) Close() error { return c.engine.Close() }
