package player

import (
	"context"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"chessalive/internal/game"
)

// Type identifies the kind of player behind the interface.
type Type string

const (
	TypeHuman    Type = "human"
	TypeComputer Type = "computer"
	TypeLLM      Type = "llm"
)

// Player is one side of a match. GetMove returns the chosen move; a nil move
// with a nil error means the player resigns or quits.
type Player interface {
	Color() nchess.Color
	Name() string
	Type() Type
	GetMove(ctx context.Context, g *game.Game) (*nchess.Move, error)
	GameStart(ctx context.Context, g *game.Game)
	GameEnd(ctx context.Context, g *game.Game)
	Close() error
}

// parseLegalMove resolves SAN or UCI input to one of the position's legal
// moves. Unparseable or illegal input yields nil.
func parseLegalMove(g *game.Game, input string) *nchess.Move {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil
	}
	switch strings.ToUpper(s) {
	case "0-0":
		s = "O-O"
	case "0-0-0":
		s = "O-O-O"
	}

	pos := g.Position()
	moves := g.LegalMoves()

	alg := nchess.AlgebraicNotation{}
	for _, mv := range moves {
		if alg.Encode(pos, mv) == s {
			return mv
		}
	}

	lower := strings.ToLower(s)
	uci := nchess.UCINotation{}
	for _, mv := range moves {
		if uci.Encode(pos, mv) == lower {
			return mv
		}
	}
	return nil
}

func colorName(c nchess.Color) string {
	if c == nchess.White {
		return "White"
	}
	return "Black"
}
