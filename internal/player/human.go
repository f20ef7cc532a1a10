package player

import (
	"context"
	"fmt"
	"io"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"chessalive/internal/game"
)

// InputFunc reads one line of user input shown against prompt.
type InputFunc func(prompt string) (string, error)

// Human reads moves from injected input and reprompts on illegal input.
type Human struct {
	color  nchess.Color
	name   string
	input  InputFunc
	output func(string)
}

func NewHuman(color nchess.Color, name string, input InputFunc, output func(string)) *Human {
	if name == "" {
		name = "Human"
	}
	if output == nil {
		output = func(string) {}
	}
	return &Human{color: color, name: name, input: input, output: output}
}

func (h *Human) Color() nchess.Color { return h.color }
func (h *Human) Name() string        { return h.name }
func (h *Human) Type() Type          { return TypeHuman }

func (h *Human) GetMove(ctx context.Context, g *game.Game) (*nchess.Move, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, err := h.input(fmt.Sprintf("%s's move: ", h.name))
		if err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read move: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "quit", "exit", "resign":
			return nil, nil
		case "help":
			h.showHelp()
			continue
		case "moves":
			h.showLegalMoves(g)
			continue
		case "board":
			h.output(g.BoardText())
			continue
		}

		if mv := parseLegalMove(g, line); mv != nil {
			return mv, nil
		}
		h.output(fmt.Sprintf("Invalid move: %s. Type 'moves' to see legal moves.", line))
	}
}

func (h *Human) showHelp() {
	h.output(strings.Join([]string{
		"Commands:",
		"  <move>  - Make a move (e.g., 'e4', 'Nf3', 'e2e4', 'O-O')",
		"  moves   - Show all legal moves",
		"  board   - Redraw the board",
		"  resign  - Resign the game",
		"  quit    - Quit the game",
	}, "\n"))
}

func (h *Human) showLegalMoves(g *game.Game) {
	moves := g.LegalMovesSAN()
	h.output(fmt.Sprintf("Legal moves (%d): %s", len(moves), strings.Join(moves, ", ")))
}

func (h *Human) GameStart(context.Context, *game.Game) {}
func (h *Human) GameEnd(context.Context, *game.Game)   {}
func (h *Human) Close() error                          { return nil }
