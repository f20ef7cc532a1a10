package player

import (
	"context"
	"io"
	"strings"
	"testing"

	nchess "github.com/corentings/chess/v2"

	"chessalive/internal/game"
)

func scriptedInput(lines ...string) InputFunc {
	i := 0
	return func(string) (string, error) {
		if i >= len(lines) {
			return "", io.EOF
		}
		line := lines[i]
		i++
		return line, nil
	}
}

func TestHumanRepromptsUntilLegal(t *testing.T) {
	var printed []string
	h := NewHuman(nchess.White, "Alice", scriptedInput("Ke5", "", "moves", "e4"),
		func(s string) { printed = append(printed, s) })

	mv, err := h.GetMove(context.Background(), game.NewGame())
	if err != nil {
		t.Fatalf("get move: %v", err)
	}
	if mv == nil || mv.S2() != nchess.E4 {
		t.Fatalf("expected e4, got %v", mv)
	}

	var sawInvalid, sawMoves bool
	for _, s := range printed {
		if strings.Contains(s, "Invalid move: Ke5") {
			sawInvalid = true
		}
		if strings.Contains(s, "Legal moves (20)") {
			sawMoves = true
		}
	}
	if !sawInvalid || !sawMoves {
		t.Fatalf("output missing feedback: %q", printed)
	}
}

func TestHumanResigns(t *testing.T) {
	for _, cmd := range []string{"resign", "quit", "exit"} {
		h := NewHuman(nchess.Black, "", scriptedInput(cmd), nil)
		mv, err := h.GetMove(context.Background(), game.NewGame())
		if err != nil || mv != nil {
			t.Fatalf("%s should yield nil move, nil error; got %v, %v", cmd, mv, err)
		}
	}
}

func TestHumanEOFQuits(t *testing.T) {
	h := NewHuman(nchess.White, "", scriptedInput(), nil)
	mv, err := h.GetMove(context.Background(), game.NewGame())
	if err != nil || mv != nil {
		t.Fatalf("EOF should quit cleanly; got %v, %v", mv, err)
	}
}

func TestHumanUCIInput(t *testing.T) {
	h := NewHuman(nchess.White, "", scriptedInput("g1f3"), nil)
	mv, err := h.GetMove(context.Background(), game.NewGame())
	if err != nil {
		t.Fatalf("get move: %v", err)
	}
	if mv == nil || mv.S1() != nchess.G1 || mv.S2() != nchess.F3 {
		t.Fatalf("uci input not accepted: %v", mv)
	}
}
