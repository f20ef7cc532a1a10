package commentary

import (
	"context"
	"strings"
	"testing"

	"chessalive/internal/config"
	"chessalive/internal/game"
	"chessalive/internal/llm"
	"chessalive/internal/msgcat"
)

func newTestEngine(t *testing.T, freq Frequency) *Engine {
	t.Helper()
	catalog, err := msgcat.New("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	// Unconfigured client forces the canned fallback path.
	client := llm.NewClient(config.LLMConfig{Provider: config.ProviderOpenRouter})
	return NewEngine(client, catalog, freq)
}

func TestParseFrequency(t *testing.T) {
	for _, s := range []string{"every_move", "captures_only", "key_moments"} {
		if _, err := ParseFrequency(s); err != nil {
			t.Fatalf("ParseFrequency(%s): %v", s, err)
		}
	}
	if _, err := ParseFrequency("sometimes"); err == nil {
		t.Fatalf("bad frequency accepted")
	}
}

func TestShouldGenerate(t *testing.T) {
	quiet := &game.MoveRecord{}
	capture := &game.MoveRecord{Captured: &game.Piece{}}
	check := &game.MoveRecord{IsCheck: true}
	castle := &game.MoveRecord{IsCastling: true}
	promo := &game.MoveRecord{IsPromotion: true}

	cases := []struct {
		freq Frequency
		rec  *game.MoveRecord
		want bool
	}{
		{EveryMove, quiet, true},
		{EveryMove, capture, true},
		{CapturesOnly, quiet, false},
		{CapturesOnly, capture, true},
		{CapturesOnly, check, false},
		{KeyMoments, quiet, false},
		{KeyMoments, capture, true},
		{KeyMoments, check, true},
		{KeyMoments, castle, true},
		{KeyMoments, promo, true},
	}
	for _, tc := range cases {
		e := newTestEngine(t, tc.freq)
		if got := e.ShouldGenerate(tc.rec); got != tc.want {
			t.Fatalf("ShouldGenerate(%s, %+v) = %v, want %v", tc.freq, tc.rec, got, tc.want)
		}
		// The predicate must not mutate anything: same answer twice.
		if got := e.ShouldGenerate(tc.rec); got != tc.want {
			t.Fatalf("ShouldGenerate(%s) changed answer on repeat", tc.freq)
		}
	}

	if newTestEngine(t, EveryMove).ShouldGenerate(nil) {
		t.Fatalf("nil record should not trigger commentary")
	}
}

func TestFallbackCommentaryWithoutLLM(t *testing.T) {
	e := newTestEngine(t, EveryMove)
	g := game.NewGame()
	rec, err := g.ApplySAN("e4")
	if err != nil {
		t.Fatalf("apply e4: %v", err)
	}

	out := e.GenerateMoveCommentary(context.Background(), g, rec, true)
	if len(out) != 1 {
		t.Fatalf("expected 1 commentary for quiet move, got %d", len(out))
	}
	if strings.TrimSpace(out[0].Text) == "" {
		t.Fatalf("fallback commentary empty")
	}
	if out[0].Kind != "move" || out[0].Piece != rec.Piece {
		t.Fatalf("unexpected commentary: %+v", out[0])
	}
}

func TestCaptureProducesVictimReaction(t *testing.T) {
	e := newTestEngine(t, CapturesOnly)
	g := game.NewGame()
	for _, san := range []string{"e4", "d5"} {
		if _, err := g.ApplySAN(san); err != nil {
			t.Fatalf("apply %s: %v", san, err)
		}
	}
	rec, err := g.ApplySAN("exd5")
	if err != nil {
		t.Fatalf("apply exd5: %v", err)
	}

	out := e.GenerateMoveCommentary(context.Background(), g, rec, true)
	if len(out) != 2 {
		t.Fatalf("expected mover + victim commentary, got %d", len(out))
	}
	if out[1].Kind != "capture" || out[1].Piece != rec.Captured {
		t.Fatalf("victim commentary wrong: %+v", out[1])
	}
}

func TestGameEndCommentary(t *testing.T) {
	e := newTestEngine(t, EveryMove)
	g := game.NewGame()
	if got := e.GenerateGameEnd(context.Background(), g); got != nil {
		t.Fatalf("in-progress game produced end commentary")
	}
	for _, san := range []string{"e4", "e5", "Bc4", "Nc6", "Qh5", "Nf6", "Qxf7#"} {
		if _, err := g.ApplySAN(san); err != nil {
			t.Fatalf("apply %s: %v", san, err)
		}
	}
	out := e.GenerateGameEnd(context.Background(), g)
	if len(out) != 2 {
		t.Fatalf("expected both kings to react, got %d", len(out))
	}
	for _, c := range out {
		if c.Kind != "game_end" || strings.TrimSpace(c.Text) == "" {
			t.Fatalf("bad end commentary: %+v", c)
		}
	}
}
