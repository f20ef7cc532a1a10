package match

import (
	"context"
	"io"
	"strings"
	"testing"

	nchess "github.com/corentings/chess/v2"

	"chessalive/internal/commentary"
	"chessalive/internal/config"
	"chessalive/internal/player"
)

func TestParseModeAliases(t *testing.T) {
	cases := map[string]Mode{
		"pvp":              PlayerVsPlayer,
		"player-vs-player": PlayerVsPlayer,
		"PVC":              PlayerVsComputer,
		"cvc":              ComputerVsComputer,
		"llm vs llm":       LLMVsLLM,
		"teach":            Teaching,
	}
	for input, want := range cases {
		got, err := ParseMode(input)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseMode(%q) = %s, want %s", input, got, want)
		}
	}
	if _, err := ParseMode("chess960"); err == nil {
		t.Fatalf("unknown mode accepted")
	}
}

func TestModeDefaultsTable(t *testing.T) {
	for _, mode := range AllModes() {
		d := mode.Defaults()
		if d.White == "" || d.Black == "" {
			t.Fatalf("mode %s has no player types", mode)
		}
		if d.CommentaryFrequency == "" {
			t.Fatalf("mode %s has no commentary frequency", mode)
		}
		if d.MaxMoves <= 0 {
			t.Fatalf("mode %s has no move cap", mode)
		}
	}

	d := LLMVsLLM.Defaults()
	if d.LLMStyleWhite != "aggressive" || d.LLMStyleBlack != "defensive" {
		t.Fatalf("llm_vs_llm styles wrong: %+v", d)
	}
	if d.MaxMoves != 200 {
		t.Fatalf("llm_vs_llm move cap wrong: %d", d.MaxMoves)
	}
	if ComputerVsComputer.Defaults().CommentaryFrequency != commentary.CapturesOnly {
		t.Fatalf("cvc should default to captures_only")
	}
	if !Teaching.RequiresEngine() || !Teaching.RequiresLLM() {
		t.Fatalf("teaching mode requirements wrong")
	}
	if PlayerVsPlayer.RequiresEngine() || PlayerVsPlayer.RequiresLLM() {
		t.Fatalf("pvp should not require engine or llm")
	}
	if !PlayerVsLLM.HasHuman() || ComputerVsComputer.HasHuman() {
		t.Fatalf("human detection wrong")
	}
}

func scriptedInput(lines ...string) player.InputFunc {
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

func testAppConfig() config.AppConfig {
	return config.AppConfig{
		LLM:      config.LLMConfig{Provider: config.ProviderOpenRouter},
		MaxMoves: 300,
	}
}

func TestScholarsMateMatch(t *testing.T) {
	m := New(Config{
		Mode:             PlayerVsPlayer,
		WhiteName:        "Anna",
		BlackName:        "Ben",
		EnableCommentary: true,
	}, testAppConfig(), nil)

	input := scriptedInput("e4", "e5", "Bc4", "Nc6", "Qh5", "Nf6", "Qxf7#")
	if err := m.Setup(input, nil); err != nil {
		t.Fatalf("setup: %v", err)
	}

	outcome, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome != nchess.WhiteWon {
		t.Fatalf("outcome = %v, want white win", outcome)
	}
	if m.State() != StateFinished {
		t.Fatalf("state = %s, want finished", m.State())
	}
	if len(m.Game().History()) != 7 {
		t.Fatalf("history length = %d, want 7", len(m.Game().History()))
	}

	events := m.Events()
	counts := map[string]int{}
	for _, ev := range events {
		counts[ev.Type]++
		if ev.ID == "" || ev.Timestamp.IsZero() {
			t.Fatalf("event missing id or timestamp: %+v", ev)
		}
	}
	if counts["game_start"] != 1 || counts["game_end"] != 1 {
		t.Fatalf("lifecycle events wrong: %+v", counts)
	}
	if counts["move"] != 7 {
		t.Fatalf("move events = %d, want 7", counts["move"])
	}
	if counts["commentary"] == 0 {
		t.Fatalf("commentary never emitted despite fallback catalog")
	}

	var end Event
	for _, ev := range events {
		if ev.Type == "game_end" {
			end = ev
		}
	}
	if end.Data["result"] != "1-0" {
		t.Fatalf("game_end result = %v", end.Data["result"])
	}
	pgn, _ := end.Data["pgn"].(string)
	if !strings.Contains(pgn, "Qxf7#") {
		t.Fatalf("pgn missing mating move: %s", pgn)
	}
}

func TestResignationEndsMatch(t *testing.T) {
	m := New(Config{Mode: PlayerVsPlayer}, testAppConfig(), nil)
	if err := m.Setup(scriptedInput("e4", "resign"), nil); err != nil {
		t.Fatalf("setup: %v", err)
	}
	outcome, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome != nchess.WhiteWon {
		t.Fatalf("black resignation should score 1-0, got %v", outcome)
	}
	var sawResignation bool
	for _, ev := range m.Events() {
		if ev.Type == "resignation" {
			sawResignation = true
		}
	}
	if !sawResignation {
		t.Fatalf("resignation event missing")
	}
}

func TestMoveCapDraws(t *testing.T) {
	m := New(Config{Mode: PlayerVsPlayer, MaxMoves: 4, EnableCommentary: false}, testAppConfig(), nil)
	// Knights shuffle forever; the cap cuts it off.
	input := scriptedInput("Nf3", "Nf6", "Ng1", "Ng8", "Nf3", "Nf6")
	if err := m.Setup(input, nil); err != nil {
		t.Fatalf("setup: %v", err)
	}
	outcome, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome != nchess.Draw {
		t.Fatalf("move cap should draw, got %v", outcome)
	}
	var end Event
	for _, ev := range m.Events() {
		if ev.Type == "game_end" {
			end = ev
		}
	}
	if end.Data["reason"] != "move_cap" {
		t.Fatalf("game_end reason = %v, want move_cap", end.Data["reason"])
	}
	if end.Data["moves"] != 4 {
		t.Fatalf("game_end moves = %v, want 4", end.Data["moves"])
	}
}

func TestRunWithoutSetupFails(t *testing.T) {
	m := New(Config{Mode: PlayerVsPlayer}, testAppConfig(), nil)
	if _, err := m.Run(context.Background()); err == nil {
		t.Fatalf("run before setup should fail")
	}
}

func TestEventSinkReceivesEvents(t *testing.T) {
	var sunk []Event
	m := New(Config{Mode: PlayerVsPlayer}, testAppConfig(), func(ev Event) {
		sunk = append(sunk, ev)
	})
	if err := m.Setup(scriptedInput("resign"), nil); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := m.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sunk) != len(m.Events()) {
		t.Fatalf("sink saw %d events, log has %d", len(sunk), len(m.Events()))
	}
}
