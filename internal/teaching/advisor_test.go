package teaching

import (
	"strings"
	"testing"

	nchess "github.com/corentings/chess/v2"

	"chessalive/internal/game"
)

func TestFormatScoreMoverPerspective(t *testing.T) {
	cases := []struct {
		evalCP     int
		mate       int
		scoreColor nchess.Color
		player     nchess.Color
		want       string
	}{
		{50, 0, nchess.White, nchess.White, "+0.50"},
		{50, 0, nchess.White, nchess.Black, "-0.50"},
		{-120, 0, nchess.White, nchess.White, "-1.20"},
		{-120, 0, nchess.White, nchess.Black, "+1.20"},
		{0, 0, nchess.White, nchess.White, "+0.00"},
		{30000, 3, nchess.White, nchess.White, "Mate in 3"},
		{30000, 3, nchess.White, nchess.Black, "Opponent mates in 3"},
		{-30000, -2, nchess.Black, nchess.Black, "Opponent mates in 2"},
	}
	for _, tc := range cases {
		got := formatScore(tc.evalCP, tc.mate, tc.scoreColor, tc.player)
		if got != tc.want {
			t.Fatalf("formatScore(%d, %d, %v, %v) = %q, want %q",
				tc.evalCP, tc.mate, tc.scoreColor, tc.player, got, tc.want)
		}
	}
}

func TestParseResponseStructured(t *testing.T) {
	data := []moveData{
		{san: "e4", eval: "+0.30"},
		{san: "d4", eval: "+0.25"},
	}
	response := `POSITION: A balanced opening position with everything to play for.

MOVE (e4):
- Why: Grabs the center and opens lines for the bishop and queen.
- Response: Black will likely reply e5 to contest the center.
- Follow-up: Develop the kingside knight and castle early.

MOVE (d4):
- Why: Stakes a central claim with queenside expansion in mind.
- Response: d5 is the classical answer.
- Follow-up: Aim for c4 and a broad pawn center.`

	advice := parseResponse(response, data, nchess.White, 1)
	if !strings.HasPrefix(advice.PositionAssessment, "A balanced opening") {
		t.Fatalf("assessment not parsed: %q", advice.PositionAssessment)
	}
	if len(advice.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(advice.Candidates))
	}
	first := advice.Candidates[0]
	if first.SAN != "e4" || first.Evaluation != "+0.30" {
		t.Fatalf("first candidate wrong: %+v", first)
	}
	if !strings.Contains(first.Explanation, "Grabs the center") {
		t.Fatalf("explanation not parsed: %q", first.Explanation)
	}
	if !strings.Contains(first.LikelyResponse, "e5") || !strings.Contains(first.FollowUpPlan, "castle") {
		t.Fatalf("candidate fields wrong: %+v", first)
	}
}

func TestParseResponseUnknownMoveGetsQuestionMark(t *testing.T) {
	data := []moveData{{san: "e4", eval: "+0.30"}}
	advice := parseResponse("POSITION: Fine.\n\nMOVE (Nf3):\n- Why: Solid.", data, nchess.White, 1)
	if len(advice.Candidates) != 1 || advice.Candidates[0].Evaluation != "?" {
		t.Fatalf("hallucinated move should carry ? eval: %+v", advice.Candidates)
	}
}

func TestParseResponseRawFallback(t *testing.T) {
	data := []moveData{
		{san: "e4", eval: "+0.30"},
		{san: "d4", eval: "+0.25"},
	}
	rambling := strings.Repeat("The position is interesting and complex. ", 10)
	advice := parseResponse(rambling, data, nchess.Black, 12)

	if len(advice.Candidates) != 2 {
		t.Fatalf("fallback should keep all engine candidates, got %d", len(advice.Candidates))
	}
	if advice.Candidates[0].SAN != "e4" || advice.Candidates[0].Evaluation != "+0.30" {
		t.Fatalf("fallback candidate wrong: %+v", advice.Candidates[0])
	}
	if len(advice.Candidates[0].Explanation) == 0 || len(advice.Candidates[0].Explanation) > maxFallbackText {
		t.Fatalf("raw explanation not trimmed: %d chars", len(advice.Candidates[0].Explanation))
	}
	if advice.Candidates[1].Explanation != "" {
		t.Fatalf("raw text should attach to the first candidate only")
	}
	if len(advice.PositionAssessment) == 0 || len(advice.PositionAssessment) > maxFallbackText {
		t.Fatalf("assessment fallback not trimmed: %d chars", len(advice.PositionAssessment))
	}
	if advice.PlayerColor != nchess.Black || advice.MoveNumber != 12 {
		t.Fatalf("metadata lost: %+v", advice)
	}
}

func TestBuildPromptListsCandidates(t *testing.T) {
	data := []moveData{
		{san: "Qxf7#", eval: "Mate in 1"},
		{san: "Bxf7+", eval: "+2.10", oppSAN: "Kxf7"},
	}
	prompt := buildPrompt(game.NewGame(), data, nchess.White)

	for _, want := range []string{
		"Position (FEN):",
		"1. Qxf7# (eval: Mate in 1)",
		"2. Bxf7+ (eval: +2.10, opponent may respond: Kxf7)",
		"POSITION: [Brief assessment of the position]",
		"MOVE (Qxf7#):",
		"- Follow-up: [player's next strategic goal]",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
