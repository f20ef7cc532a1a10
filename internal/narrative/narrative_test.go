package narrative

import (
	"context"
	"strings"
	"testing"

	"chessalive/internal/config"
	"chessalive/internal/game"
	"chessalive/internal/llm"
	"chessalive/internal/msgcat"
)

func TestClassifyInsight(t *testing.T) {
	cases := []struct {
		name       string
		before     int
		after      int
		whiteMoved bool
		want       InsightType
	}{
		{"white blunder", 0, -250, true, Blunder},
		{"white mistake", 0, -120, true, Mistake},
		{"white inaccuracy", 0, -60, true, Inaccuracy},
		{"white good", 0, 60, true, Good},
		{"white excellent", 0, 120, true, Excellent},
		{"white brilliant", 0, 250, true, Brilliant},
		{"white quiet", 0, 20, true, Normal},

		// Black's gains read as negative White-perspective deltas.
		{"black brilliant", 0, -250, false, Brilliant},
		{"black blunder", 0, 250, false, Blunder},
		{"black inaccuracy", 0, 60, false, Inaccuracy},

		// Sign flip across both edges with a big enough swing.
		{"turning point", 120, -120, true, TurningPoint},
		{"turning point reversed", -120, 120, false, TurningPoint},
		{"small flip is not turning", 60, -60, true, Mistake},

		// Winning position evaporates to near-equality.
		{"missed win white", 350, 50, true, MissedWin},
		{"missed win black", -350, -50, false, MissedWin},

		// Turning point wins over missed win when both shapes match.
		{"flip beats missed win", 350, -80, true, TurningPoint},

		{"boundary blunder", 0, -200, true, Blunder},
		{"boundary good", 0, 50, true, Good},
		{"just under inaccuracy", 0, -49, true, Normal},
	}
	for _, tc := range cases {
		if got := ClassifyInsight(tc.before, tc.after, tc.whiteMoved); got != tc.want {
			t.Fatalf("%s: ClassifyInsight(%d, %d, %v) = %s, want %s",
				tc.name, tc.before, tc.after, tc.whiteMoved, got, tc.want)
		}
	}
}

func TestPuzzleSolveMateInOne(t *testing.T) {
	e := NewPuzzleEngine()
	e.SetRandomSeed(1)
	p := e.PuzzleByTheme(MateInOne, KingdomSiege)
	if p == nil {
		t.Fatalf("no mate-in-one puzzle stored")
	}
	if p.ID != "p001" {
		t.Fatalf("unexpected puzzle %s", p.ID)
	}
	if !strings.Contains(p.SetupText, "The Queen Commander") {
		t.Fatalf("flavor narrator missing from setup: %s", p.SetupText)
	}

	if _, err := e.StartPuzzle(p); err != nil {
		t.Fatalf("start puzzle: %v", err)
	}

	res, err := e.AttemptMove("Qh6")
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if res.Correct {
		t.Fatalf("wrong move accepted")
	}
	if res.ExpectedMove != "Qxf7#" {
		t.Fatalf("expected move = %s", res.ExpectedMove)
	}

	res, err = e.AttemptMove("Qxf7#")
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if !res.Correct || !p.Solved {
		t.Fatalf("solution rejected: %+v", res)
	}
	if p.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", p.Attempts)
	}
	if !strings.Contains(res.NarratorQuote, p.SuccessText) {
		t.Fatalf("success quote missing: %s", res.NarratorQuote)
	}

	res, err = e.AttemptMove("e4")
	if err != nil {
		t.Fatalf("attempt after solve: %v", err)
	}
	if res.Correct || res.Message != "Puzzle already solved!" {
		t.Fatalf("post-solve attempt mishandled: %+v", res)
	}
}

func TestPuzzleMultiMoveLine(t *testing.T) {
	e := NewPuzzleEngine()
	p := e.wrap(puzzleDatabase[1], CaseFiles) // Fried Liver, three half-moves
	if _, err := e.StartPuzzle(p); err != nil {
		t.Fatalf("start puzzle: %v", err)
	}

	res, err := e.AttemptMove("Ng5")
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if !res.Correct || p.Solved {
		t.Fatalf("first solution move: %+v solved=%v", res, p.Solved)
	}
	if !strings.Contains(res.Message, "2 move(s) remaining") {
		t.Fatalf("remaining count wrong: %s", res.Message)
	}

	for _, san := range []string{"d5", "Nxf7"} {
		res, err = e.AttemptMove(san)
		if err != nil {
			t.Fatalf("attempt %s: %v", san, err)
		}
		if !res.Correct {
			t.Fatalf("%s rejected: %+v", san, res)
		}
	}
	if !p.Solved {
		t.Fatalf("full line played but puzzle not solved")
	}
}

func TestPuzzleInvalidMove(t *testing.T) {
	e := NewPuzzleEngine()
	p := e.wrap(puzzleDatabase[2], HauntedBoard)
	if _, err := e.StartPuzzle(p); err != nil {
		t.Fatalf("start puzzle: %v", err)
	}
	res, err := e.AttemptMove("Zz9")
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if res.Correct || !strings.Contains(res.Message, "Invalid move") {
		t.Fatalf("garbage move mishandled: %+v", res)
	}
}

func TestPuzzleHints(t *testing.T) {
	e := NewPuzzleEngine()
	if got := e.Hint(); got != "No puzzle in progress" {
		t.Fatalf("idle hint = %s", got)
	}

	cases := []struct {
		index int
		want  string
	}{
		{0, "checkmate"}, // Qxf7#
		{4, "check"},     // Bxf7+
		{7, "king"},      // Kf1
		{5, "pawn"},      // a3
	}
	for _, tc := range cases {
		p := e.wrap(puzzleDatabase[tc.index], KingdomSiege)
		if _, err := e.StartPuzzle(p); err != nil {
			t.Fatalf("start %s: %v", p.ID, err)
		}
		hint := e.Hint()
		if !strings.Contains(strings.ToLower(hint), tc.want) {
			t.Fatalf("%s hint %q missing %q", p.ID, hint, tc.want)
		}
	}
}

func TestDifficultyLabels(t *testing.T) {
	cases := []struct {
		rating int
		want   string
	}{
		{600, "Beginner"},
		{800, "Intermediate"},
		{1199, "Intermediate"},
		{1500, "Advanced"},
		{1900, "Expert"},
		{2400, "Master"},
	}
	for _, tc := range cases {
		if got := DifficultyLabel(tc.rating); got != tc.want {
			t.Fatalf("DifficultyLabel(%d) = %s, want %s", tc.rating, got, tc.want)
		}
	}
}

func TestRandomPuzzleDifficultyFilter(t *testing.T) {
	e := NewPuzzleEngine()
	e.SetRandomSeed(7)
	for i := 0; i < 20; i++ {
		p := e.RandomPuzzle(Championship, 1000, 1200)
		if p.Difficulty < 1000 || p.Difficulty > 1200 {
			t.Fatalf("puzzle %s difficulty %d outside filter", p.ID, p.Difficulty)
		}
	}
}

func newStoryGenerator(t *testing.T) *StoryGenerator {
	t.Helper()
	catalog, err := msgcat.New("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	client := llm.NewClient(config.LLMConfig{Provider: config.ProviderOpenRouter})
	return NewStoryGenerator(client, catalog)
}

func scholarsMate(t *testing.T) *game.Game {
	t.Helper()
	g := game.NewGame()
	for _, san := range []string{"e4", "e5", "Bc4", "Nc6", "Qh5", "Nf6", "Qxf7#"} {
		if _, err := g.ApplySAN(san); err != nil {
			t.Fatalf("apply %s: %v", san, err)
		}
	}
	return g
}

func TestTweetFallbackWithoutLLM(t *testing.T) {
	s := newStoryGenerator(t)
	g := scholarsMate(t)

	story, err := s.Generate(context.Background(), g, Tweet, Gumshoe)
	if err != nil {
		t.Fatalf("generate tweet: %v", err)
	}
	if story.Format != Tweet || story.Narrator != Gumshoe {
		t.Fatalf("story metadata wrong: %+v", story)
	}
	if len(story.Content) > 280 {
		t.Fatalf("tweet too long: %d chars", len(story.Content))
	}
	if !strings.Contains(story.Content, "#ChessAlive") {
		t.Fatalf("tweet missing hashtag: %s", story.Content)
	}
}

func TestShortStoryFallbackWithoutLLM(t *testing.T) {
	s := newStoryGenerator(t)
	g := scholarsMate(t)

	story, err := s.Generate(context.Background(), g, ShortStory, Chronicler)
	if err != nil {
		t.Fatalf("generate story: %v", err)
	}
	if story.Title == "" {
		t.Fatalf("fallback story has no title")
	}
	if strings.TrimSpace(story.Content) == "" {
		t.Fatalf("fallback story empty")
	}
}

func TestStoryStreamSinkSkipsFallback(t *testing.T) {
	s := newStoryGenerator(t)
	chunks := 0
	s.StreamTo(func(string) { chunks++ })
	g := scholarsMate(t)

	story, err := s.Generate(context.Background(), g, ShortStory, Nature)
	if err != nil {
		t.Fatalf("generate story: %v", err)
	}
	if strings.TrimSpace(story.Content) == "" {
		t.Fatalf("fallback story empty")
	}
	if chunks != 0 {
		t.Fatalf("fallback text streamed %d chunks", chunks)
	}
}

func TestExtractMomentsFlagsDrama(t *testing.T) {
	g := scholarsMate(t)
	moments := extractMoments(g)
	if len(moments) != 7 {
		t.Fatalf("moments = %d, want 7", len(moments))
	}
	// A mating capture classifies as a capture; the victim outranks the mate flag.
	last := moments[len(moments)-1]
	if last.Kind != "capture" {
		t.Fatalf("final moment kind = %s", last.Kind)
	}
	if last.Captured == "" {
		t.Fatalf("capture moment has no victim")
	}
	narrative := buildGameNarrative(moments)
	if !strings.Contains(narrative, "captures") || !strings.Contains(narrative, "Qxf7#") {
		t.Fatalf("narrative missing capture line:\n%s", narrative)
	}
}

func TestParseNarratorStyle(t *testing.T) {
	for _, style := range AllNarratorStyles() {
		got, err := ParseNarratorStyle(string(style))
		if err != nil || got != style {
			t.Fatalf("ParseNarratorStyle(%s) = %s, %v", style, got, err)
		}
	}
	if _, err := ParseNarratorStyle("shakespeare"); err == nil {
		t.Fatalf("unknown narrator accepted")
	}
}
