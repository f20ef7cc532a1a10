package narrative

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
)

// PuzzleTheme tags the tactical motif a puzzle trains.
type PuzzleTheme string

const (
	BackRankMate     PuzzleTheme = "backRankMate"
	Fork             PuzzleTheme = "fork"
	Pin              PuzzleTheme = "pin"
	Skewer           PuzzleTheme = "skewer"
	DiscoveredAttack PuzzleTheme = "discoveredAttack"
	Sacrifice        PuzzleTheme = "sacrifice"
	Promotion        PuzzleTheme = "promotion"
	MateInOne        PuzzleTheme = "mateIn1"
	MateInTwo        PuzzleTheme = "mateIn2"
)

// PuzzleFlavor selects the narrative dressing.
type PuzzleFlavor string

const (
	KingdomSiege PuzzleFlavor = "kingdom_siege"      // epic fantasy
	CaseFiles    PuzzleFlavor = "case_files"         // noir detective
	Championship PuzzleFlavor = "championship"       // sports
	HauntedBoard PuzzleFlavor = "haunted_board"      // gothic horror
	NatureDoc    PuzzleFlavor = "nature_documentary" // documentary
)

type flavorSetting struct {
	Name          string
	Genre         string
	Setting       string
	PieceRoles    map[string]string
	NarratorVoice string
}

var flavorSettings = map[PuzzleFlavor]flavorSetting{
	KingdomSiege: {
		Name:    "Kingdom Under Siege",
		Genre:   "Epic Fantasy",
		Setting: "The Dark Kingdom has invaded. Castle walls crumble. Each puzzle is a battle for survival.",
		PieceRoles: map[string]string{
			"king":   "Your Liege",
			"queen":  "The Queen Commander",
			"rook":   "Tower Defender",
			"bishop": "Battle Mage",
			"knight": "Cavalry Champion",
			"pawn":   "Brave Infantry",
		},
		NarratorVoice: "ancient chronicler",
	},
	CaseFiles: {
		Name:    "The Case Files",
		Genre:   "Noir Detective",
		Setting: "The city's dark. The board's darker. Every puzzle is a case to crack.",
		PieceRoles: map[string]string{
			"king":   "The Kingpin",
			"queen":  "The Femme Fatale",
			"rook":   "The Muscle",
			"bishop": "The Fixer",
			"knight": "The Wildcard",
			"pawn":   "The Fall Guy",
		},
		NarratorVoice: "world-weary detective",
	},
	Championship: {
		Name:    "The Championship",
		Genre:   "Sports Drama",
		Setting: "Game 7. Finals. Everything on the line. This is your moment.",
		PieceRoles: map[string]string{
			"king":   "The Captain",
			"queen":  "The MVP",
			"rook":   "The Veteran",
			"bishop": "The Strategist",
			"knight": "The Rookie Star",
			"pawn":   "The Bench Player",
		},
		NarratorVoice: "excited sports announcer",
	},
	HauntedBoard: {
		Name:    "The Haunted Board",
		Genre:   "Gothic Horror",
		Setting: "The pieces whisper in the darkness. Some games... never truly end.",
		PieceRoles: map[string]string{
			"king":   "The Last Lord",
			"queen":  "The Specter Bride",
			"rook":   "The Stone Guardian",
			"bishop": "The Mad Priest",
			"knight": "The Revenant",
			"pawn":   "The Lost Soul",
		},
		NarratorVoice: "ominous archivist",
	},
	NatureDoc: {
		Name:    "Chess in the Wild",
		Genre:   "Nature Documentary",
		Setting: "Here we observe the chess pieces in their natural habitat...",
		PieceRoles: map[string]string{
			"king":   "the alpha",
			"queen":  "the apex predator",
			"rook":   "the territorial guardian",
			"bishop": "the cunning stalker",
			"knight": "the unpredictable hunter",
			"pawn":   "the humble forager",
		},
		NarratorVoice: "gentle naturalist",
	},
}

type themeNarrative struct {
	Setup         string
	NarratorPiece string
	Success       string
	Failure       string
}

var themeNarratives = map[PuzzleTheme]themeNarrative{
	BackRankMate: {
		Setup:         "The enemy king cowers behind walls, thinking himself safe. But walls can become prisons.",
		NarratorPiece: "rook",
		Success:       "The walls have fallen! Checkmate delivered with precision.",
		Failure:       "The escape route remains open. Look again at the back rank.",
	},
	Fork: {
		Setup:         "Two targets stand vulnerable. One strike can threaten both.",
		NarratorPiece: "knight",
		Success:       "A devastating fork! Both targets scatter, but the damage is done.",
		Failure:       "The fork isn't there. Find where two enemies align.",
	},
	Pin: {
		Setup:         "The enemy hides behind their own soldiers. What protects them... traps them.",
		NarratorPiece: "bishop",
		Success:       "Pinned! They cannot move without losing everything.",
		Failure:       "The pin isn't in place. Look for a piece shielding another.",
	},
	Sacrifice: {
		Setup:         "Sometimes you must give to receive. The question is: what's worth losing?",
		NarratorPiece: "queen",
		Success:       "A brilliant sacrifice! The position opens like a flower.",
		Failure:       "That's just a loss, not a sacrifice. Think deeper.",
	},
	MateInOne: {
		Setup:         "One move. One chance. The enemy king awaits judgment.",
		NarratorPiece: "queen",
		Success:       "Checkmate! Swift and decisive justice.",
		Failure:       "The king escapes. The mate must be forced, not hoped for.",
	},
	MateInTwo: {
		Setup:         "Two moves to victory. The path is narrow but clear.",
		NarratorPiece: "rook",
		Success:       "Checkmate in two! A calculated finish.",
		Failure:       "The sequence breaks. Visualize both moves before committing.",
	},
}

var defaultThemeNarrative = themeNarrative{
	Setup:         "A critical moment. Find the winning move.",
	NarratorPiece: "queen",
	Success:       "Excellent! The solution is found.",
	Failure:       "Not quite. Try again.",
}

type rawPuzzle struct {
	ID         string
	FEN        string
	Solution   []string
	Theme      PuzzleTheme
	Difficulty int
	Name       string
}

var puzzleDatabase = []rawPuzzle{
	{
		ID:         "p001",
		FEN:        "r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4",
		Solution:   []string{"Qxf7#"},
		Theme:      MateInOne,
		Difficulty: 800,
		Name:       "Scholar's Mate",
	},
	{
		ID:         "p002",
		FEN:        "r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4",
		Solution:   []string{"Ng5", "d5", "Nxf7"},
		Theme:      Fork,
		Difficulty: 1000,
		Name:       "Fried Liver Attack",
	},
	{
		ID:         "p003",
		FEN:        "6k1/5ppp/8/8/8/8/5PPP/4R1K1 w - - 0 1",
		Solution:   []string{"Re8#"},
		Theme:      BackRankMate,
		Difficulty: 600,
		Name:       "Back Rank Basics",
	},
	{
		ID:         "p004",
		FEN:        "r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQ1RK1 b kq - 5 4",
		Solution:   []string{"Nxe4"},
		Theme:      Fork,
		Difficulty: 900,
		Name:       "Central Fork",
	},
	{
		ID:         "p005",
		FEN:        "r2qk2r/ppp2ppp/2n1bn2/2b1p3/2B1P3/2NP1N2/PPP2PPP/R1BQK2R w KQkq - 0 7",
		Solution:   []string{"Bxf7+", "Kxf7", "Ng5+"},
		Theme:      Sacrifice,
		Difficulty: 1200,
		Name:       "Greek Gift",
	},
	{
		ID:         "p006",
		FEN:        "r1bqr1k1/ppp2ppp/2n2n2/3p4/1bPP4/2N1PN2/PP3PPP/R1BQKB1R w KQ - 0 8",
		Solution:   []string{"a3", "Ba5", "b4"},
		Theme:      Pin,
		Difficulty: 1100,
		Name:       "Bishop Trap",
	},
	{
		ID:         "p007",
		FEN:        "r2q1rk1/ppp2ppp/2n1bn2/3pp3/2PP4/2N1PN2/PP2BPPP/R1BQ1RK1 w - - 0 9",
		Solution:   []string{"cxd5", "exd5", "Nxd5"},
		Theme:      DiscoveredAttack,
		Difficulty: 1150,
		Name:       "Central Explosion",
	},
	{
		ID:         "p008",
		FEN:        "8/8/8/8/8/5k2/4p3/4K3 w - - 0 1",
		Solution:   []string{"Kf1"},
		Theme:      Promotion,
		Difficulty: 700,
		Name:       "Stopping the Pawn",
	},
}

// NarrativePuzzle is a tactic wrapped in a story frame.
type NarrativePuzzle struct {
	ID         string
	FEN        string
	Solution   []string
	Theme      PuzzleTheme
	Difficulty int

	Title         string
	Flavor        PuzzleFlavor
	SetupText     string
	NarratorPiece string
	SuccessText   string
	FailureText   string

	Attempts  int
	Solved    bool
	UserMoves []string
}

// PuzzleResult reports one attempted move.
type PuzzleResult struct {
	Correct       bool
	Message       string
	NarratorQuote string
	MovePlayed    string
	ExpectedMove  string
}

// PuzzleEngine deals out narrative puzzles and checks attempts against the
// stored solution line.
type PuzzleEngine struct {
	puzzles []rawPuzzle
	current *NarrativePuzzle
	rng     *rand.Rand
}

func NewPuzzleEngine() *PuzzleEngine {
	return &PuzzleEngine{
		puzzles: puzzleDatabase,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRandomSeed pins puzzle selection, for tests.
func (e *PuzzleEngine) SetRandomSeed(seed int64) {
	e.rng = rand.New(rand.NewSource(seed))
}

func (e *PuzzleEngine) PuzzleCount() int { return len(e.puzzles) }

// RandomPuzzle picks any puzzle, optionally filtered by difficulty range.
// minDiff and maxDiff of 0 disable the filter.
func (e *PuzzleEngine) RandomPuzzle(flavor PuzzleFlavor, minDiff, maxDiff int) *NarrativePuzzle {
	candidates := e.puzzles
	if minDiff > 0 || maxDiff > 0 {
		var filtered []rawPuzzle
		for _, p := range e.puzzles {
			if p.Difficulty >= minDiff && (maxDiff == 0 || p.Difficulty <= maxDiff) {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}
	raw := candidates[e.rng.Intn(len(candidates))]
	return e.wrap(raw, flavor)
}

// PuzzleByTheme picks a puzzle training the given motif, nil if none stored.
func (e *PuzzleEngine) PuzzleByTheme(theme PuzzleTheme, flavor PuzzleFlavor) *NarrativePuzzle {
	var candidates []rawPuzzle
	for _, p := range e.puzzles {
		if p.Theme == theme {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	raw := candidates[e.rng.Intn(len(candidates))]
	return e.wrap(raw, flavor)
}

func (e *PuzzleEngine) wrap(raw rawPuzzle, flavor PuzzleFlavor) *NarrativePuzzle {
	fd, ok := flavorSettings[flavor]
	if !ok {
		fd = flavorSettings[KingdomSiege]
	}
	td, ok := themeNarratives[raw.Theme]
	if !ok {
		td = defaultThemeNarrative
	}

	narrator := fd.PieceRoles[td.NarratorPiece]
	if narrator == "" {
		narrator = capitalize(td.NarratorPiece)
	}

	title := raw.Name
	if title == "" {
		title = fmt.Sprintf("Puzzle %s", raw.ID)
	}

	return &NarrativePuzzle{
		ID:            raw.ID,
		FEN:           raw.FEN,
		Solution:      raw.Solution,
		Theme:         raw.Theme,
		Difficulty:    raw.Difficulty,
		Title:         title,
		Flavor:        flavor,
		SetupText:     fmt.Sprintf("%s\n\n%s speaks:\n%q", fd.Setting, narrator, td.Setup),
		NarratorPiece: narrator,
		SuccessText:   td.Success,
		FailureText:   td.Failure,
	}
}

// StartPuzzle makes the puzzle current and returns its starting position.
func (e *PuzzleEngine) StartPuzzle(p *NarrativePuzzle) (*nchess.Game, error) {
	board, err := newReplay(p.FEN)
	if err != nil {
		return nil, fmt.Errorf("puzzle %s: %w", p.ID, err)
	}
	p.Attempts = 0
	p.Solved = false
	p.UserMoves = nil
	e.current = p
	return board, nil
}

// AttemptMove checks one SAN move against the current solution line.
func (e *PuzzleEngine) AttemptMove(moveSAN string) (*PuzzleResult, error) {
	if e.current == nil {
		return nil, fmt.Errorf("no puzzle in progress")
	}
	p := e.current
	p.Attempts++

	idx := len(p.UserMoves)
	if idx >= len(p.Solution) {
		return &PuzzleResult{
			Correct:       false,
			Message:       "Puzzle already solved!",
			NarratorQuote: p.SuccessText,
			MovePlayed:    moveSAN,
		}, nil
	}
	expected := p.Solution[idx]

	board, err := newReplay(p.FEN)
	if err != nil {
		return nil, err
	}
	for _, prev := range p.UserMoves {
		mv, err := nchess.AlgebraicNotation{}.Decode(board.Position(), prev)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", prev, err)
		}
		if err := board.Move(mv, nil); err != nil {
			return nil, fmt.Errorf("replay %s: %w", prev, err)
		}
	}

	userMove, err := nchess.AlgebraicNotation{}.Decode(board.Position(), strings.TrimSpace(moveSAN))
	if err != nil {
		return &PuzzleResult{
			Correct:       false,
			Message:       fmt.Sprintf("Invalid move: %s", moveSAN),
			NarratorQuote: p.FailureText,
			MovePlayed:    moveSAN,
			ExpectedMove:  expected,
		}, nil
	}
	expectedMove, err := nchess.AlgebraicNotation{}.Decode(board.Position(), expected)
	if err != nil {
		return nil, fmt.Errorf("parse solution %s: %w", expected, err)
	}

	if !sameMove(userMove, expectedMove) {
		return &PuzzleResult{
			Correct:       false,
			Message:       "Incorrect move",
			NarratorQuote: fmt.Sprintf("%s: %q", p.NarratorPiece, p.FailureText),
			MovePlayed:    moveSAN,
			ExpectedMove:  expected,
		}, nil
	}

	p.UserMoves = append(p.UserMoves, moveSAN)
	if len(p.UserMoves) >= len(p.Solution) {
		p.Solved = true
		return &PuzzleResult{
			Correct:       true,
			Message:       "Puzzle solved!",
			NarratorQuote: fmt.Sprintf("%s: %q", p.NarratorPiece, p.SuccessText),
			MovePlayed:    moveSAN,
			ExpectedMove:  expected,
		}, nil
	}
	return &PuzzleResult{
		Correct:       true,
		Message:       fmt.Sprintf("Correct! %d move(s) remaining.", len(p.Solution)-len(p.UserMoves)),
		NarratorQuote: "Good move! Continue...",
		MovePlayed:    moveSAN,
		ExpectedMove:  expected,
	}, nil
}

// Hint nudges toward the next solution move without naming it.
func (e *PuzzleEngine) Hint() string {
	if e.current == nil {
		return "No puzzle in progress"
	}
	p := e.current
	idx := len(p.UserMoves)
	if idx >= len(p.Solution) {
		return "Puzzle already solved!"
	}
	mv := p.Solution[idx]
	switch {
	case strings.HasSuffix(mv, "#"):
		return fmt.Sprintf("%s whispers: \"Look for checkmate...\"", p.NarratorPiece)
	case strings.HasSuffix(mv, "+"):
		return fmt.Sprintf("%s hints: \"A check might be in order...\"", p.NarratorPiece)
	case strings.Contains(mv, "x"):
		return fmt.Sprintf("%s suggests: \"Consider a capture...\"", p.NarratorPiece)
	default:
		pieceName := "pawn"
		if mv[0] >= 'A' && mv[0] <= 'Z' {
			names := map[byte]string{
				'K': "king", 'Q': "queen", 'R': "rook",
				'B': "bishop", 'N': "knight",
			}
			if name, ok := names[mv[0]]; ok {
				pieceName = name
			} else {
				pieceName = "piece"
			}
		}
		return fmt.Sprintf("%s hints: \"The %s holds the key...\"", p.NarratorPiece, pieceName)
	}
}

// DifficultyLabel maps a rating to a rough skill band.
func DifficultyLabel(rating int) string {
	switch {
	case rating < 800:
		return "Beginner"
	case rating < 1200:
		return "Intermediate"
	case rating < 1600:
		return "Advanced"
	case rating < 2000:
		return "Expert"
	default:
		return "Master"
	}
}

func sameMove(a, b *nchess.Move) bool {
	return a.S1() == b.S1() && a.S2() == b.S2() && a.Promo() == b.Promo()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
