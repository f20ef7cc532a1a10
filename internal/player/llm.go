package player

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"chessalive/internal/game"
	"chessalive/internal/llm"
	"chessalive/internal/obslog"
)

var styleHints = map[string]string{
	"aggressive": "You prefer attacking play, piece sacrifices for initiative, and putting pressure on the opponent's king.",
	"defensive":  "You prefer solid, positional play, careful defense, and waiting for opponent mistakes.",
	"balanced":   "You play a balanced style, combining tactical awareness with positional understanding.",
	"creative":   "You enjoy creative, unexpected moves and are willing to take risks for interesting positions.",
}

var (
	jsonMoveRe    = regexp.MustCompile(`\{[^{}]*"move"\s*:\s*"[^"]*"[^{}]*\}`)
	movePatternRe = regexp.MustCompile(`(?i)MOVE:\s*([A-Za-z0-9\-\+\#\=]+)`)
	uciPatternRe  = regexp.MustCompile(`\b([a-h][1-8][a-h][1-8][qrbn]?)\b`)
)

// LLMPlayer asks a language model for its move and squeezes a legal move out
// of whatever comes back. The extraction chain runs strictly in order:
// embedded JSON, MOVE: pattern, legal-SAN or UCI substring, then a uniform
// random legal move. It never returns an illegal move and never fails on
// unusable text; an unreachable model falls through the same chain.
type LLMPlayer struct {
	color  nchess.Color
	name   string
	client *llm.Client
	style  string
	rng    *rand.Rand
}

func NewLLMPlayer(color nchess.Color, name string, client *llm.Client, style string) *LLMPlayer {
	if name == "" {
		name = fmt.Sprintf("LLM (%s)", colorName(color))
	}
	if _, ok := styleHints[style]; !ok {
		style = "balanced"
	}
	return &LLMPlayer{
		color:  color,
		name:   name,
		client: client,
		style:  style,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetRandomSeed pins the random-move fallback for tests.
func (p *LLMPlayer) SetRandomSeed(seed int64) {
	p.rng = rand.New(rand.NewSource(seed))
}

func (p *LLMPlayer) Color() nchess.Color { return p.color }
func (p *LLMPlayer) Name() string        { return p.name }
func (p *LLMPlayer) Type() Type          { return TypeLLM }

func (p *LLMPlayer) GetMove(ctx context.Context, g *game.Game) (*nchess.Move, error) {
	response, err := p.client.Complete(ctx, llm.Request{
		Prompt:      p.buildMovePrompt(g),
		System:      p.systemPrompt(),
		Temperature: 0.3,
	})
	if err != nil {
		obslog.L().Warn("llm move request failed, extracting from nothing",
			zap.String("player", p.name), zap.Error(err))
		response = ""
	}
	return p.ExtractMove(g, response), nil
}

// ExtractMove runs the full parse chain over the model's text.
func (p *LLMPlayer) ExtractMove(g *game.Game, response string) *nchess.Move {
	if mv := parseJSONMove(g, response); mv != nil {
		return mv
	}
	if mv := parseMovePattern(g, response); mv != nil {
		return mv
	}
	if mv := extractMentionedMove(g, response); mv != nil {
		return mv
	}
	legal := g.LegalMoves()
	if len(legal) == 0 {
		return nil
	}
	return legal[p.rng.Intn(len(legal))]
}

func (p *LLMPlayer) systemPrompt() string {
	return fmt.Sprintf(`You are an expert chess player playing as %s.
%s

When asked for a move, analyze the position carefully and respond with your chosen move.

IMPORTANT: Respond with a JSON object in this exact format:
{"move": "<your move in SAN>", "reasoning": "<brief analysis>"}

Examples:
{"move": "e4", "reasoning": "Control the center"}
{"move": "Nf3", "reasoning": "Develop knight toward center"}
{"move": "O-O", "reasoning": "Castle for king safety"}
{"move": "exd5", "reasoning": "Win a pawn in the center"}

If you cannot use JSON, format your response as: MOVE: <your move>

Always choose a legal move from the provided list of legal moves.`,
		colorName(p.color), styleHints[p.style])
}

func (p *LLMPlayer) buildMovePrompt(g *game.Game) string {
	legal := g.LegalMovesSAN()

	var stateNotes []string
	if g.InCheck() {
		stateNotes = append(stateNotes, "You are in CHECK!")
	}
	if len(legal) < 10 {
		stateNotes = append(stateNotes, fmt.Sprintf("Limited options: only %d legal moves available.", len(legal)))
	}

	return fmt.Sprintf(`Current position (you are playing %s):

%s

FEN: %s

Move history: %s

Legal moves available: %s

%s

It's your turn. Analyze the position and choose the best move.
Respond with JSON: {"move": "<SAN>", "reasoning": "<analysis>"}`,
		colorName(p.color), g.BoardText(), g.FEN(), recentHistory(g),
		strings.Join(legal, ", "), strings.Join(stateNotes, " "))
}

// recentHistory renders the last ten half-moves in numbered pairs.
func recentHistory(g *game.Game) string {
	hist := g.History()
	if len(hist) == 0 {
		return "Game just started"
	}
	start := 0
	if len(hist) > 10 {
		start = len(hist) - 10
	}
	var parts []string
	for i := start; i < len(hist); i++ {
		rec := hist[i]
		moveNum := i/2 + 1
		switch {
		case rec.Piece.Color == nchess.White:
			parts = append(parts, fmt.Sprintf("%d. %s", moveNum, rec.SAN))
		case len(parts) > 0 && i > start:
			parts[len(parts)-1] += " " + rec.SAN
		default:
			parts = append(parts, fmt.Sprintf("%d... %s", moveNum, rec.SAN))
		}
	}
	return strings.Join(parts, " ")
}

func parseJSONMove(g *game.Game, response string) *nchess.Move {
	type moveJSON struct {
		Move string `json:"move"`
	}
	if match := jsonMoveRe.FindString(response); match != "" {
		var parsed moveJSON
		if err := json.Unmarshal([]byte(match), &parsed); err == nil {
			if mv := parseLegalMove(g, parsed.Move); mv != nil {
				return mv
			}
		}
	}
	var parsed moveJSON
	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &parsed); err == nil {
		return parseLegalMove(g, parsed.Move)
	}
	return nil
}

func parseMovePattern(g *game.Game, response string) *nchess.Move {
	match := movePatternRe.FindStringSubmatch(response)
	if match == nil {
		return nil
	}
	return parseLegalMove(g, match[1])
}

// extractMentionedMove scans the text for any legal SAN mention, then for
// UCI-shaped tokens.
func extractMentionedMove(g *game.Game, response string) *nchess.Move {
	pos := g.Position()
	moves := g.LegalMoves()
	alg := nchess.AlgebraicNotation{}
	for _, mv := range moves {
		if containsWord(response, alg.Encode(pos, mv)) {
			return mv
		}
	}
	for _, match := range uciPatternRe.FindAllStringSubmatch(response, -1) {
		if mv := parseLegalMove(g, match[1]); mv != nil {
			return mv
		}
	}
	return nil
}

// containsWord reports whether word occurs in text without alphanumeric
// characters butting up against either end.
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for from := 0; ; {
		idx := strings.Index(text[from:], word)
		if idx < 0 {
			return false
		}
		idx += from
		end := idx + len(word)
		beforeOK := idx == 0 || !isWordChar(text[idx-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		from = idx + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func (p *LLMPlayer) GameStart(context.Context, *game.Game) {}
func (p *LLMPlayer) GameEnd(context.Context, *game.Game)   {}
func (p *LLMPlayer) Close() error                          { return nil }
