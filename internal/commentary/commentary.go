package commentary

import (
	"context"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"chessalive/internal/game"
	"chessalive/internal/llm"
	"chessalive/internal/msgcat"
	"chessalive/internal/obslog"
)

// Frequency controls which moves receive commentary.
type Frequency string

const (
	EveryMove    Frequency = "every_move"
	CapturesOnly Frequency = "captures_only"
	KeyMoments   Frequency = "key_moments"
)

func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case EveryMove:
		return EveryMove, nil
	case CapturesOnly:
		return CapturesOnly, nil
	case KeyMoments:
		return KeyMoments, nil
	default:
		return "", fmt.Errorf("unknown commentary frequency: %s", s)
	}
}

// Commentary is one in-character remark tied to a move.
type Commentary struct {
	Piece *game.Piece
	Text  string
	Move  *game.MoveRecord
	Kind  string // "move", "capture", "reaction", "game_start", "game_end"
}

// Engine produces piece commentary, going to the LLM when it can and to the
// canned catalog when it cannot. A failed LLM call never surfaces an error;
// the show goes on with a stock line.
type Engine struct {
	client    *llm.Client
	catalog   *msgcat.Catalog
	frequency Frequency
	voices    map[voiceKey]*PieceVoice
}

type voiceKey struct {
	Type  nchess.PieceType
	Color nchess.Color
}

func NewEngine(client *llm.Client, catalog *msgcat.Catalog, frequency Frequency) *Engine {
	if frequency == "" {
		frequency = EveryMove
	}
	return &Engine{
		client:    client,
		catalog:   catalog,
		frequency: frequency,
		voices:    make(map[voiceKey]*PieceVoice),
	}
}

func (e *Engine) voice(p *game.Piece) *PieceVoice {
	key := voiceKey{p.Type, p.Color}
	v, ok := e.voices[key]
	if !ok {
		v = NewPieceVoice(p, e.client, e.catalog)
		e.voices[key] = v
	}
	v.piece = p // track the current piece state
	return v
}

// ShouldGenerate is the pure trigger predicate for the configured frequency.
func (e *Engine) ShouldGenerate(rec *game.MoveRecord) bool {
	if rec == nil {
		return false
	}
	switch e.frequency {
	case EveryMove:
		return true
	case CapturesOnly:
		return rec.Captured != nil
	case KeyMoments:
		return rec.Captured != nil || rec.IsCheck || rec.IsCheckmate || rec.IsPromotion || rec.IsCastling
	default:
		return false
	}
}

// GenerateMoveCommentary produces remarks for a move: always the mover, the
// victim on captures, and the threatened king on checks when reactions are on.
func (e *Engine) GenerateMoveCommentary(ctx context.Context, g *game.Game, rec *game.MoveRecord, includeReactions bool) []Commentary {
	if !e.ShouldGenerate(rec) {
		return nil
	}

	var out []Commentary

	mover := rec.Piece
	out = append(out, Commentary{
		Piece: mover,
		Text:  e.voice(mover).CommentOnMove(ctx, g, rec, true),
		Move:  rec,
		Kind:  "move",
	})

	if rec.Captured != nil {
		out = append(out, Commentary{
			Piece: rec.Captured,
			Text:  e.voice(rec.Captured).CommentOnMove(ctx, g, rec, false),
			Move:  rec,
			Kind:  "capture",
		})
	}

	if includeReactions && (rec.IsCheck || rec.IsCheckmate) {
		opposite := mover.Color.Other()
		for _, p := range g.PiecesByColor(opposite) {
			if p.Type != nchess.King {
				continue
			}
			out = append(out, Commentary{
				Piece: p,
				Text:  e.voice(p).CommentOnMove(ctx, g, rec, false),
				Move:  rec,
				Kind:  "reaction",
			})
			break
		}
	}

	return out
}

// GenerateGameStart lets both kings make an opening statement.
func (e *Engine) GenerateGameStart(ctx context.Context, g *game.Game) []Commentary {
	return e.kingsComment(ctx, g, "The game is about to begin!", "game_start")
}

// GenerateGameEnd lets both kings react to the result.
func (e *Engine) GenerateGameEnd(ctx context.Context, g *game.Game) []Commentary {
	var situation string
	switch g.Outcome() {
	case nchess.WhiteWon:
		situation = "White has won the game!"
	case nchess.BlackWon:
		situation = "Black has won the game!"
	case nchess.Draw:
		situation = "The game is a draw!"
	default:
		return nil
	}
	return e.kingsComment(ctx, g, situation, "game_end")
}

func (e *Engine) kingsComment(ctx context.Context, g *game.Game, situation, kind string) []Commentary {
	var out []Commentary
	for _, color := range []nchess.Color{nchess.White, nchess.Black} {
		for _, p := range g.PiecesByColor(color) {
			if p.Type != nchess.King {
				continue
			}
			out = append(out, Commentary{
				Piece: p,
				Text:  e.voice(p).CommentOnSituation(ctx, g, situation),
				Kind:  kind,
			})
			break
		}
	}
	return out
}

// PieceVoice renders remarks in one piece's persona.
type PieceVoice struct {
	piece   *game.Piece
	client  *llm.Client
	catalog *msgcat.Catalog
}

func NewPieceVoice(p *game.Piece, client *llm.Client, catalog *msgcat.Catalog) *PieceVoice {
	return &PieceVoice{piece: p, client: client, catalog: catalog}
}

func (v *PieceVoice) systemPrompt() string {
	return fmt.Sprintf(`You are a %s chess piece on the %s side.
%s

You provide brief, in-character commentary during a chess game. Your commentary should:
1. Stay in character based on your personality
2. Be brief (1-2 sentences max)
3. Reference the game situation appropriately
4. Never break character or mention you're an AI
5. Show personality through word choice and tone

Remember: You ARE this chess piece, speaking about the game from your perspective on the board.`,
		strings.ToLower(pieceTypeName(v.piece.Type)),
		strings.ToLower(colorName(v.piece.Color)),
		v.piece.Personality.PromptContext())
}

// CommentOnMove reacts to a move, from the mover's or a bystander's view.
func (v *PieceVoice) CommentOnMove(ctx context.Context, g *game.Game, rec *game.MoveRecord, isOwnMove bool) string {
	var parts []string
	if isOwnMove {
		parts = append(parts, fmt.Sprintf("You just moved from %s to %s (%s).",
			rec.Move.S1(), rec.Move.S2(), rec.SAN))
		if rec.Captured != nil {
			parts = append(parts, fmt.Sprintf("You captured the enemy %s!", pieceTypeName(rec.Captured.Type)))
		}
		if rec.IsCheck && !rec.IsCheckmate {
			parts = append(parts, "Your move puts the enemy king in check!")
		}
		if rec.IsCheckmate {
			parts = append(parts, "CHECKMATE! You've won the game!")
		}
	} else {
		parts = append(parts, fmt.Sprintf("The %s %s moved %s.",
			colorName(rec.Piece.Color), pieceTypeName(rec.Piece.Type), rec.SAN))
		if rec.Captured == v.piece {
			parts = append(parts, "You have been captured!")
		}
		if rec.IsCheck && v.piece.Type == nchess.King {
			parts = append(parts, "You are in check!")
		}
	}

	tone := "a developing"
	if g.InCheck() || rec.IsCheck {
		tone = "an intense"
	}
	prompt := fmt.Sprintf(`Game situation: %s

The board position shows %s game.
Move number: %d

Give a brief, in-character reaction (1-2 sentences). Don't explain the move technically - react emotionally/dramatically as your character would.`,
		strings.Join(parts, " "), tone, g.FullmoveNumber())

	text, err := v.client.Complete(ctx, llm.Request{
		Prompt:      prompt,
		System:      v.systemPrompt(),
		Temperature: 0.8,
		MaxTokens:   100,
	})
	if err != nil {
		obslog.L().Debug("commentary fell back to catalog",
			zap.String("piece", v.piece.DisplayName()), zap.Error(err))
		return v.fallback(rec, isOwnMove)
	}
	return strings.TrimSpace(text)
}

// CommentOnSituation reacts to a game-level situation.
func (v *PieceVoice) CommentOnSituation(ctx context.Context, g *game.Game, situation string) string {
	prompt := fmt.Sprintf(`Current situation: %s

You are at square %s. The game is at move %d.

Give a brief, in-character comment about this situation (1-2 sentences).`,
		situation, v.piece.SquareName(), g.FullmoveNumber())

	text, err := v.client.Complete(ctx, llm.Request{
		Prompt:      prompt,
		System:      v.systemPrompt(),
		Temperature: 0.8,
		MaxTokens:   100,
	})
	if err != nil {
		return v.pick("commentary.situation")
	}
	return strings.TrimSpace(text)
}

// fallback picks a canned line matching the move and the piece's disposition.
func (v *PieceVoice) fallback(rec *game.MoveRecord, isOwnMove bool) string {
	if isOwnMove {
		switch {
		case rec.Captured != nil && v.piece.Personality.Aggression >= 7:
			return v.pick("commentary.own.capture_aggressive")
		case rec.Captured != nil:
			return v.pick("commentary.own.capture_measured")
		case rec.IsCheck:
			return v.pick("commentary.own.check")
		default:
			return v.pick("commentary.own.move")
		}
	}
	if rec.IsCheck {
		if v.piece.Type == nchess.King {
			return v.pick("commentary.other.king_in_check")
		}
		return v.pick("commentary.other.check")
	}
	return v.pick("commentary.other.move")
}

func (v *PieceVoice) pick(key string) string {
	if v.catalog == nil {
		return "The game continues..."
	}
	text, err := v.catalog.Pick(key, nil)
	if err != nil {
		obslog.L().Warn("canned commentary missing", zap.String("key", key), zap.Error(err))
		return "The game continues..."
	}
	return text
}

func colorName(c nchess.Color) string {
	if c == nchess.White {
		return "White"
	}
	return "Black"
}

func pieceTypeName(t nchess.PieceType) string {
	switch t {
	case nchess.King:
		return "King"
	case nchess.Queen:
		return "Queen"
	case nchess.Rook:
		return "Rook"
	case nchess.Bishop:
		return "Bishop"
	case nchess.Knight:
		return "Knight"
	case nchess.Pawn:
		return "Pawn"
	default:
		return "Piece"
	}
}
