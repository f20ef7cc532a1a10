package game

import (
	"errors"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
	"go.uber.org/zap"

	"chessalive/internal/obslog"
)

var (
	ErrInvalidMove = errors.New("invalid move")
	ErrInvalidFEN  = errors.New("invalid fen")
)

// MoveRecord captures one applied move with everything the narrative layers
// need: the mover and victim decorations, the event flags, and any commentary
// attached after the fact.
type MoveRecord struct {
	Move     *nchess.Move
	SAN      string
	Piece    *Piece
	Captured *Piece

	IsCheck     bool
	IsCheckmate bool
	IsCastling  bool
	IsEnPassant bool
	IsPromotion bool

	Commentary string
	Timestamp  time.Time
}

// Game wraps the rules library with a decoration layer: every occupied square
// carries a Piece with personality and running counters. The wrapped board is
// authoritative for position, legality and outcome; decorations are rebuilt
// from it wholesale after undo, reset or FEN load.
type Game struct {
	inner    *nchess.Game
	startFEN string // empty means the standard start position

	pieces   map[nchess.Square]*Piece
	captured map[nchess.Color][]*Piece // keyed by the victim's color
	history  []*MoveRecord
}

func NewGame() *Game {
	g := &Game{inner: nchess.NewGame()}
	g.initPieces()
	return g
}

func (g *Game) initPieces() {
	g.pieces = make(map[nchess.Square]*Piece)
	g.captured = map[nchess.Color][]*Piece{
		nchess.White: nil,
		nchess.Black: nil,
	}
	for sq, pc := range g.inner.Position().Board().SquareMap() {
		if pc == nchess.NoPiece {
			continue
		}
		g.pieces[sq] = &Piece{
			Type:        pc.Type(),
			Color:       pc.Color(),
			Square:      sq,
			Personality: PersonalityFor(pc.Type(), pc.Color()),
		}
	}
}

// MakeMove applies a move. Illegal moves return ErrInvalidMove and leave the
// game untouched; nothing here panics on bad input.
func (g *Game) MakeMove(mv *nchess.Move) (*MoveRecord, error) {
	if mv == nil {
		return nil, ErrInvalidMove
	}
	prePos := g.inner.Position()
	san := nchess.AlgebraicNotation{}.Encode(prePos, mv)

	if err := g.inner.Move(mv, nil); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMove, san)
	}

	rec := g.applyDecorations(prePos, mv, san)
	rec.Timestamp = time.Now()
	g.history = append(g.history, rec)
	return rec, nil
}

// ApplySAN decodes standard algebraic notation against the current position
// and applies it.
func (g *Game) ApplySAN(san string) (*MoveRecord, error) {
	mv, err := nchess.AlgebraicNotation{}.Decode(g.inner.Position(), strings.TrimSpace(san))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMove, san)
	}
	return g.MakeMove(mv)
}

// ApplyUCI decodes long algebraic notation (e2e4) and applies it.
func (g *Game) ApplyUCI(uci string) (*MoveRecord, error) {
	mv, err := nchess.UCINotation{}.Decode(g.inner.Position(), strings.ToLower(strings.TrimSpace(uci)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMove, uci)
	}
	return g.MakeMove(mv)
}

// applyDecorations updates the decoration map for a move the inner game has
// already accepted. prePos is the position before the move.
func (g *Game) applyDecorations(prePos *nchess.Position, mv *nchess.Move, san string) *MoveRecord {
	mover := g.pieces[mv.S1()]
	if mover == nil {
		// Should not happen while the invariant holds; resync rather than crash.
		obslog.L().Warn("decoration missing for moved piece", zap.String("square", mv.S1().String()))
		pc := prePos.Board().Piece(mv.S1())
		mover = &Piece{Type: pc.Type(), Color: pc.Color(), Square: mv.S1(), Personality: PersonalityFor(pc.Type(), pc.Color())}
	}

	rec := &MoveRecord{
		Move:        mv,
		SAN:         san,
		Piece:       mover,
		IsEnPassant: mv.HasTag(nchess.EnPassant),
		IsCastling:  mv.HasTag(nchess.KingSideCastle) || mv.HasTag(nchess.QueenSideCastle),
		IsCheck:     mv.HasTag(nchess.Check),
		IsPromotion: mv.Promo() != nchess.NoPieceType,
	}

	// Resolve the capture before relocating the mover. En passant victims sit
	// behind the destination square.
	if mv.HasTag(nchess.Capture) || rec.IsEnPassant {
		captureSq := mv.S2()
		if rec.IsEnPassant {
			file := mv.S2().File()
			rank := mv.S2().Rank()
			if prePos.Turn() == nchess.White {
				captureSq = nchess.NewSquare(file, rank-1)
			} else {
				captureSq = nchess.NewSquare(file, rank+1)
			}
		}
		if victim := g.pieces[captureSq]; victim != nil {
			victim.IsCaptured = true
			rec.Captured = victim
			g.captured[victim.Color] = append(g.captured[victim.Color], victim)
			delete(g.pieces, captureSq)
			mover.CapturesMade++
		}
	}

	delete(g.pieces, mv.S1())
	mover.Square = mv.S2()
	mover.MovesMade++
	if rec.IsPromotion {
		mover.Type = mv.Promo()
	}
	g.pieces[mv.S2()] = mover

	if rec.IsCastling {
		g.relocateCastlingRook(mv, mover.Color)
	}

	if g.inner.Method() == nchess.Checkmate {
		rec.IsCheckmate = true
		rec.IsCheck = true
	}
	return rec
}

func (g *Game) relocateCastlingRook(mv *nchess.Move, color nchess.Color) {
	backRank := nchess.Rank1
	if color == nchess.Black {
		backRank = nchess.Rank8
	}
	var from, to nchess.Square
	if mv.HasTag(nchess.KingSideCastle) {
		from = nchess.NewSquare(nchess.FileH, backRank)
		to = nchess.NewSquare(nchess.FileF, backRank)
	} else {
		from = nchess.NewSquare(nchess.FileA, backRank)
		to = nchess.NewSquare(nchess.FileD, backRank)
	}
	if rook := g.pieces[from]; rook != nil {
		delete(g.pieces, from)
		rook.Square = to
		rook.MovesMade++
		g.pieces[to] = rook
	}
}

// UndoMove removes the last move and rebuilds all derived state by replaying
// the remaining history from the start position. Capture lists come out of
// the replay, so an undone en passant cannot strand a stale entry.
func (g *Game) UndoMove() bool {
	if len(g.history) == 0 {
		return false
	}
	trimmed := g.history[:len(g.history)-1]
	return g.rebuild(trimmed) == nil
}

func (g *Game) rebuild(records []*MoveRecord) error {
	fresh, err := newInnerGame(g.startFEN)
	if err != nil {
		return err
	}
	g.inner = fresh
	g.initPieces()
	g.history = nil
	for _, old := range records {
		prePos := g.inner.Position()
		if err := g.inner.Move(old.Move, nil); err != nil {
			return fmt.Errorf("replay %s: %w", old.SAN, err)
		}
		rec := g.applyDecorations(prePos, old.Move, old.SAN)
		rec.Commentary = old.Commentary
		rec.Timestamp = old.Timestamp
		g.history = append(g.history, rec)
	}
	return nil
}

func newInnerGame(fen string) (*nchess.Game, error) {
	if strings.TrimSpace(fen) == "" {
		return nchess.NewGame(), nil
	}
	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return nchess.NewGame(option), nil
}

// LoadFEN replaces the game with the given position. History and capture
// lists are cleared and decorations rebuilt from the new board.
func (g *Game) LoadFEN(fen string) error {
	fresh, err := newInnerGame(fen)
	if err != nil {
		return err
	}
	g.inner = fresh
	g.startFEN = strings.TrimSpace(fen)
	g.history = nil
	g.initPieces()
	return nil
}

// Reset returns to the standard start position.
func (g *Game) Reset() {
	g.inner = nchess.NewGame()
	g.startFEN = ""
	g.history = nil
	g.initPieces()
}

// PieceAt returns the decoration on a square, or nil.
func (g *Game) PieceAt(sq nchess.Square) *Piece { return g.pieces[sq] }

// PiecesByColor returns the living decorated pieces of one side.
func (g *Game) PiecesByColor(c nchess.Color) []*Piece {
	var out []*Piece
	for _, p := range g.pieces {
		if p.Color == c {
			out = append(out, p)
		}
	}
	return out
}

// CapturedPieces returns the captured pieces of the given color, oldest first.
func (g *Game) CapturedPieces(c nchess.Color) []*Piece {
	return append([]*Piece(nil), g.captured[c]...)
}

// History returns the move records, oldest first.
func (g *Game) History() []*MoveRecord {
	return append([]*MoveRecord(nil), g.history...)
}

// LastMove returns the most recent record, or nil.
func (g *Game) LastMove() *MoveRecord {
	if len(g.history) == 0 {
		return nil
	}
	return g.history[len(g.history)-1]
}

// LegalMoves lists the legal moves in the current position.
func (g *Game) LegalMoves() []*nchess.Move {
	valid := g.inner.ValidMoves()
	out := make([]*nchess.Move, len(valid))
	for i := range valid {
		out[i] = &valid[i]
	}
	return out
}

// Position exposes the current position for notation work.
func (g *Game) Position() *nchess.Position { return g.inner.Position() }

// StartFEN returns the position the game started from; empty means the
// standard start position.
func (g *Game) StartFEN() string { return g.startFEN }

// LegalMovesSAN lists the legal moves in algebraic notation.
func (g *Game) LegalMovesSAN() []string {
	pos := g.inner.Position()
	moves := g.inner.ValidMoves()
	out := make([]string, 0, len(moves))
	notation := nchess.AlgebraicNotation{}
	for i := range moves {
		out = append(out, notation.Encode(pos, &moves[i]))
	}
	return out
}

// UCIMoves returns the move history in long algebraic form for engine input.
func (g *Game) UCIMoves() []string {
	positions := g.inner.Positions()
	moves := g.inner.Moves()
	notation := nchess.UCINotation{}
	out := make([]string, 0, len(moves))
	for i, mv := range moves {
		if i < len(positions) {
			out = append(out, notation.Encode(positions[i], mv))
		}
	}
	return out
}

func (g *Game) Turn() nchess.Color      { return g.inner.Position().Turn() }
func (g *Game) FEN() string             { return g.inner.FEN() }
func (g *Game) Outcome() nchess.Outcome { return g.inner.Outcome() }
func (g *Game) Method() nchess.Method   { return g.inner.Method() }
func (g *Game) IsOver() bool            { return g.inner.Outcome() != nchess.NoOutcome }

// InCheck reports whether the side to move is currently in check, derived
// from the board so positions loaded from FEN answer correctly.
func (g *Game) InCheck() bool {
	pos := g.inner.Position()
	board := pos.Board()
	us := pos.Turn()
	for sq, pc := range board.SquareMap() {
		if pc.Type() == nchess.King && pc.Color() == us {
			return squareAttacked(board, sq, us.Other())
		}
	}
	return false
}

var knightOffsets = [8][2]int{
	{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2},
}

// First four entries are orthogonal, last four diagonal.
var rayOffsets = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// squareAttacked reports whether any piece of the given color attacks the
// target square.
func squareAttacked(board *nchess.Board, target nchess.Square, by nchess.Color) bool {
	tf, tr := int(target.File()), int(target.Rank())
	at := func(f, r int) nchess.Piece {
		if f < 0 || f > 7 || r < 0 || r > 7 {
			return nchess.NoPiece
		}
		return board.Piece(nchess.NewSquare(nchess.File(f), nchess.Rank(r)))
	}

	// Pawns attack one rank toward the enemy.
	pawnRank := tr - 1
	if by == nchess.Black {
		pawnRank = tr + 1
	}
	for _, df := range [2]int{-1, 1} {
		if pc := at(tf+df, pawnRank); pc.Type() == nchess.Pawn && pc.Color() == by {
			return true
		}
	}

	for _, d := range knightOffsets {
		if pc := at(tf+d[0], tr+d[1]); pc.Type() == nchess.Knight && pc.Color() == by {
			return true
		}
	}

	for i, d := range rayOffsets {
		diagonal := i >= 4
		for step := 1; step < 8; step++ {
			f, r := tf+d[0]*step, tr+d[1]*step
			if f < 0 || f > 7 || r < 0 || r > 7 {
				break
			}
			pc := board.Piece(nchess.NewSquare(nchess.File(f), nchess.Rank(r)))
			if pc == nchess.NoPiece {
				continue
			}
			if pc.Color() == by {
				switch pc.Type() {
				case nchess.Queen:
					return true
				case nchess.Rook:
					if !diagonal {
						return true
					}
				case nchess.Bishop:
					if diagonal {
						return true
					}
				case nchess.King:
					if step == 1 {
						return true
					}
				}
			}
			break
		}
	}
	return false
}

// FullmoveNumber matches the FEN fullmove counter.
func (g *Game) FullmoveNumber() int { return len(g.history)/2 + 1 }

// Resign ends the game in favor of the opponent.
func (g *Game) Resign(c nchess.Color) { g.inner.Resign(c) }

// BoardText renders the board as fixed-width text for prompts and the CLI.
func (g *Game) BoardText() string { return g.inner.Position().Board().Draw() }

// OpeningName returns the ECO title matching the game so far, if any.
func (g *Game) OpeningName() string {
	book := opening.NewBookECO()
	if book == nil {
		return ""
	}
	if eco := book.Find(g.inner.Moves()); eco != nil {
		return eco.Title()
	}
	return ""
}

// PGN renders the game with commentary as inline comments.
func (g *Game) PGN() string {
	var b strings.Builder
	b.WriteString("[Event \"ChessAlive Match\"]\n")
	b.WriteString(fmt.Sprintf("[Date %q]\n", time.Now().Format("2006.01.02")))
	if g.startFEN != "" {
		b.WriteString("[SetUp \"1\"]\n")
		b.WriteString(fmt.Sprintf("[FEN %q]\n", g.startFEN))
	}
	if name := g.OpeningName(); name != "" {
		b.WriteString(fmt.Sprintf("[Opening %q]\n", name))
	}
	result := outcomeString(g.inner.Outcome())
	b.WriteString(fmt.Sprintf("[Result %q]\n\n", result))

	for i, rec := range g.history {
		if i%2 == 0 {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(fmt.Sprintf("%d.", i/2+1))
		}
		b.WriteString(" ")
		b.WriteString(rec.SAN)
		if c := strings.TrimSpace(rec.Commentary); c != "" {
			b.WriteString(" {")
			b.WriteString(strings.ReplaceAll(c, "}", ")"))
			b.WriteString("}")
		}
	}
	if len(g.history) > 0 {
		b.WriteString(" ")
	}
	b.WriteString(result)
	b.WriteString("\n")
	return b.String()
}

func outcomeString(o nchess.Outcome) string {
	switch o {
	case nchess.WhiteWon:
		return "1-0"
	case nchess.BlackWon:
		return "0-1"
	case nchess.Draw:
		return "1/2-1/2"
	default:
		return "*"
	}
}
