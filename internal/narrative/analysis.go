package narrative

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"chessalive/internal/engine/uci"
	"chessalive/internal/game"
	"chessalive/internal/llm"
	"chessalive/internal/msgcat"
	"chessalive/internal/obslog"
)

// InsightType classifies how a move changed the evaluation.
type InsightType string

const (
	Blunder      InsightType = "blunder"
	Mistake      InsightType = "mistake"
	Inaccuracy   InsightType = "inaccuracy"
	Good         InsightType = "good"
	Excellent    InsightType = "excellent"
	Brilliant    InsightType = "brilliant"
	TurningPoint InsightType = "turning_point"
	MissedWin    InsightType = "missed_win"
	Normal       InsightType = "normal"
)

// Classification thresholds, centipawns from the mover's perspective.
const (
	blunderThreshold    = -200
	mistakeThreshold    = -100
	inaccuracyThreshold = -50
	goodThreshold       = 50
	excellentThreshold  = 100
	brilliantThreshold  = 200

	turningSwing   = 150
	turningEdge    = 50
	missedWinEdge  = 300
	missedWinFloor = 100

	evalClampCP = 10000
)

// ClassifyInsight labels an eval change. Both evals are from White's
// perspective in centipawns; whiteMoved selects the mover's point of view.
func ClassifyInsight(evalBefore, evalAfter int, whiteMoved bool) InsightType {
	swing := evalAfter - evalBefore
	if swing < 0 {
		swing = -swing
	}
	flipped := (evalBefore > turningEdge && evalAfter < -turningEdge) ||
		(evalBefore < -turningEdge && evalAfter > turningEdge)
	if flipped && swing >= turningSwing {
		return TurningPoint
	}

	if abs(evalBefore) > missedWinEdge && abs(evalAfter) < missedWinFloor {
		return MissedWin
	}

	delta := evalAfter - evalBefore
	if !whiteMoved {
		delta = -delta
	}
	switch {
	case delta <= blunderThreshold:
		return Blunder
	case delta <= mistakeThreshold:
		return Mistake
	case delta <= inaccuracyThreshold:
		return Inaccuracy
	case delta >= brilliantThreshold:
		return Brilliant
	case delta >= excellentThreshold:
		return Excellent
	case delta >= goodThreshold:
		return Good
	default:
		return Normal
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// PositionInsight is one annotated moment from the walkthrough.
type PositionInsight struct {
	MoveNumber int
	SAN        string
	Type       InsightType

	EvalBefore int // centipawns, White's perspective
	EvalAfter  int
	EvalDelta  int
	BestMove   string

	PieceName string
	Quote     string

	FENBefore string
	FENAfter  string
}

// GameAnalysis summarizes a full game walkthrough.
type GameAnalysis struct {
	Insights        []PositionInsight
	TotalMoves      int
	Blunders        int
	Mistakes        int
	Inaccuracies    int
	Brilliancies    int
	AverageEvalLoss float64
}

// Analyzer replays a finished game through a pool of engine sessions,
// classifies each move's eval swing and voices the standout moments.
type Analyzer struct {
	pool    *uci.Pool
	client  *llm.Client
	catalog *msgcat.Catalog
	depth   int
	rng     *rand.Rand
}

func NewAnalyzer(binaryPath string, client *llm.Client, catalog *msgcat.Catalog, depth int) (*Analyzer, error) {
	if depth <= 0 {
		depth = 18
	}
	pool, err := uci.NewPool(binaryPath, uci.Options{
		Threads:    2,
		SkillLevel: 20,
		HashMB:     128,
		MultiPV:    1,
	}, 2)
	if err != nil {
		return nil, fmt.Errorf("create analysis pool: %w", err)
	}
	return &Analyzer{
		pool:    pool,
		client:  client,
		catalog: catalog,
		depth:   depth,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (a *Analyzer) Close() error { return a.pool.Close() }

// AnalyzeGame walks the move history, evaluating every position. Moves that
// merely hold the balance are counted but not reported unless includeAll.
func (a *Analyzer) AnalyzeGame(ctx context.Context, g *game.Game, includeAll bool) (*GameAnalysis, error) {
	session, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire analysis session: %w", err)
	}
	var sessionErr error
	defer func() { a.pool.Release(session, sessionErr) }()

	replay, err := newReplay(g.StartFEN())
	if err != nil {
		return nil, err
	}

	analysis := &GameAnalysis{TotalMoves: len(g.History())}

	evalBefore, err := a.evaluate(ctx, session, replay.FEN())
	if err != nil {
		sessionErr = err
		return nil, err
	}

	var totalLoss int
	for i, rec := range g.History() {
		whiteMoved := rec.Piece.Color == nchess.White
		fenBefore := replay.FEN()
		if err := replay.Move(rec.Move, nil); err != nil {
			return nil, fmt.Errorf("replay %s: %w", rec.SAN, err)
		}
		fenAfter := replay.FEN()

		evalAfter, err := a.evaluate(ctx, session, fenAfter)
		if err != nil {
			sessionErr = err
			return nil, err
		}

		bestMove, bestEval, err := a.bestLine(ctx, session, fenBefore)
		if err != nil {
			obslog.L().Warn("best-line probe failed", zap.String("san", rec.SAN), zap.Error(err))
			bestMove, bestEval = "", evalAfter
		}

		kind := ClassifyInsight(evalBefore, evalAfter, whiteMoved)
		switch kind {
		case Blunder:
			analysis.Blunders++
		case Mistake:
			analysis.Mistakes++
		case Inaccuracy:
			analysis.Inaccuracies++
		case Brilliant:
			analysis.Brilliancies++
		}
		totalLoss += abs(bestEval - evalAfter)

		if includeAll || (kind != Normal && kind != Good) {
			insight := PositionInsight{
				MoveNumber: i/2 + 1,
				SAN:        rec.SAN,
				Type:       kind,
				EvalBefore: evalBefore,
				EvalAfter:  evalAfter,
				EvalDelta:  evalAfter - evalBefore,
				BestMove:   bestMove,
				PieceName:  rec.Piece.Personality.Name,
				FENBefore:  fenBefore,
				FENAfter:   fenAfter,
			}
			insight.Quote = a.pieceQuote(ctx, rec, insight)
			analysis.Insights = append(analysis.Insights, insight)
		}

		evalBefore = evalAfter
	}

	if analysis.TotalMoves > 0 {
		analysis.AverageEvalLoss = float64(totalLoss) / float64(analysis.TotalMoves)
	}
	return analysis, nil
}

func newReplay(startFEN string) (*nchess.Game, error) {
	if startFEN == "" {
		return nchess.NewGame(), nil
	}
	option, err := nchess.FEN(startFEN)
	if err != nil {
		return nil, fmt.Errorf("parse start fen: %w", err)
	}
	return nchess.NewGame(option), nil
}

// evaluate returns the position's score in centipawns from White's
// perspective, clamped so mate scores stay comparable.
func (a *Analyzer) evaluate(ctx context.Context, session *uci.Session, fen string) (int, error) {
	resp, err := session.Search(ctx, uci.SearchRequest{
		FEN:    fen,
		Limits: uci.Limits{Depth: a.depth},
	})
	if err != nil {
		return 0, err
	}
	if len(resp.Candidates) == 0 {
		return 0, nil
	}
	cp := clamp(resp.Candidates[0].EvalCP, evalClampCP)
	if sideToMove(fen) == nchess.Black {
		cp = -cp
	}
	return cp, nil
}

func (a *Analyzer) bestLine(ctx context.Context, session *uci.Session, fen string) (string, int, error) {
	resp, err := session.Search(ctx, uci.SearchRequest{
		FEN:    fen,
		Limits: uci.Limits{Depth: a.depth},
	})
	if err != nil {
		return "", 0, err
	}
	if resp.BestMove == "" || resp.BestMove == "(none)" {
		return "", 0, fmt.Errorf("no best move for position")
	}

	fenOpt, err := nchess.FEN(fen)
	if err != nil {
		return "", 0, err
	}
	probe := nchess.NewGame(fenOpt)
	mv, err := nchess.UCINotation{}.Decode(probe.Position(), resp.BestMove)
	if err != nil {
		return "", 0, err
	}
	san := nchess.AlgebraicNotation{}.Encode(probe.Position(), mv)
	if err := probe.Move(mv, nil); err != nil {
		return "", 0, err
	}
	bestEval, err := a.evaluate(ctx, session, probe.FEN())
	if err != nil {
		return "", 0, err
	}
	return san, bestEval, nil
}

func sideToMove(fen string) nchess.Color {
	fields := splitFEN(fen)
	if len(fields) > 1 && fields[1] == "b" {
		return nchess.Black
	}
	return nchess.White
}

func splitFEN(fen string) []string {
	var fields []string
	field := ""
	for _, r := range fen {
		if r == ' ' {
			if field != "" {
				fields = append(fields, field)
				field = ""
			}
			continue
		}
		field += string(r)
	}
	if field != "" {
		fields = append(fields, field)
	}
	return fields
}

func clamp(v, limit int) int {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

var insightContexts = map[InsightType]string{
	Blunder:      "This was a terrible blunder that lost significant material or position.",
	Mistake:      "This was a mistake that weakened our position.",
	Inaccuracy:   "This was a small inaccuracy.",
	Good:         "This was a solid, good move.",
	Excellent:    "This was an excellent move that improved our position significantly.",
	Brilliant:    "This was a brilliant, unexpected move!",
	TurningPoint: "This move changed the course of the game entirely.",
	MissedWin:    "We had a winning position but let it slip away.",
}

// pieceQuote voices the moment through the moving piece, canned line on any
// LLM trouble.
func (a *Analyzer) pieceQuote(ctx context.Context, rec *game.MoveRecord, insight PositionInsight) string {
	p := rec.Piece.Personality
	direction := "worsened"
	if insight.EvalDelta > 0 {
		direction = "improved"
	}
	bestNote := ""
	if insight.BestMove != "" && insight.BestMove != insight.SAN {
		bestNote = fmt.Sprintf("The best move was %s.", insight.BestMove)
	}

	prompt := fmt.Sprintf(`You are %s, a chess piece.

Your personality: %s, speaks in a %s manner.
%s

The move %s was played. %s

Evaluation changed from %.1f to %.1f (%s by %.1f).
%s

Give a brief (1-2 sentences) in-character reaction to this moment. Show emotion appropriate to the situation.`,
		p.Name, p.Archetype, p.SpeakingStyle, p.Backstory,
		insight.SAN, insightContexts[insight.Type],
		float64(insight.EvalBefore)/100, float64(insight.EvalAfter)/100,
		direction, float64(abs(insight.EvalDelta))/100, bestNote)

	text, err := a.client.Complete(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: 0.8,
		MaxTokens:   100,
	})
	if err != nil {
		return a.cannedQuote(insight.Type)
	}
	return text
}

func (a *Analyzer) cannedQuote(kind InsightType) string {
	key := "analysis." + string(kind)
	if kind == Normal {
		key = "analysis.good"
	}
	if a.catalog == nil {
		return "The game continues..."
	}
	text, err := a.catalog.Pick(key, nil)
	if err != nil {
		return "The game continues..."
	}
	return text
}
