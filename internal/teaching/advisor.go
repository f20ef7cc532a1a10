package teaching

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"chessalive/internal/config"
	"chessalive/internal/engine"
	"chessalive/internal/engine/uci"
	"chessalive/internal/game"
	"chessalive/internal/llm"
	"chessalive/internal/obslog"
)

const (
	numCandidates   = 3
	analysisDepth   = 15
	responseDepth   = 10
	maxFallbackText = 200
)

// CandidateMove is one coached suggestion: the move, its engine evaluation
// and the explanation triple the coach produces for it.
type CandidateMove struct {
	SAN            string
	Evaluation     string // "+0.50", "-1.20", "Mate in 3"
	Explanation    string
	LikelyResponse string
	FollowUpPlan   string
}

// Advice is the full coaching output for one position.
type Advice struct {
	PositionAssessment string
	Candidates         []CandidateMove
	PlayerColor        nchess.Color
	MoveNumber         int
	GeneratedAt        time.Time
}

// Advisor pairs Stockfish multi-line analysis with LLM explanations. For each
// of the top candidate moves it evaluates the line, probes the opponent's
// expected reply, and asks the LLM to explain move, reply and plan. Without a
// usable LLM it still returns mechanical advice built from engine data alone;
// without an engine it returns an error.
type Advisor struct {
	client *llm.Client
	engine *engine.Engine
}

func NewAdvisor(client *llm.Client, cfg config.EngineConfig) *Advisor {
	threads := cfg.Threads
	if threads <= 0 {
		threads = 2
	}
	hash := cfg.HashMB
	if hash <= 0 {
		hash = 128
	}
	return &Advisor{
		client: client,
		engine: engine.New(cfg.Path, uci.Options{
			Threads:    threads,
			SkillLevel: 20,
			HashMB:     hash,
			MultiPV:    numCandidates,
		}),
	}
}

func (a *Advisor) Close() error {
	return a.engine.Close()
}

type moveData struct {
	san     string
	eval    string
	uciMove string
	oppSAN  string
	mate    bool
}

// Analyze produces coaching advice for the side to move.
func (a *Advisor) Analyze(ctx context.Context, g *game.Game) (*Advice, error) {
	fen := g.FEN()
	player := g.Turn()

	depth := analysisDepth
	candidates, err := a.engine.Analyze(ctx, fen, nil, uci.Limits{Depth: depth})
	if err != nil {
		return nil, fmt.Errorf("analyze position: %w", err)
	}
	if len(candidates) > numCandidates {
		candidates = candidates[:numCandidates]
	}

	data := make([]moveData, 0, len(candidates))
	for _, cand := range candidates {
		md, err := a.describeCandidate(ctx, fen, player, cand)
		if err != nil {
			obslog.L().Warn("skipping unusable candidate",
				zap.String("move", cand.Move), zap.Error(err))
			continue
		}
		data = append(data, md)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no usable candidate moves for position")
	}

	advice, err := a.generateLLMAdvice(ctx, g, data, player)
	if err != nil {
		obslog.L().Warn("teaching advice fell back to engine data", zap.Error(err))
		advice = a.mechanicalAdvice(g, data, player)
	}
	return advice, nil
}

// describeCandidate converts a raw engine candidate into SAN, a formatted
// evaluation and the opponent's probable SAN reply.
func (a *Advisor) describeCandidate(ctx context.Context, fen string, player nchess.Color, cand uci.Candidate) (moveData, error) {
	fenOpt, err := nchess.FEN(fen)
	if err != nil {
		return moveData{}, fmt.Errorf("parse fen: %w", err)
	}
	probe := nchess.NewGame(fenOpt)

	mv, err := nchess.UCINotation{}.Decode(probe.Position(), cand.Move)
	if err != nil {
		return moveData{}, fmt.Errorf("decode %s: %w", cand.Move, err)
	}
	san := nchess.AlgebraicNotation{}.Encode(probe.Position(), mv)
	if err := probe.Move(mv, nil); err != nil {
		return moveData{}, fmt.Errorf("apply %s: %w", cand.Move, err)
	}

	md := moveData{
		san:     san,
		eval:    formatScore(cand.EvalCP, cand.Mate, player, player),
		uciMove: cand.Move,
		mate:    cand.Mate != 0,
	}

	if probe.Outcome() != nchess.NoOutcome {
		return md, nil
	}

	replyUCI, err := a.engine.BestMove(ctx, fen, []string{cand.Move}, uci.Limits{Depth: responseDepth})
	if err != nil {
		// A dead engine mid-advice still yields the candidate itself.
		return md, nil
	}
	replyMove, err := nchess.UCINotation{}.Decode(probe.Position(), replyUCI)
	if err != nil {
		return md, nil
	}
	md.oppSAN = nchess.AlgebraicNotation{}.Encode(probe.Position(), replyMove)
	return md, nil
}

// formatScore renders an engine score from the player's perspective.
// scoreColor is the side the raw score favors when positive.
func formatScore(evalCP, mate int, scoreColor, player nchess.Color) string {
	if scoreColor != player {
		evalCP = -evalCP
		mate = -mate
	}
	if mate > 0 {
		return fmt.Sprintf("Mate in %d", mate)
	}
	if mate < 0 {
		return fmt.Sprintf("Opponent mates in %d", -mate)
	}
	pawns := float64(evalCP) / 100.0
	if pawns >= 0 {
		return fmt.Sprintf("+%.2f", pawns)
	}
	return fmt.Sprintf("%.2f", pawns)
}

const coachSystemPrompt = "You are a patient, knowledgeable chess coach. " +
	"Give clear, educational explanations to help players understand " +
	"tactical and strategic reasons behind moves. Be concise."

func buildPrompt(g *game.Game, data []moveData, player nchess.Color) string {
	var moveLines []string
	for i, md := range data {
		oppPart := ""
		if md.oppSAN != "" {
			oppPart = fmt.Sprintf(", opponent may respond: %s", md.oppSAN)
		}
		moveLines = append(moveLines, fmt.Sprintf("%d. %s (eval: %s%s)", i+1, md.san, md.eval, oppPart))
	}

	inCheck := ""
	if g.InCheck() {
		inCheck = " - currently in check"
	}

	var sections []string
	for _, md := range data {
		sections = append(sections, fmt.Sprintf("MOVE (%s):\n"+
			"- Why: [1 sentence tactical/strategic reason]\n"+
			"- Response: [opponent's likely reply and why]\n"+
			"- Follow-up: [player's next strategic goal]", md.san))
	}

	return fmt.Sprintf(`You are a chess coach giving concise guidance to a student.

Position (FEN): %s
Player's color: %s
Move number: %d%s

Stockfish's top candidate moves:
%s

Provide coaching advice in exactly this format (keep each section to 1-2 sentences):

POSITION: [Brief assessment of the position]

%s`,
		g.FEN(), colorName(player), g.FullmoveNumber(), inCheck,
		strings.Join(moveLines, "\n"), strings.Join(sections, "\n\n"))
}

func (a *Advisor) generateLLMAdvice(ctx context.Context, g *game.Game, data []moveData, player nchess.Color) (*Advice, error) {
	text, err := a.client.Complete(ctx, llm.Request{
		Prompt:      buildPrompt(g, data, player),
		System:      coachSystemPrompt,
		Temperature: 0.3,
		MaxTokens:   600,
	})
	if err != nil {
		return nil, err
	}
	return parseResponse(text, data, player, g.FullmoveNumber()), nil
}

var sanInParens = regexp.MustCompile(`\(([^)]+)\)`)

// parseResponse turns the coach's line-prefixed reply into structured advice.
// An off-format reply degrades to the raw text attached to the first
// candidate rather than an error.
func parseResponse(response string, data []moveData, player nchess.Color, moveNumber int) *Advice {
	advice := &Advice{
		PlayerColor: player,
		MoveNumber:  moveNumber,
		GeneratedAt: time.Now(),
	}

	var cur CandidateMove
	flush := func() {
		if cur.SAN != "" {
			advice.Candidates = append(advice.Candidates, cur)
		}
		cur = CandidateMove{}
	}

	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "POSITION:"):
			advice.PositionAssessment = strings.TrimSpace(line[len("POSITION:"):])
		case strings.HasPrefix(upper, "MOVE"):
			flush()
			if m := sanInParens.FindStringSubmatch(line); m != nil {
				cur.SAN = m[1]
				cur.Evaluation = "?"
				for _, md := range data {
					if md.san == cur.SAN {
						cur.Evaluation = md.eval
						break
					}
				}
			}
		case strings.HasPrefix(line, "- Why:"):
			cur.Explanation = strings.TrimSpace(line[len("- Why:"):])
		case strings.HasPrefix(line, "- Response:"):
			cur.LikelyResponse = strings.TrimSpace(line[len("- Response:"):])
		case strings.HasPrefix(line, "- Follow-up:"):
			cur.FollowUpPlan = strings.TrimSpace(line[len("- Follow-up:"):])
		}
	}
	flush()

	if len(advice.Candidates) == 0 {
		for i, md := range data {
			c := CandidateMove{SAN: md.san, Evaluation: md.eval}
			if i == 0 {
				c.Explanation = truncate(strings.TrimSpace(response), maxFallbackText)
			}
			advice.Candidates = append(advice.Candidates, c)
		}
	}
	if advice.PositionAssessment == "" {
		firstLine := strings.TrimSpace(response)
		if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
			firstLine = firstLine[:idx]
		}
		advice.PositionAssessment = truncate(firstLine, maxFallbackText)
	}
	return advice
}

// mechanicalAdvice builds advice from engine data alone.
func (a *Advisor) mechanicalAdvice(g *game.Game, data []moveData, player nchess.Color) *Advice {
	advice := &Advice{
		PlayerColor: player,
		MoveNumber:  g.FullmoveNumber(),
		GeneratedAt: time.Now(),
	}
	if g.InCheck() {
		advice.PositionAssessment = "You are in check - prioritize escaping."
	} else {
		advice.PositionAssessment = "Develop your pieces and contest the center."
	}
	for _, md := range data {
		response := "No immediate forced response."
		if md.oppSAN != "" {
			response = fmt.Sprintf("Opponent may play %s.", md.oppSAN)
		}
		advice.Candidates = append(advice.Candidates, CandidateMove{
			SAN:            md.san,
			Evaluation:     md.eval,
			Explanation:    "Stockfish's recommended move.",
			LikelyResponse: response,
			FollowUpPlan:   "Continue developing pieces and controlling the center.",
		})
	}
	return advice
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func colorName(c nchess.Color) string {
	if c == nchess.White {
		return "White"
	}
	return "Black"
}
