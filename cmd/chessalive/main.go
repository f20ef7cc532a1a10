// Command chessalive is the interactive terminal front end: mode menu,
// credential management, live matches with piece commentary, and post-game
// stories, analysis and board snapshots.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	nchess "github.com/corentings/chess/v2"
	"golang.org/x/term"

	"chessalive/internal/boardimg"
	"chessalive/internal/commentary"
	"chessalive/internal/config"
	"chessalive/internal/credentials"
	"chessalive/internal/engine"
	"chessalive/internal/game"
	"chessalive/internal/llm"
	"chessalive/internal/match"
	"chessalive/internal/msgcat"
	"chessalive/internal/narrative"
	"chessalive/internal/obslog"
	"chessalive/internal/player"
)

const banner = `
   _____ _                        _    _ _
  / ____| |                      | |  | (_)
 | |    | |__   ___  ___ ___     | |  | |___   _____
 | |    | '_ \ / _ \/ __/ __|    | |/\| | \ \ / / _ \
 | |____| | | |  __/\__ \__ \    \  /\  / |\ V /  __/
  \_____|_| |_|\___||___/___/     \/  \/|_| \_/ \___|

    Where every piece has a voice!
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chessalive: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := obslog.InitFromEnv(); err != nil {
		return err
	}
	defer func() { _ = obslog.L().Sync() }()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	creds := credentials.NewStore()
	applySavedCredentials(cfg, creds)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "chessalive> ",
		HistoryFile:     os.TempDir() + "/.chessalive_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	app := &cli{rl: rl, cfg: cfg, creds: creds}
	return app.mainLoop(ctx)
}

// applySavedCredentials fills config gaps from the credential store without
// overriding anything the environment set.
func applySavedCredentials(cfg *config.AppConfig, creds *credentials.Store) {
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = creds.LoadAPIKey()
	}
	if os.Getenv("CHESS_LLM_MODEL") == "" {
		if model := creds.LoadModel(); model != "" {
			cfg.LLM.Model = model
		}
	}
	if os.Getenv("CHESS_LLM_PROVIDER") == "" {
		if provider := creds.LoadProvider(); provider == config.ProviderOllama {
			cfg.LLM.Provider = provider
		}
	}
}

type cli struct {
	rl    *readline.Instance
	cfg   *config.AppConfig
	creds *credentials.Store
}

func (c *cli) mainLoop(ctx context.Context) error {
	fmt.Print(banner)
	if c.cfg.LLM.APIKey == "" && c.cfg.LLM.Provider == config.ProviderOpenRouter {
		fmt.Println("Note: OpenRouter API key not set. LLM modes will use fallback moves.")
		fmt.Println("Type 'key' at the menu to set up your API key.")
	}

	for {
		c.printMenu()
		choice, err := c.ask("Select game mode", "1")
		if err != nil {
			return nil
		}
		choice = strings.ToLower(choice)

		switch choice {
		case "quit", "q", "exit":
			fmt.Println("\nThanks for playing ChessAlive!")
			return nil
		case "key":
			c.manageCredentials()
			continue
		case "puzzle", "p":
			c.runPuzzles(ctx)
			continue
		}

		mode, ok := menuMode(choice)
		if !ok {
			fmt.Println("Unknown option.")
			continue
		}

		matchCfg, err := c.configureMatch(mode)
		if err != nil {
			continue
		}
		if err := c.runMatch(ctx, matchCfg); err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Println("\nMatch interrupted")
			} else {
				fmt.Printf("Error: %v\n", err)
			}
		}
		if ctx.Err() != nil {
			return nil
		}

		again, err := c.confirm("\nPlay again?", true)
		if err != nil || !again {
			fmt.Println("\nThanks for playing ChessAlive!")
			return nil
		}
	}
}

func (c *cli) printMenu() {
	fmt.Println("\nGame Modes")
	fmt.Println("  1  pvp       Player vs Player - two humans")
	fmt.Println("  2  pvc       Player vs Computer - human vs Stockfish")
	fmt.Println("  3  cvc       Computer vs Computer - Stockfish vs Stockfish")
	fmt.Println("  4  pvl       Player vs LLM - human vs AI language model")
	fmt.Println("  5  lvl       LLM vs LLM - two AI language models")
	fmt.Println("  6  lvc       LLM vs Computer - AI language model vs Stockfish")
	fmt.Println("  7  teaching  Teaching mode - play with coaching advice")
	fmt.Println("\nType 'puzzle' for narrative puzzles, 'key' to manage the API key, 'quit' to exit")
}

func menuMode(choice string) (match.Mode, bool) {
	numbered := map[string]string{
		"1": "pvp", "2": "pvc", "3": "cvc",
		"4": "pvl", "5": "lvl", "6": "lvc", "7": "teaching",
	}
	if name, ok := numbered[choice]; ok {
		choice = name
	}
	mode, err := match.ParseMode(choice)
	if err != nil {
		return "", false
	}
	return mode, true
}

func (c *cli) configureMatch(mode match.Mode) (match.Config, error) {
	cfg := match.Config{Mode: mode}
	defaults := mode.Defaults()

	fmt.Printf("\nConfiguring %s\n\n", mode.Description())

	var err error
	if defaults.White == player.TypeHuman {
		if cfg.WhiteName, err = c.ask("White player name", "Player 1"); err != nil {
			return cfg, err
		}
	}
	if defaults.Black == player.TypeHuman {
		if cfg.BlackName, err = c.ask("Black player name", "Player 2"); err != nil {
			return cfg, err
		}
	}

	cfg.EnableCommentary, err = c.confirm("Enable piece commentary?", true)
	if err != nil {
		return cfg, err
	}
	if cfg.EnableCommentary {
		freq, err := c.ask("Commentary frequency (every_move/captures_only/key_moments)", string(defaults.CommentaryFrequency))
		if err != nil {
			return cfg, err
		}
		parsed, err := commentary.ParseFrequency(strings.ToLower(freq))
		if err != nil {
			fmt.Printf("%v, using %s\n", err, defaults.CommentaryFrequency)
			parsed = defaults.CommentaryFrequency
		}
		cfg.Frequency = parsed
	}

	if mode.RequiresEngine() {
		preset, err := c.ask("Difficulty (beginner/intermediate/advanced/master or level1-level8)", c.cfg.DefaultPreset)
		if err != nil {
			return cfg, err
		}
		preset = strings.ToLower(preset)
		if _, perr := engine.GetPreset(preset); perr != nil {
			fmt.Printf("%v, using %s\n", perr, c.cfg.DefaultPreset)
			preset = c.cfg.DefaultPreset
		}
		cfg.EnginePreset = preset
	}

	if mode.RequiresLLM() && mode != match.Teaching {
		if defaults.White == player.TypeLLM {
			if cfg.LLMStyleWhite, err = c.askStyle("White LLM style", defaults.LLMStyleWhite); err != nil {
				return cfg, err
			}
		}
		if defaults.Black == player.TypeLLM {
			if cfg.LLMStyleBlack, err = c.askStyle("Black LLM style", defaults.LLMStyleBlack); err != nil {
				return cfg, err
			}
		}
	}

	return cfg, nil
}

func (c *cli) askStyle(prompt, def string) (string, error) {
	if def == "" {
		def = "balanced"
	}
	style, err := c.ask(prompt+" (aggressive/defensive/balanced/creative)", def)
	if err != nil {
		return "", err
	}
	style = strings.ToLower(style)
	switch style {
	case "aggressive", "defensive", "balanced", "creative":
		return style, nil
	default:
		fmt.Printf("Unknown style %q, using %s\n", style, def)
		return def, nil
	}
}

func (c *cli) runMatch(ctx context.Context, matchCfg match.Config) error {
	var m *match.Match
	sink := func(ev match.Event) {
		switch ev.Type {
		case "game_start":
			fmt.Println("\nGame started!")
			fmt.Printf("White: %v\nBlack: %v\n", ev.Data["white"], ev.Data["black"])
		case "move":
			line := fmt.Sprintf("%v plays %v", ev.Data["piece"], ev.Data["move"])
			if captured, ok := ev.Data["captured"]; ok {
				line += fmt.Sprintf(", capturing %v", captured)
			}
			fmt.Println(line)
			if opening, ok := ev.Data["opening"]; ok {
				fmt.Printf("Opening: %v\n", opening)
			}
		case "commentary":
			fmt.Printf("  %v: %q\n", ev.Data["piece"], ev.Data["text"])
		case "advice":
			printAdvice(ev)
		case "resignation":
			fmt.Printf("%v resigns.\n", ev.Data["player"])
		case "game_end":
			fmt.Println("\nGame Over!")
			fmt.Printf("Result: %v\n", ev.Data["result"])
			fmt.Printf("Total moves: %v\n", ev.Data["moves"])
		}
	}
	m = match.New(matchCfg, *c.cfg, sink)
	defer m.Close()

	input := func(prompt string) (string, error) {
		fmt.Println(m.Game().BoardText())
		c.rl.SetPrompt(prompt)
		defer c.rl.SetPrompt("chessalive> ")
		line, err := c.rl.Readline()
		if err == readline.ErrInterrupt {
			return "", io.EOF
		}
		return line, err
	}
	output := func(s string) { fmt.Println(s) }

	if err := m.Setup(input, output); err != nil {
		return err
	}
	if _, err := m.Run(ctx); err != nil {
		return err
	}

	g := m.Game()
	fmt.Println("\nFinal Position:")
	fmt.Println(g.BoardText())

	c.offerPGN(g)
	c.offerBoardImage(ctx, m)
	c.offerStory(ctx, g)
	c.offerAnalysis(ctx, m)
	return nil
}

func printAdvice(ev match.Event) {
	fmt.Printf("\nCoach: %v\n", ev.Data["assessment"])
	candidates, ok := ev.Data["candidates"].([]map[string]any)
	if !ok {
		return
	}
	for i, cand := range candidates {
		fmt.Printf("  %d. %v (%v) - %v\n", i+1, cand["san"], cand["evaluation"], cand["explanation"])
		if resp := cand["response"]; resp != "" {
			fmt.Printf("     Response: %v\n", resp)
		}
		if plan := cand["follow_up"]; plan != "" {
			fmt.Printf("     Plan: %v\n", plan)
		}
	}
	fmt.Println()
}

func matchTitle(m *match.Match) string {
	for _, ev := range m.Events() {
		if ev.Type == "game_start" {
			return fmt.Sprintf("%v vs %v", ev.Data["white"], ev.Data["black"])
		}
	}
	return "ChessAlive"
}

func (c *cli) offerPGN(g *game.Game) {
	save, err := c.confirm("\nSave PGN?", false)
	if err != nil || !save {
		return
	}
	path := fmt.Sprintf("chessalive-%s.pgn", time.Now().Format("20060102-150405"))
	if err := os.WriteFile(path, []byte(g.PGN()), 0o644); err != nil {
		fmt.Printf("Could not save PGN: %v\n", err)
		return
	}
	fmt.Printf("PGN saved to %s\n", path)
}

func (c *cli) offerBoardImage(ctx context.Context, m *match.Match) {
	save, err := c.confirm("Save board image?", false)
	if err != nil || !save {
		return
	}
	g := m.Game()
	opts := boardimg.Options{
		Title:   matchTitle(m),
		Caption: fmt.Sprintf("%s after %d half-moves", resultText(g.Outcome()), len(g.History())),
	}
	if last := g.LastMove(); last != nil {
		opts.Highlight = &boardimg.MoveHighlight{From: last.Move.S1(), To: last.Move.S2()}
	}
	data, err := boardimg.RenderPNG(ctx, g.Position().Board(), opts)
	if err != nil {
		fmt.Printf("Could not render board: %v\n", err)
		return
	}
	path := fmt.Sprintf("chessalive-%s.png", time.Now().Format("20060102-150405"))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Printf("Could not save image: %v\n", err)
		return
	}
	fmt.Printf("Board image saved to %s\n", path)
}

func resultText(outcome nchess.Outcome) string {
	switch outcome {
	case nchess.WhiteWon:
		return "White wins"
	case nchess.BlackWon:
		return "Black wins"
	case nchess.Draw:
		return "Draw"
	default:
		return "Unfinished"
	}
}

func (c *cli) offerStory(ctx context.Context, g *game.Game) {
	want, err := c.confirm("Generate a game story?", false)
	if err != nil || !want {
		return
	}

	styleName, err := c.ask("Narrator (chronicler/gumshoe/play_by_play/nature/comedy)", "chronicler")
	if err != nil {
		return
	}
	style, serr := narrative.ParseNarratorStyle(strings.ToLower(styleName))
	if serr != nil {
		fmt.Printf("%v, using chronicler\n", serr)
		style = narrative.Chronicler
	}

	formatName, err := c.ask("Format (tweet/short/epic)", "tweet")
	if err != nil {
		return
	}
	format := narrative.StoryFormat(strings.ToLower(formatName))
	switch format {
	case narrative.Tweet, narrative.ShortStory, narrative.Epic:
	default:
		format = narrative.Tweet
	}

	catalog, cerr := msgcat.New("")
	if cerr != nil {
		fmt.Printf("Could not load messages: %v\n", cerr)
		return
	}
	gen := narrative.NewStoryGenerator(llm.NewClient(c.cfg.LLM), catalog)
	streamed := 0
	if format != narrative.Tweet {
		gen.StreamTo(func(chunk string) {
			if streamed == 0 {
				fmt.Println()
			}
			streamed++
			fmt.Print(chunk)
		})
	}
	story, gerr := gen.Generate(ctx, g, format, style)
	if gerr != nil {
		fmt.Printf("Story generation failed: %v\n", gerr)
		return
	}
	if streamed > 0 {
		fmt.Println()
		if story.Title != "" {
			fmt.Printf("\n== %s ==\n", story.Title)
		}
		return
	}
	if story.Title != "" {
		fmt.Printf("\n== %s ==\n", story.Title)
	}
	fmt.Printf("\n%s\n", story.Content)
}

func (c *cli) offerAnalysis(ctx context.Context, m *match.Match) {
	want, err := c.confirm("Run post-game analysis?", false)
	if err != nil || !want {
		return
	}
	binary := engine.LocateStockfish(c.cfg.Engine.Path)
	if binary == "" {
		fmt.Println("Analysis needs Stockfish; install it or set STOCKFISH_PATH.")
		return
	}
	catalog, err := msgcat.New("")
	if err != nil {
		fmt.Printf("Could not load messages: %v\n", err)
		return
	}

	analyzer, err := narrative.NewAnalyzer(binary, llm.NewClient(c.cfg.LLM), catalog, c.cfg.Engine.Depth)
	if err != nil {
		fmt.Printf("Could not start analyzer: %v\n", err)
		return
	}
	defer analyzer.Close()

	fmt.Println("Analyzing the game, this can take a moment...")
	analysis, err := analyzer.AnalyzeGame(ctx, m.Game(), false)
	if err != nil {
		fmt.Printf("Analysis failed: %v\n", err)
		return
	}

	fmt.Printf("\nAnalysis of %d half-moves:\n", analysis.TotalMoves)
	fmt.Printf("  Blunders: %d  Mistakes: %d  Inaccuracies: %d  Brilliancies: %d\n",
		analysis.Blunders, analysis.Mistakes, analysis.Inaccuracies, analysis.Brilliancies)
	fmt.Printf("  Average eval loss: %.0f centipawns\n\n", analysis.AverageEvalLoss)

	for _, insight := range analysis.Insights {
		fmt.Printf("Move %d: %s [%s] eval %+.2f -> %+.2f\n",
			insight.MoveNumber, insight.SAN, insight.Type,
			float64(insight.EvalBefore)/100, float64(insight.EvalAfter)/100)
		if insight.BestMove != "" && insight.BestMove != insight.SAN {
			fmt.Printf("  Better was %s\n", insight.BestMove)
		}
		if insight.Quote != "" {
			fmt.Printf("  %s: %q\n", insight.PieceName, insight.Quote)
		}
	}
}

func (c *cli) runPuzzles(ctx context.Context) {
	puzzles := narrative.NewPuzzleEngine()

	flavorName, err := c.ask("Flavor (kingdom_siege/case_files/championship/haunted_board/nature_documentary)", "kingdom_siege")
	if err != nil {
		return
	}
	flavor := narrative.PuzzleFlavor(strings.ToLower(flavorName))

	puzzle := puzzles.RandomPuzzle(flavor, 0, 0)
	board, err := puzzles.StartPuzzle(puzzle)
	if err != nil {
		fmt.Printf("Could not start puzzle: %v\n", err)
		return
	}

	fmt.Printf("\n== %s == (%s, %s)\n\n", puzzle.Title, puzzle.Theme, narrative.DifficultyLabel(puzzle.Difficulty))
	fmt.Println(puzzle.SetupText)
	fmt.Println(board.Position().Board().Draw())

	for !puzzle.Solved {
		if ctx.Err() != nil {
			return
		}
		line, err := c.ask("Your move (or 'hint'/'give up')", "")
		if err != nil {
			return
		}
		switch strings.ToLower(line) {
		case "":
			continue
		case "hint":
			fmt.Println(puzzles.Hint())
			continue
		case "give up", "quit", "q":
			fmt.Printf("The line was: %s\n", strings.Join(puzzle.Solution, " "))
			return
		}

		result, err := puzzles.AttemptMove(line)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Println(result.Message)
		if result.NarratorQuote != "" {
			fmt.Println(result.NarratorQuote)
		}
	}
}

func (c *cli) manageCredentials() {
	fmt.Println("\nAPI Key Management")
	c.printKeyStatus()

	action, err := c.ask("Action (set/show/clear/back)", "back")
	if err != nil {
		return
	}
	switch strings.ToLower(action) {
	case "set":
		c.setAPIKey()
	case "show":
		c.showAPIKey()
	case "clear":
		c.clearAPIKey()
	}
}

func (c *cli) printKeyStatus() {
	if c.cfg.LLM.APIKey != "" {
		fmt.Printf("API Key: %s\n", credentials.MaskKey(c.cfg.LLM.APIKey))
		fmt.Printf("Model:   %s\n", c.cfg.LLM.Model)
	} else {
		fmt.Println("API Key: not configured")
	}
}

func (c *cli) setAPIKey() {
	fmt.Println("\nGet a free key at https://openrouter.ai/keys")
	fmt.Print("Enter your OpenRouter API key (input hidden): ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Printf("Could not read key: %v\n", err)
		return
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		fmt.Println("No key entered.")
		return
	}

	model, err := c.ask("LLM model", c.cfg.LLM.Model)
	if err != nil {
		return
	}

	path, err := c.creds.Save(key, model, c.cfg.LLM.Provider)
	if err != nil {
		fmt.Printf("Could not save key: %v\n", err)
		return
	}
	fmt.Printf("Key saved to %s\n", path)
	fmt.Println("File permissions restricted to owner only.")

	c.cfg.LLM.APIKey = key
	c.cfg.LLM.Model = model
	c.printKeyStatus()
}

func (c *cli) showAPIKey() {
	saved := c.creds.LoadAPIKey()
	if saved != "" {
		fmt.Printf("\nSaved key: %s\n", credentials.MaskKey(saved))
	} else {
		fmt.Println("\nNo saved key found.")
	}
	if c.cfg.LLM.APIKey != "" {
		fmt.Printf("Active key: %s\n", credentials.MaskKey(c.cfg.LLM.APIKey))
		source := "environment variable"
		if saved == c.cfg.LLM.APIKey {
			source = "saved credentials"
		}
		fmt.Printf("Source: %s\n", source)
	} else {
		fmt.Println("No active key configured.")
	}
}

func (c *cli) clearAPIKey() {
	if !c.creds.HasSavedKey() {
		fmt.Println("No saved key to clear.")
		return
	}
	confirmed, err := c.confirm("Remove saved API key?", false)
	if err != nil || !confirmed {
		return
	}
	if _, err := c.creds.Clear(); err != nil {
		fmt.Printf("Could not clear key: %v\n", err)
		return
	}
	fmt.Println("Saved key removed.")
	if c.creds.LoadAPIKey() == "" && os.Getenv("OPENROUTER_API_KEY") == "" && os.Getenv("OPENAI_API_KEY") == "" {
		c.cfg.LLM.APIKey = ""
	}
}

func (c *cli) ask(prompt, def string) (string, error) {
	if def != "" {
		c.rl.SetPrompt(fmt.Sprintf("%s [%s]: ", prompt, def))
	} else {
		c.rl.SetPrompt(prompt + ": ")
	}
	defer c.rl.SetPrompt("chessalive> ")

	line, err := c.rl.Readline()
	if err == readline.ErrInterrupt || err == io.EOF {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (c *cli) confirm(prompt string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	answer, err := c.ask(fmt.Sprintf("%s (%s)", prompt, hint), "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	case "":
		return def, nil
	default:
		return def, nil
	}
}
