package narrative

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

// StoryFormat selects the output length.
type StoryFormat string

const (
	Tweet      StoryFormat = "tweet" // 280 chars max
	ShortStory StoryFormat = "short" // 3-4 paragraphs
	Epic       StoryFormat = "epic"  // full narrative
)

// NarratorStyle selects the narrator voice.
type NarratorStyle string

const (
	Chronicler NarratorStyle = "chronicler"   // epic fantasy
	Gumshoe    NarratorStyle = "gumshoe"      // noir
	PlayByPlay NarratorStyle = "play_by_play" // sports
	Nature     NarratorStyle = "nature"       // documentary
	Comedy     NarratorStyle = "comedy"       // satirical
)

type narrator struct {
	Name         string
	Title        string
	Voice        string
	Tone         string
	OpeningStyle string
	HowYouQuote  string
	Vocabulary   []string
	Example      string
}

var narrators = map[NarratorStyle]narrator{
	Chronicler: {
		Name:         "The Chronicler",
		Title:        "Keeper of the Sixty-Four Squares",
		Voice:        "You speak with ancient reverence, as one who has witnessed a thousand battles. Your words flow like an old saga, rich with destiny and portent.",
		Tone:         "Epic, sweeping, mythological. You see chess as eternal warfare between Light and Shadow.",
		OpeningStyle: "Begin with cosmic scope - the eternal struggle, the weight of history",
		HowYouQuote:  "Treat piece quotes as prophecy fulfilled, words spoken before destiny struck",
		Vocabulary:   []string{"valiant", "realm", "destiny", "fate", "glory", "shadow", "sovereign", "fell", "ancient", "eternal"},
		Example:      "In the age before memory, when the Sixty-Four Squares were young, two kingdoms arose: one of blazing Light, one of creeping Shadow. And so it was written that they would clash, as they always have, as they always shall...",
	},
	Gumshoe: {
		Name:         "The Gumshoe",
		Title:        "Private Eye, 64th Precinct",
		Voice:        "You're a world-weary detective narrating a case. Everything's a setup, everyone's got an angle. You've seen it all on this board.",
		Tone:         "Noir, cynical, punchy sentences. Chess is crime: captures are hits, the king is the mark.",
		OpeningStyle: "Start with the ending or a body (captured piece). Work backwards.",
		HowYouQuote:  "Piece quotes are witness testimony, last words, or threats you overheard",
		Vocabulary:   []string{"dame", "patsy", "setup", "fall guy", "clean", "dirty", "angle", "the take", "heat", "score"},
		Example:      "The Queen was dead. Cornered on h7 with nowhere to run. I'd seen it coming for twelve moves, the way the Knight kept circling, the Bishop lurking on that long diagonal. In this game, everybody's got a price. Hers just came due.",
	},
	PlayByPlay: {
		Name:         "The Announcer",
		Title:        "Voice of the Championship",
		Voice:        "You're calling the biggest match of the century! Every move is electric. The crowd is on their feet. This is HISTORY!",
		Tone:         "Breathless excitement, dramatic pauses, incredible energy. Chess is the ultimate sport.",
		OpeningStyle: "Set the stakes: championship, rivalry, everything on the line",
		HowYouQuote:  "Piece quotes are player interviews, trash talk, victory speeches",
		Vocabulary:   []string{"INCREDIBLE", "stunning", "unbelievable", "clutch", "MVP", "upset", "dynasty", "legacy", "championship"},
		Example:      "LADIES AND GENTLEMEN, WE ARE WITNESSING HISTORY! The Knight, SIR GALAHAD, has just executed the most AUDACIOUS fork this commentator has EVER seen! The crowd is going ABSOLUTELY WILD!",
	},
	Nature: {
		Name:         "The Naturalist",
		Title:        "Sir David Attenborough of Chess",
		Voice:        "You observe the chess pieces as magnificent creatures in their natural habitat. Every move is behavior, every capture is the food chain.",
		Tone:         "Gentle wonder, scientific curiosity, profound respect for nature's brutality",
		OpeningStyle: "Set the scene of the habitat: the board as ecosystem",
		HowYouQuote:  "Piece quotes are the inner thoughts of creatures, instincts given voice",
		Vocabulary:   []string{"observe", "remarkable", "specimen", "habitat", "instinct", "prey", "apex predator", "territory", "migration"},
		Example:      "Here, on the vast savanna of sixty-four squares, we observe a remarkable specimen: the Knight. Watch how it moves in its distinctive L-shaped pattern, an adaptation that has puzzled naturalists for centuries. It approaches the enemy Pawn... and strikes.",
	},
	Comedy: {
		Name:         "The Bumbler",
		Title:        "Guy Who Just Learned Chess Yesterday",
		Voice:        "You're enthusiastically narrating despite having NO IDEA what's happening. You get piece names wrong, misunderstand rules, but your heart is in it.",
		Tone:         "Confused but committed, accidentally profound, hilariously wrong",
		OpeningStyle: "Confidently misstate the situation",
		HowYouQuote:  "Piece quotes confuse you further... why are they talking?!",
		Vocabulary:   []string{"horsey", "pointy hat guy", "castle thingy", "the big one", "somehow", "apparently", "I think?", "wait what"},
		Example:      "Okay so the horsey just... jumped? Over the other guys? Is that legal?? And now the pointy hat man is threatening the... okay I'm being told that's a 'Bishop' and apparently he's been 'controlling the diagonal' this whole time. Sure. Sure!",
	},
}

// ParseNarratorStyle resolves a user-typed narrator name.
func ParseNarratorStyle(s string) (NarratorStyle, error) {
	style := NarratorStyle(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := narrators[style]; !ok {
		return "", fmt.Errorf("unknown narrator style: %s", s)
	}
	return style, nil
}

// AllNarratorStyles lists the styles in menu order.
func AllNarratorStyles() []NarratorStyle {
	return []NarratorStyle{Chronicler, Gumshoe, PlayByPlay, Nature, Comedy}
}

// GameStory is a generated recap.
type GameStory struct {
	Format   StoryFormat
	Narrator NarratorStyle
	Title    string
	Content  string
}

// gameMoment is one history entry enriched with persona data.
type gameMoment struct {
	MoveNumber  int
	SAN         string
	PieceName   string
	Personality game.PiecePersonality
	Color       nchess.Color
	Kind        string // move, capture, check, checkmate, castling, promotion
	Captured    string
	CapturedPer game.PiecePersonality
}

// StoryGenerator turns a finished game into a narrated story. With no usable
// LLM it falls back to templated recap text.
type StoryGenerator struct {
	client  *llm.Client
	catalog *msgcat.Catalog
	sink    func(chunk string)
}

func NewStoryGenerator(client *llm.Client, catalog *msgcat.Catalog) *StoryGenerator {
	return &StoryGenerator{client: client, catalog: catalog}
}

// StreamTo forwards story body text chunk by chunk as the LLM produces it.
// Tweets, titles and fallback text are never streamed.
func (s *StoryGenerator) StreamTo(fn func(chunk string)) { s.sink = fn }

func (s *StoryGenerator) completeBody(ctx context.Context, req llm.Request) (string, error) {
	if s.sink != nil {
		return s.client.CompleteStream(ctx, req, s.sink)
	}
	return s.client.Complete(ctx, req)
}

// Generate produces a story in the requested format and narrator voice.
func (s *StoryGenerator) Generate(ctx context.Context, g *game.Game, format StoryFormat, style NarratorStyle) (*GameStory, error) {
	if _, ok := narrators[style]; !ok {
		style = Chronicler
	}
	if format == Tweet {
		return s.generateTweet(ctx, g, style)
	}
	return s.generateShortStory(ctx, g, format, style)
}

func extractMoments(g *game.Game) []gameMoment {
	var moments []gameMoment
	for i, rec := range g.History() {
		m := gameMoment{
			MoveNumber:  i/2 + 1,
			SAN:         rec.SAN,
			PieceName:   rec.Piece.Personality.Name,
			Personality: rec.Piece.Personality,
			Color:       rec.Piece.Color,
			Kind:        "move",
		}
		switch {
		case rec.Captured != nil:
			m.Kind = "capture"
			m.Captured = rec.Captured.Personality.Name
			m.CapturedPer = rec.Captured.Personality
		case rec.IsCheckmate:
			m.Kind = "checkmate"
		case rec.IsCheck:
			m.Kind = "check"
		case rec.IsCastling:
			m.Kind = "castling"
		case rec.IsPromotion:
			m.Kind = "promotion"
		}
		moments = append(moments, m)
	}
	return moments
}

func buildGameNarrative(moments []gameMoment) string {
	var lines []string
	for _, m := range moments {
		switch m.Kind {
		case "capture":
			lines = append(lines, fmt.Sprintf("Move %d: %s (%s) captures %s with %s!",
				m.MoveNumber, m.PieceName, colorName(m.Color), m.Captured, m.SAN))
		case "check":
			lines = append(lines, fmt.Sprintf("Move %d: %s delivers CHECK with %s!", m.MoveNumber, m.PieceName, m.SAN))
		case "checkmate":
			lines = append(lines, fmt.Sprintf("Move %d: %s delivers CHECKMATE with %s!", m.MoveNumber, m.PieceName, m.SAN))
		case "castling":
			lines = append(lines, fmt.Sprintf("Move %d: The King retreats to safety with %s!", m.MoveNumber, m.SAN))
		case "promotion":
			lines = append(lines, fmt.Sprintf("Move %d: A humble pawn achieves glory with %s!", m.MoveNumber, m.SAN))
		}
	}
	if len(lines) == 0 && len(moments) > 0 {
		lines = append(lines, "The opening moves set the stage:")
		limit := len(moments)
		if limit > 4 {
			limit = 4
		}
		for _, m := range moments[:limit] {
			lines = append(lines, fmt.Sprintf("  %s plays %s", m.PieceName, m.SAN))
		}
	}
	return strings.Join(lines, "\n")
}

func narratorSystemPrompt(style NarratorStyle) string {
	n := narrators[style]
	return fmt.Sprintf(`You are %s, %s.

YOUR VOICE:
%s

YOUR TONE:
%s

HOW YOU BEGIN STORIES:
%s

HOW YOU USE CHARACTER QUOTES:
%s

WORDS YOU FAVOR: %s

EXAMPLE OF YOUR STYLE:
"%s"

CRITICAL RULES:
1. NEVER break character or mention being an AI
2. NEVER use generic chess commentary; make it YOUR style
3. Every line should drip with your personality
4. Piece names are CHARACTER names (King Aldric, Queen Nyx, Sir Galahad, etc.)
5. This is DRAMA, not a game recap`,
		n.Name, n.Title, n.Voice, n.Tone, n.OpeningStyle, n.HowYouQuote,
		strings.Join(n.Vocabulary, ", "), n.Example)
}

func resultName(g *game.Game) string {
	switch g.Outcome() {
	case nchess.WhiteWon:
		return "WHITE_WINS"
	case nchess.BlackWon:
		return "BLACK_WINS"
	case nchess.Draw:
		return "DRAW"
	default:
		return "IN_PROGRESS"
	}
}

func (s *StoryGenerator) generateTweet(ctx context.Context, g *game.Game, style NarratorStyle) (*GameStory, error) {
	moments := extractMoments(g)

	var drama []string
	var key []gameMoment
	for _, m := range moments {
		if m.Kind != "move" {
			key = append(key, m)
		}
	}
	start := 0
	if len(key) > 3 {
		start = len(key) - 3
	}
	for _, m := range key[start:] {
		switch m.Kind {
		case "capture":
			drama = append(drama, fmt.Sprintf("%s slew %s", m.PieceName, m.Captured))
		case "checkmate":
			drama = append(drama, fmt.Sprintf("%s delivered the killing blow", m.PieceName))
		case "check":
			drama = append(drama, fmt.Sprintf("%s threatened the enemy king", m.PieceName))
		}
	}
	dramaText := "Tension building..."
	if len(drama) > 0 {
		dramaText = strings.Join(drama, "; ")
	}

	var featured *gameMoment
	for i := len(moments) - 1; i >= 0; i-- {
		if k := moments[i].Kind; k == "capture" || k == "check" || k == "checkmate" {
			featured = &moments[i]
			break
		}
	}
	if featured == nil && len(moments) > 0 {
		featured = &moments[len(moments)-1]
	}
	featuredText := "The armies face off."
	quoteAsk := ""
	if featured != nil {
		featuredText = fmt.Sprintf("**%s** - %s, speaks %s. %s",
			featured.PieceName, featured.Personality.Archetype,
			featured.Personality.SpeakingStyle, featured.Personality.Backstory)
		quoteAsk = fmt.Sprintf("Give %s a short quote in their voice!", featured.PieceName)
	}

	prompt := fmt.Sprintf(`Write a TWEET (max 280 characters) about this chess battle.

THE BATTLE:
- Moves played: %d
- Result: %s
- Key drama: %s

FEATURED CHARACTER:
%s

%s

REQUIREMENTS:
- MAXIMUM 280 characters (count carefully!)
- End with #ChessAlive
- Make it DRAMATIC in your narrator voice
- Include a character quote if possible

Write ONLY the tweet, nothing else.`,
		len(moments), resultName(g), dramaText, featuredText, quoteAsk)

	content, err := s.client.Complete(ctx, llm.Request{
		Prompt:      prompt,
		System:      narratorSystemPrompt(style),
		Temperature: 0.9,
		MaxTokens:   150,
	})
	if err != nil {
		obslog.L().Warn("tweet generation fell back to template", zap.Error(err))
		content = s.cannedStory(g, "story.tweet")
	}

	content = strings.Trim(strings.TrimSpace(content), `"`)
	if len(content) > 280 {
		if idx := strings.LastIndex(content[:277], ". "); idx > 0 {
			content = content[:idx+1]
		} else {
			content = content[:277] + "..."
		}
	}

	return &GameStory{Format: Tweet, Narrator: style, Content: content}, nil
}

func (s *StoryGenerator) generateShortStory(ctx context.Context, g *game.Game, format StoryFormat, style NarratorStyle) (*GameStory, error) {
	moments := extractMoments(g)

	type character struct {
		name        string
		personality game.PiecePersonality
		color       nchess.Color
		fellTo      string
	}
	var roster []*character
	seen := map[string]*character{}
	add := func(name string, p game.PiecePersonality, c nchess.Color) *character {
		key := fmt.Sprintf("%s|%s", name, colorName(c))
		if ch, ok := seen[key]; ok {
			return ch
		}
		ch := &character{name: name, personality: p, color: c}
		seen[key] = ch
		roster = append(roster, ch)
		return ch
	}
	for _, m := range moments {
		add(m.PieceName, m.Personality, m.Color)
		if m.Captured != "" {
			victim := add(m.Captured, m.CapturedPer, m.Color.Other())
			if victim.fellTo == "" {
				victim.fellTo = m.PieceName
			}
		}
	}

	var descriptions []string
	for i, ch := range roster {
		if i >= 6 {
			break
		}
		desc := fmt.Sprintf("**%s** (%s): %s. Speaks %s.",
			ch.name, colorName(ch.color), ch.personality.Archetype, ch.personality.SpeakingStyle)
		if ch.fellTo != "" {
			desc += fmt.Sprintf(" [CAPTURED by %s]", ch.fellTo)
		}
		descriptions = append(descriptions, desc)
	}

	prompt := fmt.Sprintf(`Write a SHORT STORY (3-4 paragraphs) about this chess battle.

CHARACTERS IN THIS BATTLE:
%s

WHAT HAPPENED:
%s

RESULT: %s after %d moves

STORY REQUIREMENTS:
1. Opening paragraph: Set the scene in YOUR narrator voice. Introduce the tension.
2. Middle: The battle unfolds. Give key characters DIALOGUE in their voice.
3. Climax: The decisive moment. Make it DRAMATIC.
4. Resolution: The aftermath. What does it mean?

CHARACTER VOICE EXAMPLES:
- King Aldric (wise ruler): "For the realm, we must hold."
- Queen Nyx (shadow assassin): "You dare challenge me? How... amusing."
- Sir Galahad (chivalrous): "For honor! For glory!"
- The Black Rider (fearsome): "Chaos rides with me!"

Write the story. Include at least 3 character quotes. Make it VIVID.`,
		strings.Join(descriptions, "\n"), buildGameNarrative(moments), resultName(g), len(moments))

	maxTokens := 1000
	if format == Epic {
		maxTokens = 2000
	}
	content, err := s.completeBody(ctx, llm.Request{
		Prompt:      prompt,
		System:      narratorSystemPrompt(style),
		Temperature: 0.85,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		obslog.L().Warn("story generation fell back to template", zap.Error(err))
		return &GameStory{
			Format:   format,
			Narrator: style,
			Title:    "A Game Remembered",
			Content:  s.cannedStory(g, "story.short"),
		}, nil
	}

	title, err := s.client.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf("Create a dramatic title (3-6 words) for a story where %s. Just the title.", resultName(g)),
		System:      narratorSystemPrompt(style),
		Temperature: 0.9,
		MaxTokens:   30,
	})
	if err != nil {
		title = "A Game Remembered"
	}

	return &GameStory{
		Format:   format,
		Narrator: style,
		Title:    strings.Trim(strings.TrimSpace(title), `"*`),
		Content:  strings.TrimSpace(content),
	}, nil
}

func (s *StoryGenerator) cannedStory(g *game.Game, key string) string {
	if s.catalog == nil {
		return "The pieces fought, and the board remembers."
	}
	text, err := s.catalog.Render(key, map[string]any{
		"White":  "White",
		"Black":  "Black",
		"Result": resultName(g),
		"Moves":  len(g.History()),
	})
	if err != nil {
		return "The pieces fought, and the board remembers."
	}
	return text
}

func colorName(c nchess.Color) string {
	if c == nchess.White {
		return "White"
	}
	return "Black"
}
