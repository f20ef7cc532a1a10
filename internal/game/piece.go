package game

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// PiecePersonality shapes the voice a piece uses in LLM commentary.
// Trait values are on a 0-10 scale.
type PiecePersonality struct {
	Name          string
	Archetype     string
	SpeakingStyle string

	Aggression int
	Caution    int
	Humor      int
	Eloquence  int

	Backstory string
}

// PromptContext renders the personality as system-prompt context.
func (p PiecePersonality) PromptContext() string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, fmt.Sprintf("Your name is %s.", p.Name))
	}
	if p.Archetype != "" {
		parts = append(parts, fmt.Sprintf("You embody the archetype of a %s.", p.Archetype))
	}
	if p.SpeakingStyle != "" {
		parts = append(parts, fmt.Sprintf("You speak in a %s manner.", p.SpeakingStyle))
	}
	if p.Backstory != "" {
		parts = append(parts, fmt.Sprintf("Your backstory: %s", p.Backstory))
	}

	switch {
	case p.Aggression >= 7:
		parts = append(parts, "You are aggressive and eager for battle.")
	case p.Aggression <= 3:
		parts = append(parts, "You prefer peaceful resolutions when possible.")
	}
	switch {
	case p.Caution >= 7:
		parts = append(parts, "You are very cautious and think defensively.")
	case p.Caution <= 3:
		parts = append(parts, "You are bold and take risks readily.")
	}
	switch {
	case p.Humor >= 7:
		parts = append(parts, "You enjoy making jokes and witty remarks.")
	case p.Humor <= 3:
		parts = append(parts, "You are serious and rarely joke.")
	}
	switch {
	case p.Eloquence >= 7:
		parts = append(parts, "You speak eloquently and at length.")
	case p.Eloquence <= 3:
		parts = append(parts, "You are terse and to the point.")
	}

	if len(parts) == 0 {
		return "You have a balanced personality."
	}
	return strings.Join(parts, " ")
}

type personalityKey struct {
	Type  nchess.PieceType
	Color nchess.Color
}

// DefaultPersonalities maps piece type and color to the stock cast.
var DefaultPersonalities = map[personalityKey]PiecePersonality{
	{nchess.King, nchess.White}: {
		Name: "King Aldric", Archetype: "wise ruler", SpeakingStyle: "regal and measured",
		Aggression: 3, Caution: 8, Humor: 3, Eloquence: 8,
		Backstory: "An aging monarch who has seen many battles.",
	},
	{nchess.Queen, nchess.White}: {
		Name: "Queen Seraphina", Archetype: "fierce warrior queen", SpeakingStyle: "commanding yet graceful",
		Aggression: 8, Caution: 4, Humor: 4, Eloquence: 7,
		Backstory: "The most powerful piece, and she knows it.",
	},
	{nchess.Rook, nchess.White}: {
		Name: "Tower Guard", Archetype: "stalwart defender", SpeakingStyle: "direct and military",
		Aggression: 5, Caution: 7, Humor: 2, Eloquence: 3,
		Backstory: "A fortress made manifest, unwavering in duty.",
	},
	{nchess.Bishop, nchess.White}: {
		Name: "Bishop Luminos", Archetype: "cunning advisor", SpeakingStyle: "scholarly and cryptic",
		Aggression: 4, Caution: 6, Humor: 5, Eloquence: 9,
		Backstory: "Sees the board from angles others miss.",
	},
	{nchess.Knight, nchess.White}: {
		Name: "Sir Galahad", Archetype: "chivalrous knight", SpeakingStyle: "honorable and brave",
		Aggression: 7, Caution: 3, Humor: 5, Eloquence: 5,
		Backstory: "Leaps into danger where others fear to tread.",
	},
	{nchess.Pawn, nchess.White}: {
		Name: "Footsoldier", Archetype: "humble soldier", SpeakingStyle: "simple and earnest",
		Aggression: 4, Caution: 5, Humor: 6, Eloquence: 3,
		Backstory: "Dreams of crossing the battlefield and becoming something more.",
	},
	{nchess.King, nchess.Black}: {
		Name: "King Malachar", Archetype: "cunning strategist", SpeakingStyle: "cold and calculating",
		Aggression: 4, Caution: 9, Humor: 2, Eloquence: 7,
		Backstory: "A king who trusts no one and plans ten moves ahead.",
	},
	{nchess.Queen, nchess.Black}: {
		Name: "Queen Nyx", Archetype: "shadow assassin", SpeakingStyle: "mysterious and deadly",
		Aggression: 9, Caution: 3, Humor: 3, Eloquence: 6,
		Backstory: "Strikes from the darkness with lethal precision.",
	},
	{nchess.Rook, nchess.Black}: {
		Name: "Dark Tower", Archetype: "silent sentinel", SpeakingStyle: "ominous and sparse",
		Aggression: 6, Caution: 6, Humor: 1, Eloquence: 2,
		Backstory: "An ancient fortress with secrets in its stones.",
	},
	{nchess.Bishop, nchess.Black}: {
		Name: "Bishop Umbra", Archetype: "dark oracle", SpeakingStyle: "prophetic and unsettling",
		Aggression: 5, Caution: 5, Humor: 4, Eloquence: 8,
		Backstory: "Whispers prophecies of doom to enemies.",
	},
	{nchess.Knight, nchess.Black}: {
		Name: "The Black Rider", Archetype: "fearsome raider", SpeakingStyle: "wild and intimidating",
		Aggression: 8, Caution: 2, Humor: 4, Eloquence: 4,
		Backstory: "Chaos incarnate, leaping where least expected.",
	},
	{nchess.Pawn, nchess.Black}: {
		Name: "Dark Infantry", Archetype: "devoted servant", SpeakingStyle: "grim but determined",
		Aggression: 5, Caution: 4, Humor: 3, Eloquence: 3,
		Backstory: "Marches forward knowing sacrifice may await.",
	},
}

// PersonalityFor returns the default personality for a piece type and color.
func PersonalityFor(t nchess.PieceType, c nchess.Color) PiecePersonality {
	if p, ok := DefaultPersonalities[personalityKey{t, c}]; ok {
		return p
	}
	return PiecePersonality{Aggression: 5, Caution: 5, Humor: 5, Eloquence: 5}
}

// Piece decorates a board piece with narrative state. The board itself stays
// authoritative for position and legality; Piece only carries what the rules
// library does not track.
type Piece struct {
	Type        nchess.PieceType
	Color       nchess.Color
	Square      nchess.Square
	Personality PiecePersonality

	IsCaptured   bool
	MovesMade    int
	CapturesMade int
}

// SquareName returns the square in algebraic form, or "captured".
func (p *Piece) SquareName() string {
	if p.IsCaptured {
		return "captured"
	}
	return p.Square.String()
}

// DisplayName prefers the personality name over the plain piece description.
func (p *Piece) DisplayName() string {
	if p.Personality.Name != "" {
		return p.Personality.Name
	}
	return fmt.Sprintf("%s %s", colorName(p.Color), pieceTypeName(p.Type))
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
