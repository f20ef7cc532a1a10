package match

import (
	"fmt"
	"strings"

	"chessalive/internal/commentary"
	"chessalive/internal/player"
)

// Mode names a pairing of player kinds with tuned defaults.
type Mode string

const (
	PlayerVsPlayer     Mode = "player_vs_player"
	PlayerVsComputer   Mode = "player_vs_computer"
	ComputerVsComputer Mode = "computer_vs_computer"
	PlayerVsLLM        Mode = "player_vs_llm"
	LLMVsLLM           Mode = "llm_vs_llm"
	LLMVsComputer      Mode = "llm_vs_computer"
	Teaching           Mode = "teaching"
)

// ModeDefaults carries per-mode defaults so the CLI only overrides what the
// user explicitly changes.
type ModeDefaults struct {
	White               player.Type
	Black               player.Type
	CommentaryFrequency commentary.Frequency
	EnginePreset        string
	LLMStyleWhite       string
	LLMStyleBlack       string
	MaxMoves            int
}

var modeDefaults = map[Mode]ModeDefaults{
	PlayerVsPlayer: {
		White:               player.TypeHuman,
		Black:               player.TypeHuman,
		CommentaryFrequency: commentary.KeyMoments,
		LLMStyleWhite:       "balanced",
		LLMStyleBlack:       "balanced",
		MaxMoves:            500,
	},
	PlayerVsComputer: {
		White:               player.TypeHuman,
		Black:               player.TypeComputer,
		CommentaryFrequency: commentary.KeyMoments,
		EnginePreset:        "advanced",
		LLMStyleWhite:       "balanced",
		LLMStyleBlack:       "balanced",
		MaxMoves:            500,
	},
	ComputerVsComputer: {
		White:               player.TypeComputer,
		Black:               player.TypeComputer,
		CommentaryFrequency: commentary.CapturesOnly,
		EnginePreset:        "master",
		LLMStyleWhite:       "balanced",
		LLMStyleBlack:       "balanced",
		MaxMoves:            300,
	},
	PlayerVsLLM: {
		White:               player.TypeHuman,
		Black:               player.TypeLLM,
		CommentaryFrequency: commentary.EveryMove,
		LLMStyleWhite:       "balanced",
		LLMStyleBlack:       "balanced",
		MaxMoves:            500,
	},
	LLMVsLLM: {
		White:               player.TypeLLM,
		Black:               player.TypeLLM,
		CommentaryFrequency: commentary.KeyMoments,
		LLMStyleWhite:       "aggressive",
		LLMStyleBlack:       "defensive",
		MaxMoves:            200,
	},
	LLMVsComputer: {
		White:               player.TypeLLM,
		Black:               player.TypeComputer,
		CommentaryFrequency: commentary.KeyMoments,
		EnginePreset:        "advanced",
		LLMStyleWhite:       "balanced",
		LLMStyleBlack:       "balanced",
		MaxMoves:            500,
	},
	Teaching: {
		White:               player.TypeHuman,
		Black:               player.TypeComputer,
		CommentaryFrequency: commentary.KeyMoments,
		EnginePreset:        "advanced",
		LLMStyleWhite:       "balanced",
		LLMStyleBlack:       "balanced",
		MaxMoves:            500,
	},
}

var modeAliases = map[string]Mode{
	"pvp":                  PlayerVsPlayer,
	"player_vs_player":     PlayerVsPlayer,
	"pvc":                  PlayerVsComputer,
	"player_vs_computer":   PlayerVsComputer,
	"player_vs_comp":       PlayerVsComputer,
	"cvc":                  ComputerVsComputer,
	"computer_vs_computer": ComputerVsComputer,
	"comp_vs_comp":         ComputerVsComputer,
	"pvl":                  PlayerVsLLM,
	"player_vs_llm":        PlayerVsLLM,
	"lvl":                  LLMVsLLM,
	"llm_vs_llm":           LLMVsLLM,
	"lvc":                  LLMVsComputer,
	"llm_vs_computer":      LLMVsComputer,
	"llm_vs_comp":          LLMVsComputer,
	"teaching":             Teaching,
	"teach":                Teaching,
}

// ParseMode resolves a user-typed mode name or alias.
func ParseMode(s string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	mode, ok := modeAliases[key]
	if !ok {
		return "", fmt.Errorf("unknown game mode: %s", s)
	}
	return mode, nil
}

// AllModes lists the modes in menu order.
func AllModes() []Mode {
	return []Mode{
		PlayerVsPlayer, PlayerVsComputer, ComputerVsComputer,
		PlayerVsLLM, LLMVsLLM, LLMVsComputer, Teaching,
	}
}

func (m Mode) Defaults() ModeDefaults {
	return modeDefaults[m]
}

func (m Mode) Description() string {
	switch m {
	case PlayerVsPlayer:
		return "Two human players"
	case PlayerVsComputer:
		return "Human vs Stockfish chess engine"
	case ComputerVsComputer:
		return "Stockfish vs Stockfish"
	case PlayerVsLLM:
		return "Human vs LLM-controlled player"
	case LLMVsLLM:
		return "LLM vs LLM"
	case LLMVsComputer:
		return "LLM vs Stockfish chess engine"
	case Teaching:
		return "Teaching mode - Human vs Stockfish with LLM coaching"
	default:
		return "Unknown mode"
	}
}

func (m Mode) HasHuman() bool {
	d := m.Defaults()
	return d.White == player.TypeHuman || d.Black == player.TypeHuman
}

// RequiresEngine reports whether Stockfish must be present for the mode.
func (m Mode) RequiresEngine() bool {
	d := m.Defaults()
	return d.White == player.TypeComputer || d.Black == player.TypeComputer || m == Teaching
}

// RequiresLLM reports whether the mode needs a reachable language model.
func (m Mode) RequiresLLM() bool {
	d := m.Defaults()
	return d.White == player.TypeLLM || d.Black == player.TypeLLM || m == Teaching
}
