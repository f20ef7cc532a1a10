package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"

	openRouterBaseURL = "https://openrouter.ai/api/v1"
	ollamaBaseURL     = "http://localhost:11434/v1"

	defaultModel = "mistralai/devstral-2512:free"
)

type LLMConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	TimeoutSec  int
}

type EngineConfig struct {
	Path           string
	Depth          int
	MoveTimeMillis int
	SkillLevel     int
	Threads        int
	HashMB         int
}

type AppConfig struct {
	LLM    LLMConfig
	Engine EngineConfig

	DefaultPreset string
	MaxMoves      int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		LLM: LLMConfig{
			Provider:    ProviderOpenRouter,
			Model:       defaultModel,
			Temperature: 0.7,
			MaxTokens:   300,
			TimeoutSec:  30,
		},
		Engine: EngineConfig{
			Depth:          15,
			MoveTimeMillis: 1000,
			SkillLevel:     20,
			Threads:        1,
			HashMB:         128,
		},
		DefaultPreset: "level5",
		MaxMoves:      300,
	}

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("CHESS_LLM_PROVIDER"))); v != "" {
		if v != ProviderOpenRouter && v != ProviderOllama {
			return nil, fmt.Errorf("unknown CHESS_LLM_PROVIDER %q", v)
		}
		cfg.LLM.Provider = v
	}
	cfg.LLM.BaseURL = strings.TrimSpace(os.Getenv("CHESS_LLM_BASE_URL"))
	if cfg.LLM.BaseURL == "" {
		if cfg.LLM.Provider == ProviderOllama {
			cfg.LLM.BaseURL = ollamaBaseURL
		} else {
			cfg.LLM.BaseURL = openRouterBaseURL
		}
	}
	cfg.LLM.APIKey = strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_LLM_MODEL")); v != "" {
		cfg.LLM.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_LLM_TEMPERATURE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.LLM.Temperature = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_LLM_MAX_TOKENS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LLM.MaxTokens = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_LLM_TIMEOUT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LLM.TimeoutSec = n
		}
	}

	cfg.Engine.Path = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	if v := strings.TrimSpace(os.Getenv("CHESS_ENGINE_DEPTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Engine.Depth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_ENGINE_MOVETIME_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Engine.MoveTimeMillis = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_ENGINE_SKILL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 20 {
			cfg.Engine.SkillLevel = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_ENGINE_THREADS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Engine.Threads = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_ENGINE_HASH_MB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Engine.HashMB = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("CHESS_DEFAULT_PRESET")); v != "" {
		cfg.DefaultPreset = v
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_MAX_MOVES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxMoves = n
		}
	}

	return cfg, nil
}
