package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	ListenAddr string

	StockfishPath        string
	EngineMoveTimeMillis int
	EngineThreads        int
	EngineHashMB         int
	EnginePoolSize       int

	RedisURL      string
	SessionTTLSec int

	Character         string
	CommentaryEnabled bool
	LLMBaseURL        string
	LLMAPIKey         string
	LLMModel          string
	LLMMaxTokens      int
	LLMTemperature    float64
	LLMTimeoutMillis  int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:           ":8787",
		EngineMoveTimeMillis: 800,
		EngineThreads:        1,
		EngineHashMB:         64,
		EnginePoolSize:       2,
		SessionTTLSec:        3600,
		Character:            "robo",
		LLMModel:             "deepseek_r1",
		LLMMaxTokens:         1000,
		LLMTemperature:       0.8,
		LLMTimeoutMillis:     30000,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}

	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	if v := strings.TrimSpace(os.Getenv("ENGINE_MOVETIME_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineMoveTimeMillis = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_THREADS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineThreads = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_HASH_MB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineHashMB = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_POOL_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EnginePoolSize = n
		}
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTLSec = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("CHARACTER")); v != "" {
		cfg.Character = v
	}
	if v := strings.TrimSpace(os.Getenv("COMMENTARY_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.CommentaryEnabled = b
		}
	}
	cfg.LLMBaseURL = strings.TrimSpace(os.Getenv("LLM_BASE_URL"))
	cfg.LLMAPIKey = strings.TrimSpace(os.Getenv("LLM_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("LLM_MODEL")); v != "" {
		cfg.LLMModel = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_MAX_TOKENS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LLMMaxTokens = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("LLM_TEMPERATURE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.LLMTemperature = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("LLM_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LLMTimeoutMillis = n
		}
	}

	if cfg.CommentaryEnabled {
		if cfg.LLMBaseURL == "" {
			return nil, errors.New("LLM_BASE_URL is required when COMMENTARY_ENABLED is set")
		}
		if cfg.LLMAPIKey == "" {
			return nil, errors.New("LLM_API_KEY is required when COMMENTARY_ENABLED is set")
		}
	}

	return cfg, nil
}
