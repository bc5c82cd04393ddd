package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/PabloGalante/soldiom/internal/adapters/huggingface"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeCloud Mode = "cloud"
)

type Backend string

const (
	BackendGemini Backend = "gemini"
	BackendVertex Backend = "vertex"
	BackendMock   Backend = "mock"
)

const DefaultModelName = "gemini-3-flash-preview"

type Config struct {
	Mode Mode

	Port string

	LLMBackend     Backend
	APIKey         string
	GCPProjectID   string
	GCPLocation    string
	ModelName      string
	Temperature    float32
	ThinkingBudget int32
	GoogleSearch   bool
	HistoryLimit   int

	HFToken   string
	HFBaseURL string
	HFRPS     float64
	HFBurst   int
	HFModels  huggingface.Models

	RolesFile string

	LogLevel  string
	LogFormat string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// Load reads .env (if present) and the environment, and builds the config.
// Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the config from the process environment only.
func FromEnv() (*Config, error) {
	mode := ModeLocal
	if strings.EqualFold(getEnv("SOLDIOM_MODE", "local"), string(ModeCloud)) {
		mode = ModeCloud
	}

	apiKey := getEnv("GEMINI_API_KEY", os.Getenv("API_KEY"))

	defBackend := BackendGemini
	if mode == ModeLocal && apiKey == "" {
		defBackend = BackendMock
	}

	cfg := &Config{
		Mode: mode,

		Port: getEnv("SOLDIOM_PORT", getEnv("PORT", "8080")),

		LLMBackend:   Backend(strings.ToLower(getEnv("SOLDIOM_LLM_BACKEND", string(defBackend)))),
		APIKey:       apiKey,
		GCPProjectID: getEnv("SOLDIOM_GCP_PROJECT", ""),
		GCPLocation:  getEnv("SOLDIOM_GCP_LOCATION", "us-central1"),
		ModelName:    getEnv("SOLDIOM_MODEL_NAME", DefaultModelName),
		GoogleSearch: getBoolEnv("SOLDIOM_GOOGLE_SEARCH", true),

		HFToken:   getEnv("HF_TOKEN", ""),
		HFBaseURL: getEnv("SOLDIOM_HF_BASE_URL", huggingface.DefaultBaseURL),

		RolesFile: getEnv("SOLDIOM_ROLES_FILE", ""),

		LogLevel:  getEnv("SOLDIOM_LOG_LEVEL", "info"),
		LogFormat: getEnv("SOLDIOM_LOG_FORMAT", "json"),
	}

	temp, err := getFloatEnv("SOLDIOM_TEMPERATURE", 0.3)
	if err != nil {
		return nil, err
	}
	cfg.Temperature = float32(temp)

	budget, err := getIntEnv("SOLDIOM_THINKING_BUDGET", 1024)
	if err != nil {
		return nil, err
	}
	cfg.ThinkingBudget = int32(budget)

	if cfg.HistoryLimit, err = getIntEnv("SOLDIOM_HISTORY_LIMIT", 40); err != nil {
		return nil, err
	}
	if cfg.HFRPS, err = getFloatEnv("SOLDIOM_HF_RPS", 2); err != nil {
		return nil, err
	}
	if cfg.HFBurst, err = getIntEnv("SOLDIOM_HF_BURST", 4); err != nil {
		return nil, err
	}

	models := huggingface.DefaultModels()
	cfg.HFModels = huggingface.Models{
		Image:         getEnv("SOLDIOM_HF_IMAGE_MODEL", models.Image),
		Code:          getEnv("SOLDIOM_HF_CODE_MODEL", models.Code),
		Translation:   getEnv("SOLDIOM_HF_TRANSLATION_MODEL", models.Translation),
		Summarization: getEnv("SOLDIOM_HF_SUMMARY_MODEL", models.Summarization),
		SpeechToText:  getEnv("SOLDIOM_HF_STT_MODEL", models.SpeechToText),
		TextToSpeech:  getEnv("SOLDIOM_HF_TTS_MODEL", models.TextToSpeech),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.LLMBackend {
	case BackendGemini:
		if c.APIKey == "" {
			return errors.New("GEMINI_API_KEY (or API_KEY) must be set for the gemini backend")
		}
	case BackendVertex:
		if c.GCPProjectID == "" {
			return errors.New("SOLDIOM_GCP_PROJECT must be set for the vertex backend")
		}
	case BackendMock:
		if c.Mode == ModeCloud {
			return errors.New("the mock backend cannot run in cloud mode")
		}
	default:
		return fmt.Errorf("unknown SOLDIOM_LLM_BACKEND %q", c.LLMBackend)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("SOLDIOM_TEMPERATURE must be within [0, 2], got %v", c.Temperature)
	}
	if c.ThinkingBudget < 0 {
		return fmt.Errorf("SOLDIOM_THINKING_BUDGET must not be negative")
	}
	return nil
}

// HuggingFace returns the inference client settings.
func (c *Config) HuggingFace() huggingface.Config {
	return huggingface.Config{
		Token:   c.HFToken,
		BaseURL: c.HFBaseURL,
		Models:  c.HFModels,
		RPS:     c.HFRPS,
		Burst:   c.HFBurst,
	}
}
