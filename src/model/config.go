package model

import "time"

// ----------------------------------------------------
// ================ Config ================

// LogConfig controls the global zerolog logger
type LogConfig struct {
	Level      string `envconfig:"LOG_LEVEL" default:"info"`
	Format     string `envconfig:"LOG_FORMAT" default:"console"`
	Output     string `envconfig:"LOG_OUTPUT" default:"stdout"`
	FilePath   string `envconfig:"LOG_FILE_PATH" default:"logs/infra_crew.log"`
	TimeFormat string `envconfig:"LOG_TIME_FORMAT" default:"rfc3339"`
}

// LLMConfig selects the chat model backing the assistant and the live agent bridge.
// Provider "none" keeps everything on the deterministic path.
type LLMConfig struct {
	Provider    string  `envconfig:"LLM_PROVIDER" default:"none"`
	APIKey      string  `envconfig:"LLM_API_KEY"`
	BaseURL     string  `envconfig:"LLM_BASE_URL"`
	Model       string  `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	MaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"1500"`
	Temperature float64 `envconfig:"LLM_TEMPERATURE" default:"0.2"`
}

// RedisConfig holds the optional Redis connection. Empty URL means in-memory stores.
type RedisConfig struct {
	URL        string        `envconfig:"REDIS_URL"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"40m"`
}

// TTSConfig mirrors the OpenAI text-to-speech settings of the chat relay
type TTSConfig struct {
	Enabled         bool   `envconfig:"ENABLE_OPENAI_TTS" default:"false"`
	APIKey          string `envconfig:"OPENAI_API_KEY"`
	Model           string `envconfig:"OPENAI_TTS_MODEL" default:"tts-1"`
	Voice           string `envconfig:"OPENAI_TTS_VOICE" default:"coral"`
	Format          string `envconfig:"OPENAI_TTS_FORMAT" default:"mp3"`
	CacheDir        string `envconfig:"TTS_AUDIO_CACHE_DIR" default:"./logs/tts_cache"`
	CacheTTLSeconds int    `envconfig:"TTS_AUDIO_CACHE_TTL_SECONDS" default:"600"`
}

// CacheTTL returns the cache freshness window
func (c TTSConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ServerConfig is where the chat relay listens
type ServerConfig struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"5001"`
}
