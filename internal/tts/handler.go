package tts

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"infra_crew/src/model"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
)

// Handler serves /tts and /tts_config
type Handler struct {
	cfg   model.TTSConfig
	synth Synthesizer
	cache *Cache
}

// NewHandler builds the handler. synth nil means remote TTS is unavailable.
func NewHandler(cfg model.TTSConfig, synth Synthesizer) *Handler {
	return &Handler{
		cfg:   cfg,
		synth: synth,
		cache: NewCache(cfg.CacheDir, cfg.CacheTTL()),
	}
}

func (h *Handler) Cache() *Cache {
	return h.cache
}

// Enabled is true when TTS is switched on and a synthesizer exists
func (h *Handler) Enabled() bool {
	return h.cfg.Enabled && h.synth != nil
}

type ttsRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
	Model string `json:"model"`
}

// Config serves GET /tts_config
func (h *Handler) Config(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":     h.Enabled(),
		"model":       h.cfg.Model,
		"voice":       h.cfg.Voice,
		"format":      h.cfg.Format,
		"cache_ttl":   h.cfg.CacheTTLSeconds,
		"cache_dir":   h.cfg.CacheDir,
		"has_api_key": h.cfg.APIKey != "",
	})
}

// ServeHTTP serves POST /tts
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "Method not allowed"})
		return
	}
	if !h.Enabled() {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "OpenAI TTS disabled"})
		return
	}

	// a bad body is treated like an empty one
	var req ttsRequest
	if body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)); err == nil {
		_ = sonic.Unmarshal(body, &req)
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No text"})
		return
	}

	modelName := firstNonEmpty(req.Model, h.cfg.Model)
	voice := firstNonEmpty(req.Voice, h.cfg.Voice)
	format := h.cfg.Format
	path := h.cache.Path(CacheKey(modelName, voice, format, text), format)

	if h.cache.Fresh(path) {
		log.Info().Str("file", path).Msg("[TTS] Cache hit")
		w.Header().Set("X-Remote-TTS", "1")
		w.Header().Set("X-Cache", "HIT")
		serveAudio(w, r, path, format)
		return
	}

	models := FallbackModels(modelName)
	var lastErr error
	for _, attempt := range models {
		log.Info().Str("model", attempt).Str("voice", voice).Int("chars", len(text)).Msg("[TTS] Generating")

		audio, err := h.synth.Synthesize(r.Context(), attempt, voice, format, text)
		if err == nil {
			err = h.cache.Write(path, audio)
		}
		if err != nil {
			lastErr = err
			log.Warn().Err(err).Str("model", attempt).Msg("[TTS] Model attempt failed")
			removeEmpty(path)
			continue
		}

		w.Header().Set("X-Remote-TTS", "1")
		w.Header().Set("X-Cache", "MISS")
		w.Header().Set("X-TTS-Model", attempt)
		w.Header().Set("X-TTS-Mode", "direct")
		serveAudio(w, r, path, format)
		return
	}

	if lastErr == nil {
		lastErr = errors.New("no models attempted")
	}
	log.Error().Err(lastErr).Msg("[TTS] All model attempts failed")
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error":            lastErr.Error(),
		"attempted_models": models,
	})
}

func serveAudio(w http.ResponseWriter, r *http.Request, path, format string) {
	f, err := os.Open(path)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", MimeType(format))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func removeEmpty(path string) {
	if info, err := os.Stat(path); err == nil && info.Size() == 0 {
		_ = os.Remove(path)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
