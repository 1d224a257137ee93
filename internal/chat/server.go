package chat

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"time"

	"infra_crew/internal/tts"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
)

//go:embed static/index.html
var indexHTML []byte

// Server exposes the relay, the systems list and TTS over HTTP
type Server struct {
	relay    *Relay
	systems  Systems
	tts      *tts.Handler
	shutdown func()
}

// NewServer wires the routes. shutdown runs after /shutdown has answered.
func NewServer(relay *Relay, systems Systems, ttsHandler *tts.Handler, shutdown func()) *Server {
	return &Server{relay: relay, systems: systems, tts: ttsHandler, shutdown: shutdown}
}

// Handler returns the route table with Cache-Control: no-store on every response
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.index)
	mux.Handle("/chat", s.relay)
	mux.HandleFunc("GET /systems", s.listSystems)
	if s.tts != nil {
		mux.HandleFunc("GET /tts_config", s.tts.Config)
		mux.Handle("/tts", s.tts)
	}
	mux.HandleFunc("GET /shutdown", s.endCapture)
	mux.HandleFunc("POST /shutdown", s.endCapture)
	return noStore(mux)
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) listSystems(w http.ResponseWriter, _ *http.Request) {
	systems := []string{}
	if s.systems != nil {
		systems = s.systems.Available()
	}
	data, err := sonic.Marshal(systems)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) endCapture(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("Capture ended"))
	if s.shutdown != nil {
		// let the response flush before the listener goes away
		go s.shutdown()
	}
}

// ListenAndServe runs the HTTP server until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("🌐 Chat relay listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.relay.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("Bye!")
	return nil
}
