package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"infra_crew/internal/assistant"
	"infra_crew/internal/chat"
	"infra_crew/internal/config"
	"infra_crew/internal/services"
	"infra_crew/internal/tts"
	"infra_crew/src/conversation"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const ttsPruneInterval = time.Minute

func newServeCmd(opts *rootOptions) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket chat relay",
		Long: `Serves the chat page, the /chat websocket, the systems list and
text-to-speech. Typing "exit" in the chat or POSTing /shutdown stops it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if host == "" {
				host = opts.env.ServerConfig.Host
			}
			if port == 0 {
				port = opts.env.ServerConfig.Port
			}
			return runServe(cmd.Context(), opts, net.JoinHostPort(host, strconv.Itoa(port)))
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (default $HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default $PORT)")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := newApp(ctx, opts.env)
	if err != nil {
		return err
	}
	defer a.Close()

	var repo conversation.Repository
	if a.redis != nil {
		repo = conversation.NewRedisRepository(a.redis, opts.env.RedisConfig.SessionTTL)
	}
	history := conversation.NewService(repo)

	asst, err := assistant.New(ctx, config.BuildCoreConfig(a.yaml), history, a.registry, a.chatModel)
	if err != nil {
		return err
	}

	systems, err := services.NewSystemsCatalog(a.yaml.Systems.Manifest)
	if err != nil {
		return err
	}
	go func() {
		if err := systems.Watch(ctx); err != nil {
			log.Warn().Err(err).Msg("Systems manifest will not be reloaded")
		}
	}()

	ttsConfig := opts.env.TTSConfig
	var synth tts.Synthesizer
	if ttsConfig.Enabled && ttsConfig.APIKey != "" {
		synth = tts.NewOpenAISynthesizer(ttsConfig.APIKey)
	} else if ttsConfig.Enabled {
		log.Warn().Msg("ENABLE_OPENAI_TTS is set but OPENAI_API_KEY is empty, TTS disabled")
	}
	ttsHandler := tts.NewHandler(ttsConfig, synth)
	go ttsHandler.Cache().Run(ctx, ttsPruneInterval)

	relay := chat.NewRelay(asst, systems)
	go func() {
		relay.Run(ctx)
		// "exit" from the chat ends the server too
		cancel()
	}()

	server := chat.NewServer(relay, systems, ttsHandler, cancel)
	return server.ListenAndServe(ctx, addr)
}
