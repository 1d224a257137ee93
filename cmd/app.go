package cmd

import (
	"context"
	"fmt"
	"strings"

	"infra_crew/internal/aaosa"
	"infra_crew/internal/artifacts"
	"infra_crew/internal/config"
	"infra_crew/internal/docs"
	"infra_crew/internal/iac/ansible"
	"infra_crew/internal/iac/terraform"
	"infra_crew/internal/llm"
	"infra_crew/internal/sentiment"
	"infra_crew/internal/storage"
	"infra_crew/internal/tools"
	"infra_crew/internal/workflow"
	"infra_crew/src"

	"github.com/cloudwego/eino/components/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// app holds the services every command shares
type app struct {
	env       *src.Config
	yaml      *config.YAMLConfig
	redis     *redis.Client
	chatModel model.BaseChatModel
	workflow  *workflow.Interface
	registry  *tools.Registry
}

func newApp(ctx context.Context, env *src.Config) (*app, error) {
	yamlConfig, err := config.LoadConfig(env.ConfigFile)
	if err != nil {
		return nil, err
	}
	a := &app{env: env, yaml: yamlConfig}

	if env.RedisConfig.URL != "" {
		client, err := storage.NewRedisClient(ctx, env.RedisConfig.URL)
		if err != nil {
			return nil, err
		}
		a.redis = client
		log.Info().Msg("✅ Redis connected")
	}

	a.chatModel, err = llm.NewChatModel(ctx, env.LLMConfig)
	if err != nil {
		a.Close()
		return nil, err
	}

	agents, err := yamlConfig.Registry()
	if err != nil {
		a.Close()
		return nil, err
	}
	delegation, err := aaosa.NewEngine(ctx, agents, a.bridge())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("error creating delegation engine: %w", err)
	}

	var sessions storage.SessionStore
	if a.redis != nil {
		sessions = storage.NewRedisSessionStore(a.redis, env.RedisConfig.SessionTTL)
	}
	a.workflow = workflow.NewInterface(workflow.NewEngine(delegation, sessions))

	out := yamlConfig.Output
	a.registry = tools.DefaultRegistry(tools.Deps{
		Docs:      docs.NewWriter(out.Root),
		Terraform: &terraform.Builder{Root: out.Root},
		Ansible:   &ansible.Builder{Root: out.Root},
		Sentiment: sentiment.NewAnalyzer(yamlConfig.Sentiment.InputDir, yamlConfig.Sentiment.OutputDir),
		Memory:    storage.NewTopicMemory(out.Memory),
		Workspace: artifacts.NewWorkspace(out.Workspace),
		Workflow:  a.workflow,
	})
	return a, nil
}

// bridge returns the live agent bridge, or nil when no model is configured
func (a *app) bridge() aaosa.Bridge {
	if a.chatModel == nil {
		log.Info().Msg("No LLM provider configured, agents run in simulation mode")
		return nil
	}

	var heartbeat aaosa.Heartbeater
	if strings.EqualFold(a.env.LLMConfig.Provider, llm.ProviderOllama) {
		probe, err := llm.NewOllamaProbe(a.env.LLMConfig.BaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("Ollama heartbeat unavailable, probing with generate calls")
		} else {
			heartbeat = probe
		}
	}
	return aaosa.NewLLMBridge(a.chatModel, heartbeat)
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}
