package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"infra_crew/internal/aaosa"
	"infra_crew/internal/core"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the structure of config.yaml
type YAMLConfig struct {
	Agents []aaosa.Agent `yaml:"agents"`

	Output struct {
		Root      string `yaml:"root"`
		Workspace string `yaml:"workspace"`
		Memory    string `yaml:"memory"`
	} `yaml:"output"`

	Sentiment struct {
		InputDir  string `yaml:"input_dir"`
		OutputDir string `yaml:"output_dir"`
	} `yaml:"sentiment"`

	Systems struct {
		Manifest string `yaml:"manifest"`
	} `yaml:"systems"`

	Conversation struct {
		IntentTurns   int `yaml:"intent_turns"`
		ResponseTurns int `yaml:"response_turns"`
	} `yaml:"conversation"`

	Graph struct {
		Flow     *core.GraphFlow `yaml:"flow"`
		MaxSteps int             `yaml:"max_steps"`
	} `yaml:"graph"`
}

// Default returns the built-in configuration
func Default() *YAMLConfig {
	var c YAMLConfig
	c.applyDefaults()
	return &c
}

// LoadConfig loads configuration from a YAML file. A missing file yields the defaults.
func LoadConfig(filepath string) (*YAMLConfig, error) {
	data, err := os.ReadFile(filepath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", filepath).Msg("Config file not found, using defaults")
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config YAMLConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing YAML: %w", err)
	}
	config.applyDefaults()
	return &config, nil
}

func (c *YAMLConfig) applyDefaults() {
	setDefault(&c.Output.Root, "output")
	setDefault(&c.Output.Workspace, "output/software_company")
	setDefault(&c.Output.Memory, "memory")
	setDefault(&c.Sentiment.InputDir, "all_articles_output")
	setDefault(&c.Sentiment.OutputDir, "sentiment_output")
	setDefault(&c.Systems.Manifest, "registries/manifest.yaml")
	if c.Conversation.IntentTurns <= 0 {
		c.Conversation.IntentTurns = 5
	}
	if c.Conversation.ResponseTurns <= 0 {
		c.Conversation.ResponseTurns = 10
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// Registry builds the agent registry, falling back to the default network
func (c *YAMLConfig) Registry() (*aaosa.Registry, error) {
	if len(c.Agents) == 0 {
		return aaosa.DefaultRegistry(), nil
	}
	reg, err := aaosa.NewRegistry(c.Agents)
	if err != nil {
		return nil, fmt.Errorf("invalid agents config: %w", err)
	}
	return reg, nil
}

// DefaultFlow is routing → intent → (tools when needed) → response
func DefaultFlow() core.GraphFlow {
	return core.GraphFlow{
		StartNode: "routing",
		Edges: map[string][]core.GraphEdge{
			"routing": {
				{To: "intent", Priority: 1},
			},
			"intent": {
				{To: "tools", Condition: map[string]any{"need_tools": true}, Priority: 1},
				{To: "response", Priority: 2},
			},
			"tools": {
				{To: "response", Priority: 1},
			},
			"response": {
				{To: core.Complete, Priority: 1},
			},
		},
	}
}

// BuildCoreConfig creates core.Config from the YAML config
func BuildCoreConfig(yamlConfig *YAMLConfig) core.Config {
	flow := DefaultFlow()
	if yamlConfig.Graph.Flow != nil && yamlConfig.Graph.Flow.StartNode != "" {
		flow = *yamlConfig.Graph.Flow
	}
	return core.Config{
		Conversation: core.ConversationConfig{
			IntentTurns:   yamlConfig.Conversation.IntentTurns,
			ResponseTurns: yamlConfig.Conversation.ResponseTurns,
		},
		Graph: core.GraphConfig{
			DefaultFlow: flow,
			MaxSteps:    yamlConfig.Graph.MaxSteps,
		},
	}
}
