package src

import (
	"fmt"

	"infra_crew/src/model"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LogConfig    model.LogConfig    `envconfig:""`
	LLMConfig    model.LLMConfig    `envconfig:""`
	RedisConfig  model.RedisConfig  `envconfig:""`
	TTSConfig    model.TTSConfig    `envconfig:""`
	ServerConfig model.ServerConfig `envconfig:""`
	ConfigFile   string             `envconfig:"CONFIG_FILE" default:"config.yaml"`
}

func LoadConfig() (*Config, error) {
	var config Config
	err := envconfig.Process("", &config)
	if err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}

	return &config, nil
}
