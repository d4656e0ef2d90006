package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"api"`
	Channel struct {
		URL          string        `yaml:"url"`
		PingInterval time.Duration `yaml:"ping_interval"`
	} `yaml:"channel"`
	Analytics struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"analytics"`
	Data struct {
		Dir string `yaml:"dir"`
	} `yaml:"data"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	var config Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Environment variables override file values.
	config.API.BaseURL = getEnv("KEEPER_API_URL", config.API.BaseURL)
	config.Channel.URL = getEnv("KEEPER_CHANNEL_URL", config.Channel.URL)
	config.Analytics.BaseURL = getEnv("KEEPER_ANALYTICS_URL", config.Analytics.BaseURL)
	config.Data.Dir = getEnv("KEEPER_DATA_DIR", config.Data.Dir)

	if config.API.BaseURL == "" {
		return nil, fmt.Errorf("api base URL is required (KEEPER_API_URL)")
	}
	if config.Channel.URL == "" {
		return nil, fmt.Errorf("channel URL is required (KEEPER_CHANNEL_URL)")
	}
	if config.Data.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home dir: %w", err)
		}
		config.Data.Dir = filepath.Join(home, ".keeper")
	}

	return &config, nil
}
