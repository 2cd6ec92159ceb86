package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config carries the settings of both services. One file serves the
// whole deployment; each binary reads its own section.
type Config struct {
	Symbols []string `yaml:"symbols"`

	Sequencer struct {
		Listen        string `yaml:"listen"`
		StoreEndpoint string `yaml:"store_endpoint"`
		JournalDir    string `yaml:"journal_dir"`
		Publish       struct {
			QueueSize    int `yaml:"queue_size"`
			Workers      int `yaml:"workers"`
			MaxRetries   int `yaml:"max_retries"`
			RetryDelayMS int `yaml:"retry_delay_ms"`
			TimeoutMS    int `yaml:"timeout_ms"`
		} `yaml:"publish"`
	} `yaml:"sequencer"`

	MarketStore struct {
		Listen string `yaml:"listen"`
		Feed   struct {
			Enabled bool     `yaml:"enabled"`
			Brokers []string `yaml:"brokers"`
			Topic   string   `yaml:"topic"`
		} `yaml:"feed"`
	} `yaml:"market_store"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Default returns a runnable local configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Symbols = []string{"AAPL", "MSFT", "GOOG", "AMZN"}
	cfg.Sequencer.Listen = ":8080"
	cfg.Sequencer.StoreEndpoint = "http://localhost:9090/events"
	cfg.Sequencer.JournalDir = "./journal"
	cfg.Sequencer.Publish.QueueSize = 1024
	cfg.Sequencer.Publish.Workers = 4
	cfg.Sequencer.Publish.MaxRetries = 3
	cfg.Sequencer.Publish.RetryDelayMS = 50
	cfg.Sequencer.Publish.TimeoutMS = 2000
	cfg.MarketStore.Listen = ":9090"
	cfg.MarketStore.Feed.Topic = "orderflow.market-feed"
	cfg.Logging.Level = "info"
	return cfg
}

// Load reads and validates a YAML config file, then applies environment
// overrides for the deployment-specific endpoints.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one tradable symbol is required")
	}
	if c.Sequencer.Listen == "" {
		return fmt.Errorf("sequencer listen address is required")
	}
	if !strings.HasPrefix(c.Sequencer.StoreEndpoint, "http://") &&
		!strings.HasPrefix(c.Sequencer.StoreEndpoint, "https://") {
		return fmt.Errorf("invalid store endpoint: %s", c.Sequencer.StoreEndpoint)
	}
	if c.MarketStore.Listen == "" {
		return fmt.Errorf("market store listen address is required")
	}
	if c.MarketStore.Feed.Enabled && len(c.MarketStore.Feed.Brokers) == 0 {
		return fmt.Errorf("feed enabled but no kafka brokers configured")
	}
	return nil
}

func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("ORDERFLOW_SEQUENCER_LISTEN"); v != "" {
		cfg.Sequencer.Listen = v
	}
	if v := os.Getenv("ORDERFLOW_STORE_ENDPOINT"); v != "" {
		cfg.Sequencer.StoreEndpoint = v
	}
	if v := os.Getenv("ORDERFLOW_STORE_LISTEN"); v != "" {
		cfg.MarketStore.Listen = v
	}
	if v := os.Getenv("ORDERFLOW_KAFKA_BROKERS"); v != "" {
		cfg.MarketStore.Feed.Brokers = strings.Split(v, ",")
	}
}
