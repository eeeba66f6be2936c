package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode   string `yaml:"mode"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Scrape struct {
		Workers        int    `yaml:"workers"`
		StaggerSeconds int    `yaml:"stagger_seconds"`
		LinkRetries    int    `yaml:"link_retries"`
		BackoffMinSecs int    `yaml:"backoff_min_seconds"`
		BackoffMaxSecs int    `yaml:"backoff_max_seconds"`
		Source         string `yaml:"source"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"scrape"`
	Predict struct {
		MinArticleBytes int    `yaml:"min_article_bytes"`
		MinYesVotes     int    `yaml:"min_yes_votes"`
		TopCounts       int    `yaml:"top_counts"`
		Recipient       string `yaml:"recipient"`
	} `yaml:"predict"`
	LLM struct {
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"llm"`
	Trading struct {
		SafeguardDollars int    `yaml:"safeguard_dollars"`
		MaxUsableDollars int    `yaml:"max_usable_dollars"`
		BaseURL          string `yaml:"base_url"`
	} `yaml:"trading"`
	Schedule struct {
		ScrapeCron    string   `yaml:"scrape_cron"`
		LiquidateCron string   `yaml:"liquidate_cron"`
		Symbols       []string `yaml:"symbols"`
		LookbackHours int      `yaml:"lookback_hours"`
	} `yaml:"schedule"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path cannot be empty")
	}
	if c.Scrape.Workers <= 0 {
		return fmt.Errorf("scrape.workers must be positive, got %d", c.Scrape.Workers)
	}
	if c.Scrape.BackoffMinSecs > c.Scrape.BackoffMaxSecs {
		return fmt.Errorf("scrape backoff range invalid: min %d > max %d",
			c.Scrape.BackoffMinSecs, c.Scrape.BackoffMaxSecs)
	}
	if c.Trading.SafeguardDollars < 0 {
		return fmt.Errorf("trading.safeguard_dollars must not be negative, got %d", c.Trading.SafeguardDollars)
	}
	if c.Trading.MaxUsableDollars <= 0 {
		return fmt.Errorf("trading.max_usable_dollars must be positive, got %d", c.Trading.MaxUsableDollars)
	}
	if c.Schedule.ScrapeCron != "" && len(c.Schedule.Symbols) == 0 {
		return errors.New("schedule.symbols cannot be empty when schedule.scrape_cron is set")
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "./data/news-trader"
	}
	if c.Scrape.Workers == 0 {
		c.Scrape.Workers = 4
	}
	if c.Scrape.StaggerSeconds == 0 {
		c.Scrape.StaggerSeconds = 5
	}
	if c.Scrape.LinkRetries == 0 {
		c.Scrape.LinkRetries = 3
	}
	if c.Scrape.BackoffMinSecs == 0 {
		c.Scrape.BackoffMinSecs = 25
	}
	if c.Scrape.BackoffMaxSecs == 0 {
		c.Scrape.BackoffMaxSecs = 35
	}
	if c.Scrape.Source == "" {
		c.Scrape.Source = "yahoo"
	}
	if c.Scrape.TimeoutSeconds == 0 {
		c.Scrape.TimeoutSeconds = 30
	}
	if c.Predict.MinArticleBytes == 0 {
		c.Predict.MinArticleBytes = 100
	}
	if c.Predict.MinYesVotes == 0 {
		c.Predict.MinYesVotes = 4
	}
	if c.Predict.TopCounts == 0 {
		c.Predict.TopCounts = 4
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.Trading.SafeguardDollars == 0 {
		c.Trading.SafeguardDollars = 25000
	}
	if c.Trading.MaxUsableDollars == 0 {
		c.Trading.MaxUsableDollars = 7000
	}
	if c.Trading.BaseURL == "" {
		c.Trading.BaseURL = "https://paper-api.alpaca.markets"
	}
	if c.Schedule.LookbackHours == 0 {
		c.Schedule.LookbackHours = 12
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
