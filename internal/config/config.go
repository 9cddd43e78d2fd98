package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Categories []Category `yaml:"categories"`
	Scraper    Scraper    `yaml:"scraper"`
	Generation Generation `yaml:"generation"`
	Publishing Publishing `yaml:"publishing"`
	Schedule   Schedule   `yaml:"schedule"`
	Cleanup    Cleanup    `yaml:"cleanup"`
	Server     Server     `yaml:"server"`
	Output     Output     `yaml:"output"`
}

// Category maps a content category to its feed endpoints.
type Category struct {
	Name  string   `yaml:"name"`
	Feeds []string `yaml:"feeds"`
}

type Scraper struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent"`
	MaxContentLen  int    `yaml:"max_content_len"`
	MaxKeywords    int    `yaml:"max_keywords"`
	ItemsPerRun    int    `yaml:"items_per_run"`
}

type Generation struct {
	Provider          string `yaml:"provider"`
	Model             string `yaml:"model"`
	OllamaURL         string `yaml:"ollama_url"`
	OpenAIModel       string `yaml:"openai_model"`
	APIKeyEnv         string `yaml:"api_key_env"`
	MaxTokens         int    `yaml:"max_tokens"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type Publishing struct {
	QualityThreshold int    `yaml:"quality_threshold"`
	BatchSize        int    `yaml:"batch_size"`
	BatchDelaySecs   int    `yaml:"batch_delay_seconds"`
	AuthorName       string `yaml:"author_name"`
}

// Schedule holds the cron expressions for the background jobs.
type Schedule struct {
	DailyGeneration string `yaml:"daily_generation"`
	HourlyPublish   string `yaml:"hourly_publish"`
	WeeklyCleanup   string `yaml:"weekly_cleanup"`
	HealthCheck     string `yaml:"health_check"`
}

type Cleanup struct {
	FailedRetentionDays   int `yaml:"failed_retention_days"`
	RejectedRetentionDays int `yaml:"rejected_retention_days"`
	StalePendingDays      int `yaml:"stale_pending_days"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

// ConfigDir returns the XDG config directory for newsforge.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newsforge")
}

// DataDir returns the XDG data directory for newsforge.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "newsforge")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newsforge/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'newsforge init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Scraper: Scraper{
			TimeoutSeconds: 15,
			UserAgent:      "newsforge/1.0 (content pipeline)",
			MaxContentLen:  3000,
			MaxKeywords:    10,
			ItemsPerRun:    3,
		},
		Generation: Generation{
			Provider:          "ollama",
			Model:             "qwen2.5:7b",
			OllamaURL:         "http://localhost:11434",
			OpenAIModel:       "gpt-4o-mini",
			APIKeyEnv:         "OPENAI_API_KEY",
			MaxTokens:         1536,
			RequestsPerMinute: 30,
		},
		Publishing: Publishing{
			QualityThreshold: 70,
			BatchSize:        5,
			BatchDelaySecs:   2,
			AuthorName:       "Daily Drip",
		},
		Schedule: Schedule{
			DailyGeneration: "0 6 * * *",
			HourlyPublish:   "0 * * * *",
			WeeklyCleanup:   "0 3 * * 0",
			HealthCheck:     "0 */6 * * *",
		},
		Cleanup: Cleanup{
			FailedRetentionDays:   7,
			RejectedRetentionDays: 30,
			StalePendingDays:      7,
		},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	for _, c := range cfg.Categories {
		if !validCategory(c.Name) {
			return nil, fmt.Errorf("unknown category %q in config", c.Name)
		}
	}

	return cfg, nil
}

var categoryNames = []string{"news", "technology", "space", "ocean", "nature", "travel"}

func validCategory(name string) bool {
	for _, c := range categoryNames {
		if c == name {
			return true
		}
	}
	return false
}

// CategoryNames returns the names of all configured categories.
func (c *Config) CategoryNames() []string {
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	return names
}

// FeedsFor returns the feed URLs configured for a category.
func (c *Config) FeedsFor(category string) []string {
	for _, cat := range c.Categories {
		if cat.Name == category {
			return cat.Feeds
		}
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
