package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Regions       []string      `yaml:"regions"`
	Sources       Sources       `yaml:"sources"`
	Collection    Collection    `yaml:"collection"`
	Sections      []Section     `yaml:"sections"`
	Credibility   Credibility   `yaml:"credibility"`
	Alerts        Alerts        `yaml:"alerts"`
	Market        Market        `yaml:"market"`
	Summarization Summarization `yaml:"summarization"`
	Output        Output        `yaml:"output"`
	Server        Server        `yaml:"server"`
	Logging       Logging       `yaml:"logging"`
}

type Sources struct {
	Groups []Group    `yaml:"groups"`
	APIs   APIsConfig `yaml:"apis"`
}

// Group is a named list of feed URLs. Groups are kept as a list so that
// collection order follows the file.
type Group struct {
	Name  string   `yaml:"name"`
	Feeds []string `yaml:"feeds"`
}

type APIsConfig struct {
	NewsAPI NewsAPIConfig `yaml:"newsapi"`
}

type NewsAPIConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	Query     string `yaml:"query"`
	PageSize  int    `yaml:"page_size"`
}

type Collection struct {
	PerSource    int    `yaml:"per_source"`
	Concurrency  int    `yaml:"concurrency"`
	Timeout      string `yaml:"timeout"`
	FetchContent bool   `yaml:"fetch_content"`
}

// Section is a topic bucket filled by keyword matching on titles.
type Section struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Max      int      `yaml:"max"`
}

type Credibility struct {
	FactCheckDomains []string `yaml:"fact_check_domains"`
	Matcher          string   `yaml:"matcher"` // "prefix" or "embedding"
	PrefixTokens     int      `yaml:"prefix_tokens"`
	Similarity       float64  `yaml:"similarity"`
}

type Alerts struct {
	ColdWarKeywords []string `yaml:"cold_war_keywords"`
	Investors       []string `yaml:"investors"`
}

type Market struct {
	Enabled     bool               `yaml:"enabled"`
	Instruments []Instrument       `yaml:"instruments"`
	Thresholds  map[string]float64 `yaml:"thresholds"`
}

// Instrument names one market quote. Provider is "yahoo" or "coingecko";
// an unknown provider leaves the instrument out of the snapshot.
type Instrument struct {
	Key        string `yaml:"key"`
	Provider   string `yaml:"provider"`
	Identifier string `yaml:"identifier"`
	Kind       string `yaml:"kind"` // stock, crypto, gold
}

type Summarization struct {
	Provider       string           `yaml:"provider"` // ollama, openai, truncate
	Model          string           `yaml:"model"`
	OllamaURL      string           `yaml:"ollama_url"`
	EmbeddingModel string           `yaml:"embedding_model"`
	OpenAIModel    string           `yaml:"openai_model"`
	APIKeyEnv      string           `yaml:"api_key_env"`
	MaxTokens      int              `yaml:"max_tokens"`
	MaxChars       int              `yaml:"max_chars"`
	Tone           string           `yaml:"tone"`
	Examples       []SummaryExample `yaml:"examples"`
}

// SummaryExample is a preferred article/summary pair used as a few-shot
// example in the summarization prompt.
type SummaryExample struct {
	Article string `yaml:"article"`
	Summary string `yaml:"summary"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
	Store   bool   `yaml:"store"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for newsdigest.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newsdigest")
}

// DataDir returns the XDG data directory for newsdigest.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "newsdigest")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newsdigest/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'newsdigest init' to create a default config",
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

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	return parse(DefaultConfigYAML)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			APIs: APIsConfig{
				NewsAPI: NewsAPIConfig{
					APIKeyEnv: "NEWSAPI_KEY",
					PageSize:  50,
				},
			},
		},
		Collection: Collection{
			PerSource:   5,
			Concurrency: 4,
			Timeout:     "15s",
		},
		Credibility: Credibility{
			Matcher:      "prefix",
			PrefixTokens: 5,
			Similarity:   0.9,
		},
		Summarization: Summarization{
			Provider:       "truncate",
			Model:          "qwen2.5:7b",
			OllamaURL:      "http://localhost:11434",
			EmbeddingModel: "nomic-embed-text",
			OpenAIModel:    "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			MaxTokens:      200,
			MaxChars:       800,
			Tone:           "concise neutral",
		},
		Output:  Output{Store: true},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if _, err := time.ParseDuration(cfg.Collection.Timeout); err != nil {
		return nil, fmt.Errorf("invalid collection.timeout %q: %w", cfg.Collection.Timeout, err)
	}
	for i, s := range cfg.Sections {
		if s.Name == "" {
			return nil, fmt.Errorf("section %d has no name", i)
		}
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// FetchTimeout returns the per-source timeout. parse has already validated it.
func (c *Config) FetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Collection.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// Threshold returns the movement alert threshold for an instrument kind,
// or 0 when none is configured.
func (c *Config) Threshold(kind string) float64 {
	return c.Market.Thresholds[kind+"_move_pct"]
}

// FeedGroups returns the configured groups as name -> feeds pairs in file order.
func (c *Config) FeedGroups() []Group {
	return c.Sources.Groups
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
