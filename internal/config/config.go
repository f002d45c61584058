// Package config loads the cv-verifier configuration file.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

const (
	App = "cv-verifier"

	ProviderNone      = "none"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Extract *ExtractConfig `mapstructure:"extract"`
	GitHub  *GitHubConfig  `mapstructure:"github"`
	Search  *SearchConfig  `mapstructure:"search"`
	AI      *AIConfig      `mapstructure:"ai"`
	Store   *StoreConfig   `mapstructure:"store" validate:"required"`
	Workers *WorkersConfig `mapstructure:"workers"`
}

type ExtractConfig struct {
	TitleKeywords []string `mapstructure:"title-keywords" validate:"dive,required"`
	// Profiles maps a company name to the keywords its roles should mention.
	Profiles  map[string]string `mapstructure:"profiles"`
	Pdftotext string            `mapstructure:"pdftotext"`
}

type GitHubConfig struct {
	APIURL        string        `mapstructure:"api-url" validate:"omitempty,url"`
	Token         string        `mapstructure:"token"`
	TokenFile     string        `mapstructure:"token-file"`
	PerPage       int           `mapstructure:"per-page" validate:"gte=0,lte=100"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gte=0"`
	RatePerSecond float64       `mapstructure:"rate-per-second" validate:"gte=0"`
	Concurrency   int           `mapstructure:"concurrency" validate:"gte=0"`
}

type SearchConfig struct {
	APIURL     string        `mapstructure:"api-url" validate:"omitempty,url"`
	APIKeyFile string        `mapstructure:"api-key-file"`
	MaxResults int           `mapstructure:"max-results" validate:"gte=0"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type AIConfig struct {
	Provider     string        `mapstructure:"provider" validate:"omitempty,oneof=none gemini anthropic"`
	Model        string        `mapstructure:"model"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	MaxLogLength int           `mapstructure:"max-log-length" validate:"gte=0"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// Enabled reports whether a comparator provider is selected.
func (c *AIConfig) Enabled() bool {
	return c != nil && c.Provider != "" && c.Provider != ProviderNone
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `mapstructure:"dsn" validate:"required"`
}

type WorkersConfig struct {
	Slots      int           `mapstructure:"slots" validate:"gte=0"`
	RunTimeout time.Duration `mapstructure:"run-timeout" validate:"gte=0"`
}

// envBindings maps config keys to the environment variables that may set
// them.
var envBindings = map[string]string{
	"github.token-file":     "GITHUB_TOKEN_FILE",
	"search.api-key-file":   "SEARCH_API_KEY_FILE",
	"ai.gemini-key-file":    "GEMINI_API_KEY_FILE",
	"ai.anthropic-key-file": "ANTHROPIC_API_KEY_FILE",
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("github.api-url", "https://api.github.com")
	v.SetDefault("github.per-page", 100)
	v.SetDefault("github.timeout", 15*time.Second)
	v.SetDefault("github.rate-per-second", 1.0)
	v.SetDefault("github.concurrency", 1)
	v.SetDefault("search.max-results", 5)
	v.SetDefault("search.timeout", 10*time.Second)
	v.SetDefault("ai.provider", ProviderNone)
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("extract.pdftotext", "pdftotext")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", App+".db")
	v.SetDefault("workers.slots", 2)
	v.SetDefault("workers.run-timeout", 10*time.Minute)
}

// Load reads the configuration. An explicit path must exist; otherwise
// cv-verifier.yaml in the working directory is optional. Values from a .env
// file are exported to the environment first.
func Load(v *viper.Viper, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "loading .env")
	}

	SetDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, eris.Wrapf(err, "binding %s environment variable", env)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(App)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "reading config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "decoding config")
	}
	cfg.normalize(v)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, eris.Wrap(err, "validating config")
	}

	return &cfg, nil
}

// KeyFile returns the API key file for the selected comparator provider.
// The provider-specific environment variable is used when the config does
// not name a file.
func (c *Config) KeyFile(v *viper.Viper) string {
	if c.AI == nil {
		return ""
	}
	if c.AI.APIKeyFile != "" {
		return c.AI.APIKeyFile
	}
	switch c.AI.Provider {
	case ProviderGemini:
		return v.GetString("ai.gemini-key-file")
	case ProviderAnthropic:
		return v.GetString("ai.anthropic-key-file")
	}
	return ""
}

func (c *Config) normalize(v *viper.Viper) {
	if c.Extract == nil {
		c.Extract = &ExtractConfig{}
	}
	if c.GitHub == nil {
		c.GitHub = &GitHubConfig{}
	}
	if c.Search == nil {
		c.Search = &SearchConfig{}
	}
	if c.AI == nil {
		c.AI = &AIConfig{}
	}
	if c.Workers == nil {
		c.Workers = &WorkersConfig{}
	}
	if c.Store == nil {
		c.Store = &StoreConfig{}
	}
	if c.GitHub.TokenFile == "" {
		c.GitHub.TokenFile = v.GetString("github.token-file")
	}
	if c.Search.APIKeyFile == "" {
		c.Search.APIKeyFile = v.GetString("search.api-key-file")
	}
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
}
