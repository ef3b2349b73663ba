package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values
const (
	DefaultMaxBodySize int64 = 2 * 1024 * 1024 // 2MB
	DefaultConfigPath        = "config.yaml"
)

// MCPServerConfig holds configuration for a single MCP server
type MCPServerConfig struct {
	Endpoint     string   `yaml:"endpoint"`
	Token        string   `yaml:"-"`             // From Env
	AllowedTools []string `yaml:"allowed_tools"` // Whitelist of tools to expose
}

// PromptsConfig holds configuration for prompt loading
type PromptsConfig struct {
	Dir string `yaml:"dir"` // Root directory for prompt files
}

// Config holds the configuration for the PR review automation tool
type Config struct {
	Log struct {
		Level    string `yaml:"level"`  // DEBUG, INFO, WARN, ERROR
		Format   string `yaml:"format"` // text, json
		Output   string `yaml:"output"` // stdout, stderr, or a comma-separated list of file paths
		Rotation struct {
			MaxSize    int  `yaml:"max_size"` // megabytes
			MaxBackups int  `yaml:"max_backups"`
			MaxAge     int  `yaml:"max_age"` // days
			Compress   bool `yaml:"compress"`
		} `yaml:"rotation"`
	} `yaml:"log"`

	Server struct {
		Port             int           `yaml:"port"`
		ConcurrencyLimit int64         `yaml:"concurrency_limit"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxBodySize      int64         `yaml:"max_body_size"`
		WebhookSecret    string        `yaml:"-"` // From Env
	} `yaml:"server"`

	LLM struct {
		Model            string        `yaml:"model"`
		FallbackModel    string        `yaml:"fallback_model"`
		Endpoint         string        `yaml:"endpoint"`
		APIKey           string        `yaml:"api_key"` // From YAML or Env
		Temperature      float64       `yaml:"temperature"`
		MaxTokens        int           `yaml:"max_tokens"`
		MaxContextTokens int           `yaml:"max_context_tokens"`
		Timeout          time.Duration `yaml:"timeout"`
		MaxRetries       int           `yaml:"max_retries"`
		RetryBackoff     time.Duration `yaml:"retry_backoff"`
	} `yaml:"llm"`

	Filter FilterConfig `yaml:"filter"`

	Review ReviewConfig `yaml:"review"`

	VerifyFix VerifyFixConfig `yaml:"verify_fix"`

	Webhook WebhookConfig `yaml:"webhook"`

	Bot struct {
		Name  string `yaml:"name"`  // used in the help footer and walkthrough heading
		Login string `yaml:"login"` // provider username, compared via provider.NormalizeLogin
	} `yaml:"bot"`

	MCP struct {
		Retry struct {
			Attempts   int           `yaml:"attempts"`
			Backoff    time.Duration `yaml:"backoff"`
			MaxBackoff time.Duration `yaml:"max_backoff"`
		} `yaml:"retry"`
		Bitbucket  MCPServerConfig `yaml:"bitbucket"`
		Jira       MCPServerConfig `yaml:"jira"`
		Confluence MCPServerConfig `yaml:"confluence"`
		// ResponseFilter bounds how much of each MCP tool response is kept
		// before it's handed to the review pipeline.
		ResponseFilter struct {
			MaxStringLen int `yaml:"max_string_len"`
		} `yaml:"response_filter"`
	} `yaml:"mcp"`

	Prompts PromptsConfig `yaml:"prompts"`

	Storage StorageConfig `yaml:"storage"`
}

// StorageConfig holds configuration for review persistence
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite
	DSN    string `yaml:"dsn"`    // Connection string
}

// GetLogLevel returns the slog.Level based on Log.Level string
func (c *Config) GetLogLevel() slog.Level {
	switch strings.ToUpper(c.Log.Level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig loads configuration from YAML file and supplements with environment variables
func LoadConfig() *Config {
	cfg := &Config{}

	// Set some defaults before loading
	cfg.Log.Level = "INFO"
	cfg.Log.Format = "text"
	cfg.Log.Output = "stdout"
	cfg.Server.Port = 8080
	cfg.Server.ConcurrencyLimit = 10
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.MaxBodySize = DefaultMaxBodySize
	cfg.LLM.Endpoint = "https://api.openai.com/v1"
	cfg.LLM.Model = "gpt-4o"
	cfg.LLM.Temperature = 0.2
	cfg.LLM.MaxTokens = 4096
	cfg.LLM.MaxContextTokens = 120_000
	cfg.LLM.Timeout = 60 * time.Second
	cfg.LLM.MaxRetries = 2
	cfg.LLM.RetryBackoff = 2 * time.Second
	cfg.MCP.Retry.Attempts = 3
	cfg.MCP.Retry.Backoff = 1 * time.Second
	cfg.MCP.Retry.MaxBackoff = 30 * time.Second
	cfg.MCP.ResponseFilter.MaxStringLen = 100000
	cfg.Prompts.Dir = "prompts"
	cfg.Filter = DefaultFilterConfig()
	cfg.Review = DefaultReviewConfig()
	cfg.VerifyFix = DefaultVerifyFixConfig()
	cfg.Webhook = DefaultWebhookConfig()
	cfg.Bot.Name = "miracodeai"
	cfg.Bot.Login = "miracodeai[bot]"
	cfg.Log.Rotation.MaxSize = 100
	cfg.Log.Rotation.MaxBackups = 5
	cfg.Log.Rotation.MaxAge = 28
	cfg.Log.Rotation.Compress = true

	// Try to load from YAML
	configPath := getEnv("CONFIG_PATH", DefaultConfigPath)
	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			slog.Error("unmarshal config failed", "error", err, "path", configPath)
			os.Exit(1)
		}
		slog.Info("config loaded", "path", configPath)
	} else {
		if !os.IsNotExist(err) {
			slog.Error("read config failed", "error", err, "path", configPath)
			os.Exit(1)
		}
		slog.Info("config not found, using defaults", "path", configPath)
	}

	// Always supplement/override with environment variables for secrets and critical items
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.Server.WebhookSecret = getEnv("WEBHOOK_SECRET", cfg.Server.WebhookSecret)

	cfg.MCP.Bitbucket.Token = getEnv("BITBUCKET_MCP_TOKEN", cfg.MCP.Bitbucket.Token)
	cfg.MCP.Jira.Token = getEnv("JIRA_MCP_TOKEN", cfg.MCP.Jira.Token)
	cfg.MCP.Confluence.Token = getEnv("CONFLUENCE_MCP_TOKEN", cfg.MCP.Confluence.Token)

	// Support for existing environment variables for backward compatibility (optional but keep some common ones)
	if envPort := getEnvInt("PORT", 0); envPort != 0 {
		cfg.Server.Port = envPort
	}
	if envLogLevel := os.Getenv("LOG_LEVEL"); envLogLevel != "" {
		cfg.Log.Level = envLogLevel
	}
	if envLogFormat := os.Getenv("LOG_FORMAT"); envLogFormat != "" {
		cfg.Log.Format = envLogFormat
	}
	if envLogOutput := os.Getenv("LOG_OUTPUT"); envLogOutput != "" {
		cfg.Log.Output = envLogOutput
	}

	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if c.LLM.APIKey == "" {
		errs = append(errs, "LLM_API_KEY is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid server port: %d", c.Server.Port))
	}

	// At least one MCP endpoint should be configured
	if c.MCP.Bitbucket.Endpoint == "" && c.MCP.Jira.Endpoint == "" && c.MCP.Confluence.Endpoint == "" {
		errs = append(errs, "at least one MCP endpoint must be configured")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
