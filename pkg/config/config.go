package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGraphAPIBase    = "https://graph.facebook.com"
	DefaultGraphAPIVersion = "v12.0"
	DefaultWebhookPath     = "/webhook"
	DefaultLocation        = "global"
	DefaultLanguageCode    = "en"
	DefaultMaxConcurrency  = 4
)

// Config is the root runtime configuration loaded from config.json or config.yaml.
type Config struct {
	Messenger  MessengerConfig  `json:"messenger" yaml:"messenger"`
	Dialogflow DialogflowConfig `json:"dialogflow" yaml:"dialogflow"`
	Router     RouterConfig     `json:"router" yaml:"router"`
	Gateway    GatewayConfig    `json:"gateway" yaml:"gateway"`
	Logging    LoggingConfig    `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty" yaml:"format,omitempty" env:"PAGEBRIDGE_LOG_FORMAT"`
	Level     string `json:"level,omitempty" yaml:"level,omitempty" env:"PAGEBRIDGE_LOG_LEVEL"`
	AddSource bool   `json:"add_source,omitempty" yaml:"add_source,omitempty" env:"PAGEBRIDGE_LOG_ADD_SOURCE"`
}

// MessengerConfig configures the page webhook and the Send API client.
type MessengerConfig struct {
	VerifyToken           string `json:"verify_token" yaml:"verify_token" env:"VERIFY_TOKEN"`
	PageAccessToken       string `json:"page_access_token" yaml:"page_access_token" env:"PAGE_ACCESS_TOKEN"`
	AppSecret             string `json:"app_secret" yaml:"app_secret" env:"APP_SECRET"`
	GraphAPIBase          string `json:"graph_api_base" yaml:"graph_api_base" env:"GRAPH_API_BASE"`
	GraphAPIVersion       string `json:"graph_api_version" yaml:"graph_api_version" env:"GRAPH_API_VERSION"`
	WebhookPath           string `json:"webhook_path" yaml:"webhook_path" env:"WEBHOOK_PATH"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" yaml:"request_timeout_seconds" env:"PAGEBRIDGE_REQUEST_TIMEOUT_SECONDS"`
}

// DialogflowConfig identifies the conversational agent every session is scoped to.
type DialogflowConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id" env:"DIALOGFLOW_PROJECT_ID"`
	Location        string `json:"location" yaml:"location" env:"DIALOGFLOW_LOCATION"`
	AgentID         string `json:"agent_id" yaml:"agent_id" env:"DIALOGFLOW_AGENT_ID"`
	LanguageCode    string `json:"language_code" yaml:"language_code" env:"DIALOGFLOW_LANGUAGE_CODE"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
	Endpoint        string `json:"endpoint" yaml:"endpoint" env:"DIALOGFLOW_ENDPOINT"`
}

// RouterConfig bounds per-batch event processing.
type RouterConfig struct {
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency" env:"PAGEBRIDGE_MAX_CONCURRENCY"`
}

// GatewayConfig configures HTTP bind settings.
type GatewayConfig struct {
	Host string `json:"host" yaml:"host" env:"PAGEBRIDGE_HOST"`
	Port int    `json:"port" yaml:"port" env:"PORT"`
}

// LoadConfig resolves the config file, unmarshals it, applies environment
// overrides and fills defaults. Without a config file every value comes from
// the environment.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := unmarshal(configPath, content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

func unmarshal(path string, content []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(content, cfg)
	default:
		return json.Unmarshal(content, cfg)
	}
}

// ApplyDefaults fills unset optional values.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Messenger.GraphAPIBase) == "" {
		c.Messenger.GraphAPIBase = DefaultGraphAPIBase
	}
	if strings.TrimSpace(c.Messenger.GraphAPIVersion) == "" {
		c.Messenger.GraphAPIVersion = DefaultGraphAPIVersion
	}
	if strings.TrimSpace(c.Messenger.WebhookPath) == "" {
		c.Messenger.WebhookPath = DefaultWebhookPath
	}
	if strings.TrimSpace(c.Dialogflow.Location) == "" {
		c.Dialogflow.Location = DefaultLocation
	}
	if strings.TrimSpace(c.Dialogflow.LanguageCode) == "" {
		c.Dialogflow.LanguageCode = DefaultLanguageCode
	}
	if c.Router.MaxConcurrency <= 0 {
		c.Router.MaxConcurrency = DefaultMaxConcurrency
	}
}

// Validate reports every required value that is missing.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Messenger.VerifyToken) == "" {
		errs = append(errs, errors.New("messenger.verify_token is required"))
	}
	if strings.TrimSpace(c.Messenger.PageAccessToken) == "" {
		errs = append(errs, errors.New("messenger.page_access_token is required"))
	}
	if strings.TrimSpace(c.Dialogflow.ProjectID) == "" {
		errs = append(errs, errors.New("dialogflow.project_id is required"))
	}
	if strings.TrimSpace(c.Dialogflow.AgentID) == "" {
		errs = append(errs, errors.New("dialogflow.agent_id is required"))
	}

	return errors.Join(errs...)
}

// findConfigPath resolves the active config file location.
//
// Precedence is PAGEBRIDGE_CONFIG first, then cwd-local fallback paths. An empty
// path means no file exists.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("PAGEBRIDGE_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("PAGEBRIDGE_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config.yaml"),
		filepath.Join(cwd, "config", "config.json"),
		filepath.Join(cwd, "config", "config.yaml"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
