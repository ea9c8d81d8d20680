// Package config provides configuration for the chat assistant server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// ModeMock forces every turn onto the mock backend.
const ModeMock = "MOCK"

// Config holds the server configuration. It is built once at startup and
// passed explicitly to the components that need it.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`
	WSPort   int `yaml:"ws_port"`

	// Database
	DatabaseURL string `yaml:"database_url"`

	// Backends
	Mode     string         `yaml:"mode"`
	DeepSeek DeepSeekConfig `yaml:"deepseek"`
	Ollama   OllamaConfig   `yaml:"ollama"`

	// Timeouts
	LLMTimeout  time.Duration `yaml:"llm_timeout"`
	TurnTimeout time.Duration `yaml:"turn_timeout"`

	WebSocket WebSocketConfig `yaml:"websocket"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// DeepSeekConfig configures the primary cloud backend.
type DeepSeekConfig struct {
	APIKey string `yaml:"api_key"`
	// APIKeyParam names an SSM parameter holding the key when APIKey is empty.
	APIKeyParam string `yaml:"api_key_param"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
}

// OllamaConfig configures the local fallback backend.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// WebSocketConfig configures the real-time channel.
type WebSocketConfig struct {
	PingInterval   time.Duration `yaml:"ping_interval"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	MaxMessageSize int64         `yaml:"max_message_size"`
}

// HasDeepSeekCredential reports whether the primary backend credential is present.
func (c *Config) HasDeepSeekCredential() bool {
	return c.DeepSeek.APIKey != ""
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPPort:    8000,
		WSPort:      8001,
		DatabaseURL: "file:aichat.db?mode=rwc",
		DeepSeek: DeepSeekConfig{
			BaseURL: "https://api.deepseek.com",
			Model:   "deepseek-chat",
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "deepseek-r1:1.5b",
		},
		LLMTimeout:  120 * time.Second,
		TurnTimeout: 180 * time.Second,
		WebSocket: WebSocketConfig{
			PingInterval:   30 * time.Second,
			WriteTimeout:   10 * time.Second,
			ReadTimeout:    60 * time.Second,
			MaxMessageSize: 65536,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// environment variables and command-line flags, in increasing precedence.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("aichat", pflag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("AICHAT_CONFIG"), "path to a YAML config file")
	httpPort := fs.Int("http-port", 0, "HTTP API port")
	wsPort := fs.Int("ws-port", 0, "real-time channel port")
	dbURL := fs.String("db", "", "SQLite database DSN")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()
	if *configPath != "" {
		if err := cfg.loadFile(*configPath); err != nil {
			return nil, err
		}
	}
	cfg.loadEnv()

	if fs.Changed("http-port") {
		cfg.HTTPPort = *httpPort
	}
	if fs.Changed("ws-port") {
		cfg.WSPort = *wsPort
	}
	if fs.Changed("db") {
		cfg.DatabaseURL = *dbURL
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	c.HTTPPort = getEnvInt("HTTP_PORT", c.HTTPPort)
	c.WSPort = getEnvInt("WS_PORT", c.WSPort)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.Mode = getEnv("AICHAT_MODE", c.Mode)
	c.DeepSeek.APIKey = getEnv("DEEPSEEK_API_KEY", c.DeepSeek.APIKey)
	c.DeepSeek.APIKeyParam = getEnv("DEEPSEEK_API_KEY_PARAM", c.DeepSeek.APIKeyParam)
	c.DeepSeek.BaseURL = getEnv("DEEPSEEK_BASE_URL", c.DeepSeek.BaseURL)
	c.DeepSeek.Model = getEnv("DEEPSEEK_MODEL", c.DeepSeek.Model)
	c.Ollama.BaseURL = getEnv("OLLAMA_BASE_URL", c.Ollama.BaseURL)
	c.Ollama.Model = getEnv("OLLAMA_MODEL", c.Ollama.Model)
	c.LLMTimeout = getEnvMillis("LLM_TIMEOUT_MS", c.LLMTimeout)
	c.TurnTimeout = getEnvMillis("TURN_TIMEOUT_MS", c.TurnTimeout)
	c.WebSocket.PingInterval = getEnvMillis("WS_PING_INTERVAL_MS", c.WebSocket.PingInterval)
	c.WebSocket.WriteTimeout = getEnvMillis("WS_WRITE_TIMEOUT_MS", c.WebSocket.WriteTimeout)
	c.WebSocket.ReadTimeout = getEnvMillis("WS_READ_TIMEOUT_MS", c.WebSocket.ReadTimeout)
	c.WebSocket.MaxMessageSize = int64(getEnvInt("WS_MAX_MESSAGE_SIZE", int(c.WebSocket.MaxMessageSize)))
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvMillis(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}
