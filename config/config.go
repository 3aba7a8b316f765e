package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/upb/tron-node-provider/services/providers"
	"github.com/upb/tron-node-provider/utils"
)

// DefaultNodeURL is used for every node role that is not configured.
const DefaultNodeURL = "https://api.trongrid.io"

// APIKeyHeader carries TRON_API_KEY to hosted nodes.
const APIKeyHeader = "TRON-PRO-API-KEY"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Nodes         NodesConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int           `validate:"gt=0,max=65535"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// NodesConfig holds the Tron node endpoints and the options shared by every
// provider built from them.
type NodesConfig struct {
	FullNode     string        `validate:"required,http_url"`
	SolidityNode string        `validate:"required,http_url"`
	EventServer  string        `validate:"required,http_url"`
	Timeout      time.Duration `validate:"gte=0"`
	Proxy        string        `validate:"omitempty,url"`
	APIKey       string
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string `validate:"required,oneof=debug info warn error"`
	LogFormat      string `validate:"required,oneof=json text"`
	MetricsEnabled bool
	MetricsPort    int `validate:"gte=0,max=65535"`
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Nodes: nodesFromEnv(),
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	for _, section := range []interface{}{&c.Server, &c.Nodes, &c.Observability} {
		if err := utils.ValidateStruct(section); err != nil {
			if fields := utils.GetValidationFields(err); len(fields) > 0 {
				return fmt.Errorf("%w: %v", err, fields)
			}
			return err
		}
	}

	// A public endpoint without a key is throttled hard; refuse it in production.
	if c.IsProduction() && c.Nodes.APIKey == "" && c.Nodes.usesDefault() {
		return fmt.Errorf("TRON_API_KEY is required in production when using %s", DefaultNodeURL)
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// URLs returns the configured endpoint for every node role.
func (n *NodesConfig) URLs() map[providers.Role]string {
	return map[providers.Role]string{
		providers.RoleFullNode:     n.FullNode,
		providers.RoleSolidityNode: n.SolidityNode,
		providers.RoleEventServer:  n.EventServer,
	}
}

// RequestOptions builds the options every provider applies. Headers stay nil
// unless an API key is set, so providers fall back to the default set.
func (n *NodesConfig) RequestOptions() providers.RequestOptions {
	opts := providers.RequestOptions{
		Timeout: n.Timeout,
		Proxy:   n.Proxy,
	}
	if n.APIKey != "" {
		opts.Headers = providers.DefaultHeaders()
		opts.Headers[APIKeyHeader] = n.APIKey
	}
	return opts
}

func (n *NodesConfig) usesDefault() bool {
	return n.FullNode == DefaultNodeURL || n.SolidityNode == DefaultNodeURL || n.EventServer == DefaultNodeURL
}

// LoadNodes reads only the node section. Used by tools that talk to nodes
// directly without running the gateway.
func LoadNodes() (*NodesConfig, error) {
	_ = godotenv.Load(".env")

	nodes := nodesFromEnv()
	if err := utils.ValidateStruct(&nodes); err != nil {
		return nil, fmt.Errorf("node config validation failed: %w", err)
	}
	return &nodes, nil
}

// Helper functions

func nodesFromEnv() NodesConfig {
	return NodesConfig{
		FullNode:     getEnv("TRON_FULL_NODE", DefaultNodeURL),
		SolidityNode: getEnv("TRON_SOLIDITY_NODE", DefaultNodeURL),
		EventServer:  getEnv("TRON_EVENT_SERVER", DefaultNodeURL),
		Timeout:      getEnvAsDuration("TRON_REQUEST_TIMEOUT", providers.DefaultTimeout),
		Proxy:        getEnv("TRON_PROXY", ""),
		APIKey:       getEnv("TRON_API_KEY", ""),
	}
}

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
