package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 服务全部配置，启动时从环境变量装载一次并显式注入各组件
// Config holds every runtime setting. It is loaded once at startup and
// injected explicitly into components; nothing reads the environment later.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Provider ProviderConfig
	Agent    AgentConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	Path string
}

type JWTConfig struct {
	Secret        string
	TokenDuration time.Duration
}

// ProviderConfig configures the completion-service client.
type ProviderConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	TimeoutMS   int
	MaxRetries  int
}

// AgentConfig configures the chat orchestrator.
type AgentConfig struct {
	Instructions        string
	MaxContextMessages  int
	ContextTokenLimit   int
	ConfirmationEnabled bool
	RateLimitPerMinute  int
	// ToolPolicy holds per-tool decisions, e.g. "delete_task=ask,*=allow".
	ToolPolicy string
}

const defaultInstructions = `You are a helpful todo management assistant. Help users manage their tasks by using the appropriate tools.
When users want to add a task, use the add_task function.
When users want to see their tasks, use the list_tasks function.
When users want to complete a task, use the complete_task function.
When users want to delete a task, use the delete_task function.
When users want to update a task, use the update_task function.
Always be helpful, friendly, and professional in your responses.
If a user asks for something that requires a tool, ask for confirmation before proceeding with destructive actions (delete, complete, update).
For ambiguous requests, ask for clarification before using tools.`

// Load builds a Config from the environment with development defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("HTTP_PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "todo.db"),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			TokenDuration: getEnvAsDuration("JWT_TOKEN_DURATION", 24*time.Hour),
		},
		Provider: ProviderConfig{
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4-turbo"),
			Temperature: getEnvAsFloat("OPENAI_TEMPERATURE", 0.7),
			TimeoutMS:   getEnvAsInt("OPENAI_TIMEOUT_MS", 60000),
			MaxRetries:  getEnvAsInt("OPENAI_MAX_RETRIES", 3),
		},
		Agent: AgentConfig{
			Instructions:        getEnv("AGENT_INSTRUCTIONS", defaultInstructions),
			MaxContextMessages:  getEnvAsInt("MAX_CONTEXT_MESSAGES", 20),
			ContextTokenLimit:   getEnvAsInt("CONTEXT_TOKEN_LIMIT", 8000),
			ConfirmationEnabled: getEnvAsBool("ENABLE_CONFIRMATION_PROMPTS", true),
			RateLimitPerMinute:  getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 60),
			ToolPolicy:          getEnv("TOOL_POLICY", ""),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DATABASE_PATH is empty")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("JWT_SECRET is empty")
	}
	if c.Agent.MaxContextMessages <= 0 {
		return fmt.Errorf("MAX_CONTEXT_MESSAGES must be positive, got %d", c.Agent.MaxContextMessages)
	}
	if c.Provider.MaxRetries < 0 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must not be negative, got %d", c.Provider.MaxRetries)
	}
	return nil
}

// ProviderConfigured reports whether the completion service can be reached.
// When false the agent runs in degraded fallback mode.
func (c *Config) ProviderConfigured() bool {
	return strings.TrimSpace(c.Provider.APIKey) != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	return strings.EqualFold(valueStr, "true") || valueStr == "1"
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}
