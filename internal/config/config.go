package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	OpenAI   OpenAIConfig   `json:"openai"`
	Tavily   TavilyConfig   `json:"tavily"`
	CORS     CORSConfig     `json:"cors"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode"`
}

// OpenAIConfig holds credentials for the conversation backend.
// AssistantID identifies the pre-configured budtender assistant used to start runs.
type OpenAIConfig struct {
	APIKey       string `json:"api_key"`
	AssistantID  string `json:"assistant_id"`
	SummaryModel string `json:"summary_model"`
}

type TavilyConfig struct {
	APIKey string `json:"api_key"`
}

type CORSConfig struct {
	Origins string `json:"origins"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	// Add config paths
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Check for user config directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".budtender"))
	}

	// Set defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "budtender")
	viper.SetDefault("database.database", "budtender")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("openai.summary_model", "gpt-3.5-turbo")
	viper.SetDefault("cors.origins", "http://localhost:3000")

	// Read config; a missing file is fine, env overrides carry the secrets
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func loadEnvOverrides(cfg *Config) {
	if port := os.Getenv("BUDTENDER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("BUDTENDER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if origins := os.Getenv("BUDTENDER_CORS_ORIGINS"); origins != "" {
		cfg.CORS.Origins = origins
	}

	// Database overrides
	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}

	// External service credentials are deployment configuration
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}
	if id := os.Getenv("ASSISTANT_ID"); id != "" {
		cfg.OpenAI.AssistantID = id
	}
	if model := os.Getenv("SUMMARY_MODEL"); model != "" {
		cfg.OpenAI.SummaryModel = model
	}
	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		cfg.Tavily.APIKey = key
	}
}
