// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like MAILJET_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overrides, ignored when absent
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideFromEnv(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from multiple possible locations so the binary and
// the tests can run from different working directories.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "notification-dispatcher"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.App.MetricsAddr == "" {
		cfg.App.MetricsAddr = ":9090"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.DispatchTopic == "" {
		cfg.Kafka.DispatchTopic = "notification.dispatch"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "notification-dispatcher"
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = 250
	}

	if cfg.Mailjet.SendURL == "" {
		cfg.Mailjet.SendURL = "https://api.mailjet.com/v3.1/send"
	}
	if cfg.Mailjet.TemplateURL == "" {
		cfg.Mailjet.TemplateURL = "https://api.mailjet.com/v3/REST/template"
	}
	if cfg.Mailjet.Timeout == 0 {
		cfg.Mailjet.Timeout = 10000
	}
	if cfg.Mailjet.TemplateRefresh == 0 {
		cfg.Mailjet.TemplateRefresh = 60
	}

	if cfg.SMS.AWSRegion == "" {
		cfg.SMS.AWSRegion = "eu-central-1"
	}

	if cfg.Mercure.Timeout == 0 {
		cfg.Mercure.Timeout = 5000
	}

	if cfg.Directory.Timeout == 0 {
		cfg.Directory.Timeout = 10000
	}

	if cfg.Dispatch.BatchSize == 0 {
		cfg.Dispatch.BatchSize = 50
	}
	if cfg.Dispatch.PoolSize == 0 {
		cfg.Dispatch.PoolSize = 4
	}
	if cfg.Dispatch.UploadDir == "" {
		cfg.Dispatch.UploadDir = "var/uploads"
	}
	if cfg.Dispatch.Timeout == 0 {
		cfg.Dispatch.Timeout = 60000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// overrideFromEnv fills credentials that are commonly provided only through
// the environment, not the yaml files.
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("MAILJET_API_KEY"); v != "" {
		cfg.Mailjet.APIKey = v
	}
	if v := os.Getenv("MAILJET_SECRET_KEY"); v != "" {
		cfg.Mailjet.SecretKey = v
	}
	if v := os.Getenv("MAILJET_SENDER_EMAIL"); v != "" {
		cfg.Mailjet.SenderEmail = v
	}
	if v := os.Getenv("MERCURE_JWT_TOKEN"); v != "" {
		cfg.Mercure.JWTToken = v
	}
	if v := os.Getenv("DIRECTORY_API_KEY"); v != "" {
		cfg.Directory.APIKey = v
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Mailjet.SenderEmail == "" {
		return fmt.Errorf("mailjet.sender_email is required")
	}
	if cfg.Mercure.HubURL == "" {
		return fmt.Errorf("mercure.hub_url is required")
	}
	if cfg.Mercure.PublicURL == "" {
		return fmt.Errorf("mercure.public_url is required")
	}
	if cfg.Directory.BaseURL == "" {
		return fmt.Errorf("directory.base_url is required")
	}
	if cfg.Dispatch.BatchSize < 1 {
		return fmt.Errorf("dispatch.batch_size must be positive")
	}
	return nil
}
