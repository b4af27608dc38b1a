// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Mailjet   MailjetConfig   `mapstructure:"mailjet"`
	SMS       SMSConfig       `mapstructure:"sms"`
	Mercure   MercureConfig   `mapstructure:"mercure"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig holds settings for the dispatch command queue.
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	DispatchTopic string   `mapstructure:"dispatch_topic"`
	GroupID       string   `mapstructure:"group_id"`
	MaxRetries    int      `mapstructure:"max_retries"`
	RetryBackoff  int      `mapstructure:"retry_backoff"` // milliseconds
}

// --- Provider Configuration Sections ---

// MailjetConfig holds settings for the Mailjet send and template APIs.
type MailjetConfig struct {
	APIKey          string `mapstructure:"api_key"`
	SecretKey       string `mapstructure:"secret_key"`
	SenderEmail     string `mapstructure:"sender_email"`
	SendURL         string `mapstructure:"send_url"`
	TemplateURL     string `mapstructure:"template_url"`
	Timeout         int    `mapstructure:"timeout"`          // milliseconds
	TemplateRefresh int    `mapstructure:"template_refresh"` // minutes
}

// SMSConfig holds settings for the SNS-backed SMS gateway.
type SMSConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	AWSRegion       string `mapstructure:"aws_region"`
	DefaultSenderID string `mapstructure:"default_sender_id"`
}

// MercureConfig holds settings for the push hub.
type MercureConfig struct {
	HubURL    string `mapstructure:"hub_url"`
	PublicURL string `mapstructure:"public_url"`
	JWTToken  string `mapstructure:"jwt_token"`
	Timeout   int    `mapstructure:"timeout"` // milliseconds
}

// DirectoryConfig holds settings for the user-directory API.
type DirectoryConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	MediaURL string `mapstructure:"media_url"`
	APIKey   string `mapstructure:"api_key"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds
}

// DispatchConfig holds settings for the delivery orchestrator.
type DispatchConfig struct {
	BatchSize  int    `mapstructure:"batch_size"`
	PoolSize   int    `mapstructure:"pool_size"`
	UploadDir  string `mapstructure:"upload_dir"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds, per dispatch
	MaxRetries int    `mapstructure:"max_retries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
