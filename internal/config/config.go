package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Events   EventsConfig   `mapstructure:"events"`
	Agent    AgentConfig    `mapstructure:"agent"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// AllowedOrigins lists the CORS origins permitted to call the API.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`

	// MaxOpenConns bounds the connection pool; 0 means unlimited.
	MaxOpenConns int `mapstructure:"max_open_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`

	// TokenLifetimeMinutes is the access-token validity window.
	TokenLifetimeMinutes int `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`

	// BcryptCost tunes password hashing; 0 selects the service default.
	BcryptCost int `mapstructure:"bcrypt_cost" validate:"gte=0,lte=31"`
}

// EventsConfig selects the lifecycle event transport. With Enabled false a
// no-op publisher is used; with no brokers configured events stay in-process
// on the channel bus.
type EventsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// KafkaBrokers lists broker addresses. Empty selects the in-process bus.
	KafkaBrokers []string `mapstructure:"kafka_brokers"`

	// ConsumerGroup names the Kafka consumer group.
	ConsumerGroup string `mapstructure:"consumer_group"`

	// BufferSize sizes each in-process topic channel.
	BufferSize int `mapstructure:"buffer_size" validate:"gte=0"`
}

// AgentConfig contains the LLM assistant settings. The agent is optional:
// with no API key the chat endpoint reports unavailable.
type AgentConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name"`
}
