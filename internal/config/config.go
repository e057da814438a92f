// Package config provides configuration management for the jobtrack application.
// It handles loading configuration from environment variables with sensible defaults
// and validates the configuration to ensure the application starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//
// Database Configuration:
//   - DATABASE_TYPE: Database type - "sqlite" or "postgres" (default: sqlite)
//   - DATABASE_PATH: SQLite database file path (default: ./jobtrack.db)
//   - POSTGRES_HOST: PostgreSQL host (required if using PostgreSQL)
//   - POSTGRES_PORT: PostgreSQL port (default: 5432)
//   - POSTGRES_DB: PostgreSQL database name (required if using PostgreSQL)
//   - POSTGRES_USER: PostgreSQL username (required if using PostgreSQL)
//   - POSTGRES_PASSWORD: PostgreSQL password
//   - POSTGRES_SSL_MODE: PostgreSQL SSL mode (default: disable)
//
// Redis Configuration (optional; in-process fallbacks are used when unset):
//   - REDIS_ADDRESS: Redis server address
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Security Configuration:
//   - JWT_SECRET: JWT signing secret (required, minimum 32 characters)
//   - ENCRYPTION_KEY: Key for encrypting stored tokens (required in database token store mode)
//   - ADMIN_USERNAME: Login username (default: admin)
//   - ADMIN_PASSWORD_HASH: bcrypt hash of the login password (required)
//
// OAuth / Google Configuration:
//   - GOOGLE_CLIENT_ID: OAuth client id (required)
//   - GOOGLE_CLIENT_SECRET: OAuth client secret (required)
//   - GOOGLE_REDIRECT_URL: OAuth callback URL (required)
//   - GOOGLE_SCOPES: Comma-separated scopes (default: gmail.readonly)
//   - GOOGLE_MAPS_API_KEY: Maps API key (maps endpoints disabled when unset)
//
// Token Store:
//   - TOKEN_STORE: "file" or "database" (default: file)
//   - TOKEN_FILE_PATH: Credential file path in file mode (default: ./token.json)
//
// Dashboard:
//   - HIGHLIGHT_KEYWORD: Snippet keyword that flags an email (default: unfortunately)
//   - EXCLUDED_SENDERS: Comma-separated sender addresses excluded from the unread query
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration values for the jobtrack application.
// All string fields correspond to environment variables that can be set to
// override the default values.
//
// The configuration is loaded using the Load() function and should be
// validated using the Validate() method before use.
type Config struct {
	// Application settings
	Port     string // Server port number
	LogLevel string // Logging level (debug, info, warn, error)

	// Database configuration
	DatabaseType     string // Database type: "sqlite" or "postgres"
	DatabasePath     string // Path to SQLite database file
	PostgresHost     string // PostgreSQL host address
	PostgresPort     string // PostgreSQL port number
	PostgresDB       string // PostgreSQL database name
	PostgresUser     string // PostgreSQL username
	PostgresPassword string // PostgreSQL password
	PostgresSSLMode  string // PostgreSQL SSL mode (disable, require, etc.)

	// Redis configuration for distributed coordination. Empty address means
	// in-process locks and state storage are used instead.
	RedisAddress  string // Redis server address (host:port)
	RedisPassword string // Redis authentication password
	RedisDB       string // Redis database number (0-15)
	RedisPoolSize string // Redis connection pool size

	// Authentication configuration
	JWTSecret         string // Secret key for JWT token signing (required)
	AdminUsername     string // Login username
	AdminPasswordHash string // bcrypt hash of the login password

	// Encryption configuration
	EncryptionKey string // Key for encrypting stored refresh tokens and secrets

	// OAuth provider configuration
	GoogleClientID     string   // OAuth2 client id
	GoogleClientSecret string   // OAuth2 client secret
	GoogleRedirectURL  string   // OAuth2 callback URL registered with the provider
	GoogleScopes       []string // Scopes requested at consent time

	// Token store configuration
	TokenStore    string // "file" or "database"
	TokenFilePath string // Credential file path in file mode

	// Dashboard configuration
	HighlightKeyword string   // Snippet keyword that flags an unread email
	ExcludedSenders  []string // Sender addresses excluded from the unread query

	// Maps configuration
	MapsAPIKey string // Google Maps API key
}

// Load creates a new Config instance with values loaded from environment variables.
// If an environment variable is not set, the corresponding default value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config to ensure all required values are properly set and valid.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseType:     getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath:     getEnv("DATABASE_PATH", "./jobtrack.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "jobtrack"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
		RedisPoolSize: getEnv("REDIS_POOL_SIZE", "10"),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		GoogleScopes:       getListEnv("GOOGLE_SCOPES", []string{"https://www.googleapis.com/auth/gmail.readonly"}),

		TokenStore:    getEnv("TOKEN_STORE", "file"),
		TokenFilePath: getEnv("TOKEN_FILE_PATH", "./token.json"),

		HighlightKeyword: getEnv("HIGHLIGHT_KEYWORD", "unfortunately"),
		ExcludedSenders:  getListEnv("EXCLUDED_SENDERS", nil),

		MapsAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getListEnv retrieves a comma-separated environment variable as a slice,
// trimming whitespace and dropping empty entries.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// Validate performs comprehensive validation on the configuration to ensure
// all required fields are present and all values are valid.
//
// This method checks:
//   - Required fields (JWT_SECRET, admin credentials, OAuth client settings)
//   - Field format validation (ports, Redis database numbers)
//   - Cross-field dependencies (PostgreSQL settings, encryption key in database
//     token store mode)
func (c *Config) Validate() error {
	// Validate required fields
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}

	// Validate JWT secret length
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long for security")
	}

	if c.AdminPasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH environment variable is required")
	}

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	// Validate database type
	switch c.DatabaseType {
	case "sqlite", "postgres", "postgresql":
		// Valid database types
	default:
		return fmt.Errorf("DATABASE_TYPE must be 'sqlite' or 'postgres'")
	}

	// Validate PostgreSQL config if using PostgreSQL
	if c.DatabaseType == "postgres" || c.DatabaseType == "postgresql" {
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if port, err := strconv.Atoi(c.PostgresPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	}

	// Validate Redis config if provided
	if c.RedisAddress != "" {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
	}

	// Validate OAuth configuration
	if c.GoogleClientID == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID environment variable is required")
	}
	if c.GoogleClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_SECRET environment variable is required")
	}
	if c.GoogleRedirectURL == "" {
		return fmt.Errorf("GOOGLE_REDIRECT_URL environment variable is required")
	}
	if len(c.GoogleScopes) == 0 {
		return fmt.Errorf("GOOGLE_SCOPES must contain at least one scope")
	}

	// Validate token store mode
	switch c.TokenStore {
	case "file":
		if c.TokenFilePath == "" {
			return fmt.Errorf("TOKEN_FILE_PATH is required when TOKEN_STORE is 'file'")
		}
	case "database":
		// Stored refresh tokens are encrypted at rest in database mode
		if c.EncryptionKey == "" {
			return fmt.Errorf("ENCRYPTION_KEY is required when TOKEN_STORE is 'database'")
		}
	default:
		return fmt.Errorf("TOKEN_STORE must be 'file' or 'database'")
	}

	// Validate encryption key if provided
	if c.EncryptionKey != "" && len(c.EncryptionKey) < 16 {
		return fmt.Errorf("ENCRYPTION_KEY must be at least 16 characters when provided")
	}

	return nil
}

// PostgresDSN builds the connection string for the PostgreSQL driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresUser, c.PostgresPassword, c.PostgresSSLMode)
}
