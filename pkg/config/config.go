// Package config loads service configuration from the environment and the
// optional policy definitions file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dhawalhost/permitkit/pkg/database"
	"github.com/dhawalhost/permitkit/pkg/policy"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Subject sources.
const (
	SourcePostgres = "postgres"
	SourceFile     = "file"
)

// Config holds the policy service configuration.
type Config struct {
	Addr        string `validate:"required"`
	// AdminAddr serves operator-only routes such as subject grant lookups.
	// Empty disables the admin listener.
	AdminAddr   string
	Environment string
	LogLevel    string `validate:"oneof=debug info warn error"`
	LogFormat   string `validate:"oneof=json console"`

	SubjectSource string `validate:"oneof=postgres file"`
	SubjectFile   string `validate:"required_if=SubjectSource file"`
	PolicyFile    string

	Database database.Config

	RateLimitRPS   float64 `validate:"gte=0"`
	RateLimitBurst int     `validate:"gte=0"`
	CORSOrigins    []string

	OTLPEndpoint string

	// ExampleRoutes mounts the guarded /api/example/todos demonstration routes.
	ExampleRoutes bool
}

// FromEnv reads the configuration from environment variables, applying defaults
// for anything unset, and validates it.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:          envOr("POLICYSVC_ADDR", ":8083"),
		AdminAddr:     "127.0.0.1:8084",
		Environment:   envOr("ENVIRONMENT", "development"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		LogFormat:     envOr("LOG_FORMAT", "json"),
		SubjectSource: envOr("SUBJECT_SOURCE", SourcePostgres),
		SubjectFile:   os.Getenv("SUBJECT_FILE"),
		PolicyFile:    os.Getenv("POLICY_FILE"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	if addr, ok := os.LookupEnv("POLICYSVC_ADMIN_ADDR"); ok {
		cfg.AdminAddr = addr
	}

	var err error
	if cfg.Database, err = DatabaseFromEnv(); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = envFloat("RATE_LIMIT_RPS", 50); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = envInt("RATE_LIMIT_BURST", 100); err != nil {
		return Config{}, err
	}
	if cfg.ExampleRoutes, err = envBool("EXAMPLE_ROUTES", false); err != nil {
		return Config{}, err
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DatabaseFromEnv reads only the database connection settings. Tools that need
// a connection but none of the service settings use it directly.
func DatabaseFromEnv() (database.Config, error) {
	cfg := database.Config{
		Host:     envOr("DB_HOST", "localhost"),
		User:     envOr("DB_USER", "user"),
		Password: envOr("DB_PASSWORD", "password"),
		DBName:   envOr("DB_NAME", "identity_platform"),
		SSLMode:  envOr("DB_SSLMODE", "disable"),
	}
	var err error
	if cfg.Port, err = envInt("DB_PORT", 5432); err != nil {
		return database.Config{}, err
	}
	return cfg, nil
}

// PolicyFile is the YAML document listing additional policy definitions:
//
//	policies:
//	  - name: PUBLISHED_ONLY
//	    expression: 'resource.status == "published"'
//	  - name: OWNER_OR_PUBLISHED
//	    any_of: [IS_OWNER, PUBLISHED_ONLY]
type PolicyFile struct {
	Policies []policy.Definition `yaml:"policies" validate:"dive"`
}

// LoadPolicyFile reads and validates a policy definitions file.
func LoadPolicyFile(path string) ([]policy.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicyFile(data)
}

// ParsePolicyFile parses the YAML policy definitions in data.
func ParsePolicyFile(data []byte) ([]policy.Definition, error) {
	var doc PolicyFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid policy file: %w", err)
	}
	return doc.Policies, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
