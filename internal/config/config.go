// Package config loads the server configuration from an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	library "github.com/hanpama/bookgraph/internal/library"
)

// ErrInvalid is returned when the configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Server   Server   `yaml:"server"`
	Resolver Resolver `yaml:"resolver"`
	OTel     OTel     `yaml:"otel"`
	Log      Log      `yaml:"log"`
	// Seed is an optional YAML file replacing the built-in records.
	Seed string `yaml:"seed"`
}

type Server struct {
	Addr          string        `yaml:"addr" validate:"required"`
	Pretty        bool          `yaml:"pretty"`
	// Timeout bounds each GraphQL operation. 0 leaves relation lookups unbounded.
	Timeout       time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" validate:"gte=0"`
	CORSOrigins   []string      `yaml:"cors_origins"`
	GraphiQL      bool          `yaml:"graphiql"`
	Introspection bool          `yaml:"introspection"`
	// ShutdownTimeout bounds draining of in-flight requests.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

type Resolver struct {
	AuthorDelay    time.Duration `yaml:"author_delay" validate:"gte=0"`
	PublisherDelay time.Duration `yaml:"publisher_delay" validate:"gte=0"`
	MaxConcurrency int           `yaml:"max_concurrency" validate:"gte=0"`
}

type OTel struct {
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol" validate:"omitempty,oneof=http grpc"`
	Service  string `yaml:"service" validate:"required_with=Endpoint"`
	Insecure bool   `yaml:"insecure"`
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":4000",
			MaxBodyBytes:    1 << 20,
			CORSOrigins:     []string{"*"},
			GraphiQL:        true,
			Introspection:   true,
			ShutdownTimeout: 5 * time.Second,
		},
		Resolver: Resolver{
			AuthorDelay:    library.DefaultAuthorDelay,
			PublisherDelay: library.DefaultPublisherDelay,
		},
		OTel: OTel{
			Endpoint: "http://localhost:4318/v1/traces",
			Protocol: "http",
			Service:  "graphql",
			Insecure: true,
		},
		Log: Log{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
// Keys absent from the file keep their default value; unknown keys are
// rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return cfg, cfg.Validate()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Delays converts the resolver latencies.
func (c Config) Delays() library.Delays {
	return library.Delays{Author: c.Resolver.AuthorDelay, Publisher: c.Resolver.PublisherDelay}
}
