// Package config loads service configuration from an optional YAML file, a
// .env file and environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Provider ProviderConfig `yaml:"provider"`
	Routing  RoutingConfig  `yaml:"routing"`
}

type ServerConfig struct {
	Port              string        `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
}

type PostgresConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// RedisConfig controls the computed-route cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// ProviderConfig selects the travel-time matrix provider ("google", "ors")
// and holds the credentials of each.
type ProviderConfig struct {
	Matrix        string `yaml:"matrix"`
	GoogleAPIKey  string `yaml:"googleApiKey"`
	GoogleBaseURL string `yaml:"googleBaseUrl"`
	ORSAPIKey     string `yaml:"orsApiKey"`
	ORSBaseURL    string `yaml:"orsBaseUrl"`
	ORSProfile    string `yaml:"orsProfile"`
}

type RoutingConfig struct {
	// Above this stop count the greedy fallback replaces the exhaustive search.
	MaxExhaustiveStops int `yaml:"maxExhaustiveStops"`
	// From this stop count the exhaustive search fans out across workers.
	ParallelThreshold int `yaml:"parallelThreshold"`
	// Closed tours go to the remote optimizer when a Google key is configured.
	RemoteClosedTours bool `yaml:"remoteClosedTours"`
	MaxAddresses      int  `yaml:"maxAddresses"`
}

// Load reads the .env file (if any), the YAML file at path (if non-empty) and
// applies environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("load config: parse %q: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              "8080",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			CacheTTL: 10 * time.Minute,
		},
		Provider: ProviderConfig{
			Matrix:        "google",
			GoogleBaseURL: "https://routes.googleapis.com",
			ORSBaseURL:    "https://api.openrouteservice.org",
			ORSProfile:    "driving-car",
		},
		Routing: RoutingConfig{
			MaxExhaustiveStops: 10,
			ParallelThreshold:  8,
			MaxAddresses:       25,
		},
	}
}

func applyEnvOverrides(cfg *Config) error {
	cfg.Server.Port = Get("PORT", cfg.Server.Port)
	cfg.Postgres.URL = Get("DATABASE_URL", cfg.Postgres.URL)
	cfg.Redis.Addr = Get("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = Get("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Provider.Matrix = strings.ToLower(Get("MATRIX_PROVIDER", cfg.Provider.Matrix))
	cfg.Provider.GoogleAPIKey = Get("GOOGLE_MAPS_API_KEY", cfg.Provider.GoogleAPIKey)
	cfg.Provider.GoogleBaseURL = Get("GOOGLE_ROUTES_BASE_URL", cfg.Provider.GoogleBaseURL)
	cfg.Provider.ORSAPIKey = Get("ORS_API_KEY", cfg.Provider.ORSAPIKey)
	cfg.Provider.ORSBaseURL = Get("ORS_BASE_URL", cfg.Provider.ORSBaseURL)

	if v := os.Getenv("ROUTE_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ROUTE_CACHE_TTL=%q: %w", v, err)
		}
		cfg.Redis.CacheTTL = d
	}
	if v := os.Getenv("ROUTING_MAX_EXHAUSTIVE_STOPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ROUTING_MAX_EXHAUSTIVE_STOPS=%q: %w", v, err)
		}
		cfg.Routing.MaxExhaustiveStops = n
	}
	if v := os.Getenv("ROUTING_REMOTE_CLOSED_TOURS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ROUTING_REMOTE_CLOSED_TOURS=%q: %w", v, err)
		}
		cfg.Routing.RemoteClosedTours = b
	}

	return nil
}

func (c *Config) validate() error {
	switch c.Provider.Matrix {
	case "google":
		if strings.TrimSpace(c.Provider.GoogleAPIKey) == "" {
			return fmt.Errorf("GOOGLE_MAPS_API_KEY is required for matrix provider %q", c.Provider.Matrix)
		}
	case "ors":
		if strings.TrimSpace(c.Provider.ORSAPIKey) == "" {
			return fmt.Errorf("ORS_API_KEY is required for matrix provider %q", c.Provider.Matrix)
		}
	default:
		return fmt.Errorf("unknown matrix provider %q", c.Provider.Matrix)
	}

	if c.Routing.MaxExhaustiveStops < 2 {
		return fmt.Errorf("routing.maxExhaustiveStops must be at least 2, got %d", c.Routing.MaxExhaustiveStops)
	}

	return nil
}

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
