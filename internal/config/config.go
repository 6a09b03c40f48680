// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	envHost            = "HOST"
	envPort            = "PORT"
	envShutdownTimeout = "SHUTDOWN_TIMEOUT"
	envDocsPath        = "DOCS_PATH"
	envLogLevel        = "LOG_LEVEL"
	envCORSOrigins     = "CORS_ALLOWED_ORIGINS"
	envMaxRequestBytes = "MAX_REQUEST_BYTES"
)

// Project ID sources in lookup order, matching the Google Cloud runtimes.
var projectIDEnvs = []string{
	"GOOGLE_CLOUD_PROJECT",
	"GCP_PROJECT",
	"GCLOUD_PROJECT",
	"PROJECT_ID",
}

// Default configuration values.
const (
	defaultPort            = "8080"
	defaultShutdownTimeout = 10 * time.Second
	defaultDocsPath        = "/api-docs"
	defaultLogLevel        = "info"
	defaultMaxRequestBytes = 1 << 20 // 1 MB
)

// Config holds the service configuration.
type Config struct {
	Host            string
	Port            string
	ShutdownTimeout time.Duration
	DocsPath        string
	LogLevel        string
	// ProjectID enables Cloud Trace correlation in logs when set.
	ProjectID       string
	CORSOrigins     []string
	MaxRequestBytes int64
}

// Load reads optional dotenv files (".env" when none are given) into the
// process environment and builds a Config from it. Variables already set in
// the environment win over dotenv values. Missing dotenv files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv().Validate()
}

// FromEnv builds a Config from environment variables, falling back to defaults
// for unset values. It does not validate.
func FromEnv() Config {
	return Config{
		Host:            os.Getenv(envHost),
		Port:            envString(envPort, defaultPort),
		ShutdownTimeout: envDuration(envShutdownTimeout, defaultShutdownTimeout),
		DocsPath:        envString(envDocsPath, defaultDocsPath),
		LogLevel:        envString(envLogLevel, defaultLogLevel),
		ProjectID:       firstEnv(projectIDEnvs...),
		CORSOrigins:     envList(envCORSOrigins),
		MaxRequestBytes: envInt64(envMaxRequestBytes, defaultMaxRequestBytes),
	}
}

// Validate checks the configuration and returns it unchanged when valid.
func (c Config) Validate() (Config, error) {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 0 || port > 65535 {
		return c, fmt.Errorf("port %q must be a number between 0 and 65535", c.Port)
	}
	if c.ShutdownTimeout <= 0 {
		return c, fmt.Errorf("shutdown timeout must be greater than zero")
	}
	if c.DocsPath != "" && !strings.HasPrefix(c.DocsPath, "/") {
		return c, fmt.Errorf("docs path %q must start with /", c.DocsPath)
	}
	if c.MaxRequestBytes <= 0 {
		return c, fmt.Errorf("max request bytes must be greater than zero")
	}
	return c, nil
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envDuration parses a Go duration string. Invalid values yield zero so Validate reports them.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

// envInt64 parses a base-10 integer. Invalid values yield zero so Validate reports them.
func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
