// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvDBDriver         = "CLIENTBOOK_DB_DRIVER"
	EnvDBDSN            = "CLIENTBOOK_DB_DSN"
	EnvListen           = "CLIENTBOOK_LISTEN"
	EnvAPIKey           = "GOOGLE_MAPS_API_KEY"
	EnvGeocodingURL     = "CLIENTBOOK_GEOCODING_URL"
	EnvGeocodingTimeout = "CLIENTBOOK_GEOCODING_TIMEOUT"
	EnvGoogleProject    = "CLIENTBOOK_GOOGLE_PROJECT"
	EnvLogLevel         = "CLIENTBOOK_LOG_LEVEL"
	EnvLogFormat        = "CLIENTBOOK_LOG_FORMAT"
)

// Supported database drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// Defaults.
const (
	DefaultDSN              = "db/clientbook.duckdb"
	DefaultListen           = "localhost:8080"
	DefaultGeocodingURL     = "https://maps.googleapis.com/maps/api/geocode"
	DefaultGeocodingTimeout = 10 * time.Second
)

// Config holds every tunable of the service.
type Config struct {
	DBDriver string
	DBDSN    string
	Listen   string

	GoogleMapsAPIKey string
	GoogleProject    string
	GeocodingURL     string
	GeocodingTimeout time.Duration
	TraceHTTP        bool

	LogLevel  string
	LogFormat string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		DBDriver:         DriverDuckDB,
		DBDSN:            DefaultDSN,
		Listen:           DefaultListen,
		GeocodingURL:     DefaultGeocodingURL,
		GeocodingTimeout: DefaultGeocodingTimeout,
		LogLevel:         "info",
		LogFormat:        "console",
	}
}

// Load reads the given .env files (a missing file is not an error) and then
// overlays the process environment on top of the defaults.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a lookup function such as os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str(EnvDBDriver, &cfg.DBDriver)
	str(EnvDBDSN, &cfg.DBDSN)
	str(EnvListen, &cfg.Listen)
	str(EnvAPIKey, &cfg.GoogleMapsAPIKey)
	str(EnvGoogleProject, &cfg.GoogleProject)
	str(EnvGeocodingURL, &cfg.GeocodingURL)
	str(EnvLogLevel, &cfg.LogLevel)
	str(EnvLogFormat, &cfg.LogFormat)

	if v, ok := lookup(EnvGeocodingTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", EnvGeocodingTimeout, err)
		}

		cfg.GeocodingTimeout = d
	}

	return cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverDuckDB, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}

	if c.DBDriver == DriverPostgres && c.DBDSN == DefaultDSN {
		return errors.New("postgres requires an explicit DSN")
	}

	if c.GeocodingTimeout <= 0 {
		return fmt.Errorf("geocoding timeout must be positive, got %s", c.GeocodingTimeout)
	}

	if c.GeocodingURL == "" {
		return errors.New("geocoding URL is empty")
	}

	return nil
}
