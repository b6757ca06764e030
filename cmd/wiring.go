// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bufalari/clientbook/clients"
	"github.com/bufalari/clientbook/config"
	"github.com/bufalari/clientbook/geocoding"
	"github.com/bufalari/clientbook/utils/httputils"
	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	_ "github.com/lib/pq"              // register postgres driver
	"go.uber.org/zap"
)

// openRepository opens the configured database and makes sure the schema
// exists.
func openRepository(ctx context.Context) (*sql.DB, clients.Repository, error) {
	if cfg.DBDriver == config.DriverDuckDB && cfg.DBDSN != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0o750); err != nil {
			return nil, nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	repo := clients.NewRepository(db, clients.Dialect(cfg.DBDriver))
	if err := repo.CreateSchema(ctx); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("database ready", zap.String("driver", cfg.DBDriver))

	return db, repo, nil
}

// newGeocoder builds the Google Maps geocoder, resolving the API key from
// the environment or the default credentials.
func newGeocoder(ctx context.Context) (*geocoding.GoogleMapsGeocoder, error) {
	key, err := geocoding.ResolveAPIKey(ctx, cfg.GoogleMapsAPIKey, cfg.GoogleProject, logger)
	if err != nil {
		return nil, err
	}

	var trace io.Writer
	if cfg.TraceHTTP {
		trace = os.Stderr
	}

	return geocoding.NewGoogleMapsGeocoder(key, geocoding.GoogleMapsOptions{
		BaseURL:   cfg.GeocodingURL,
		Timeout:   cfg.GeocodingTimeout,
		Transport: httputils.NewTransport("clientbook/"+Version, trace, "key"),
		Logger:    logger.Named("geocoding"),
	}), nil
}

// newManager wires a Manager for commands that write. Commands that only
// read pass a nil geocoder.
func newManager(repo clients.Repository, geocoder geocoding.Geocoder) *clients.Manager {
	return clients.NewManager(repo, geocoder, logger.Named("clients"))
}
