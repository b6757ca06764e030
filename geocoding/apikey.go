// Copyright 2025 The Clientbook Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"errors"
	"fmt"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

// KeyDisplayName is the display name of the API key looked up through
// Application Default Credentials.
const KeyDisplayName = "Clientbook Geocoding Key"

// ResolveAPIKey returns explicit when set. Otherwise it looks up the key
// named KeyDisplayName in the project of the default credentials, or in
// project when the credentials carry none.
func ResolveAPIKey(ctx context.Context, explicit, project string, logger *zap.Logger) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	logger.Info("no Google Maps API key configured, trying application default credentials")

	key, err := apiKeyFromADC(ctx, project, logger)
	if err != nil {
		return "", fmt.Errorf("resolving API key via ADC: %w", err)
	}

	logger.Info("retrieved Google Maps API key via ADC")

	return key, nil
}

func apiKeyFromADC(ctx context.Context, project string, logger *zap.Logger) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	projectID := creds.ProjectID
	if projectID == "" {
		// user credentials without a quota project
		if project == "" {
			return "", errors.New("no project in credentials and none configured")
		}

		projectID = project
		logger.Warn("no project ID in credentials, using configured project", zap.String("project", projectID))
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != KeyDisplayName {
			continue
		}

		// ListKeys redacts the secret.
		logger.Debug("found key resource, retrieving secret", zap.String("key", key.Name))

		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key '%s' found but KeyString is empty", KeyDisplayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name '%s' not found in project %s", KeyDisplayName, projectID)
}
