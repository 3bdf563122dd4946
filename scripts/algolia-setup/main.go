// algolia-setup applies the Reelin transaction index settings. It is the
// source of truth for the index configuration; rerun it after changing
// search.IndexSettings.
//
// Usage:
//
//	ALGOLIA_APP_ID=... ALGOLIA_ADMIN_KEY=... go run ./scripts/algolia-setup
//	ALGOLIA_APP_ID=... ALGOLIA_ADMIN_KEY=... ALGOLIA_INDEX=reelin_staging go run ./scripts/algolia-setup
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/reelin/backend/internal/config"
	"github.com/reelin/backend/internal/logging"
	"github.com/reelin/backend/internal/search"
	"go.uber.org/zap"
)

func main() {
	cfg, _ := config.Load()
	log, err := logging.Init("info", true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logging.Sync()

	// Settings changes need the admin key; the server runs with a narrower one.
	apiKey := os.Getenv("ALGOLIA_ADMIN_KEY")
	if apiKey == "" {
		apiKey = cfg.AlgoliaAPIKey
	}
	client, err := search.NewAlgoliaClient(search.Config{
		AppID:     cfg.AlgoliaAppID,
		APIKey:    apiKey,
		IndexName: cfg.AlgoliaIndex,
	})
	if err != nil {
		log.Fatal("ALGOLIA_APP_ID and ALGOLIA_ADMIN_KEY are required", zap.Error(err))
	}

	taskID, err := client.ApplySettings(context.Background())
	if err != nil {
		log.Fatal("failed to set index settings", zap.Error(err))
	}

	s := search.IndexSettings()
	fmt.Println()
	fmt.Println("=== Algolia Index Configuration ===")
	fmt.Printf("Index:              %s\n", client.IndexName())
	fmt.Printf("App ID:             %s\n", cfg.AlgoliaAppID)
	fmt.Printf("Task ID:            %d\n", taskID)
	fmt.Println()
	fmt.Printf("Searchable attrs:   %s\n", strings.Join(s.SearchableAttributes, ", "))
	fmt.Printf("Facets:             %s\n", strings.Join(s.AttributesForFaceting, ", "))
	fmt.Printf("Numeric filters:    %s\n", strings.Join(s.NumericAttributesForFiltering, ", "))
	fmt.Printf("Custom ranking:     %s\n", strings.Join(s.CustomRanking, ", "))
	fmt.Printf("Hits per page:      %d\n", *s.HitsPerPage)
	fmt.Println()
	fmt.Println("Done. Settings are applied asynchronously and are active within seconds.")
}
