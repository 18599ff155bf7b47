package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"parkinsight/internal/export"
	"parkinsight/internal/models"
	"parkinsight/internal/transformers"
	"parkinsight/pkg/cahcd"
	"parkinsight/pkg/config"
	"parkinsight/pkg/logger"
	"parkinsight/pkg/mhvillage"
	"parkinsight/pkg/rivco"
	"parkinsight/pkg/webclient"
)

// County name to HCD county code. Extend as needed.
var hcdCountyCodes = map[string]string{
	"riverside": "33",
}

func main() {
	var (
		source     = flag.String("source", "", "which source to fetch: ca_hcd, mhvillage or rivcoview")
		county     = flag.String("county", "Riverside", "county name (mapped to a code for ca_hcd)")
		state      = flag.String("state", "CA", "state code for mhvillage")
		countyCode = flag.String("county-code", "", "override HCD county code (e.g. 33 for Riverside)")
		limit      = flag.Int("limit", 200, "max number of records to write, applied after fetch")
		out        = flag.String("out", "", "output file path (.json or .csv)")
	)
	flag.Parse()

	// .env is optional for the CLI
	_ = godotenv.Load()
	logger.InitLogger(os.Stderr, os.Getenv("LOG_LEVEL"))

	if *source == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "both -source and -out are required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		color.Red("Failed to load config: %v", err)
		os.Exit(1)
	}

	records, err := fetchRecords(context.Background(), cfg, *source, *county, *state, *countyCode, *limit)
	if err != nil {
		color.Red("Fetch failed: %v", err)
		os.Exit(1)
	}

	if *limit > 0 && len(records) > *limit {
		records = records[:*limit]
	}

	if dir := filepath.Dir(*out); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			color.Red("Failed to create output directory: %v", err)
			os.Exit(1)
		}
	}
	if err := export.Write(*out, records); err != nil {
		color.Red("Write failed: %v", err)
		os.Exit(1)
	}

	color.Green("Wrote %d records to %s", len(records), *out)
}

func fetchRecords(ctx context.Context, cfg *config.Config, source, county, state, countyCode string, limit int) ([]models.Value, error) {
	web := webclient.NewClient()

	var payload models.Value
	var err error
	switch source {
	case "ca_hcd":
		code := countyCode
		if code == "" {
			code = hcdCountyCodes[strings.ToLower(strings.TrimSpace(county))]
			if code == "" {
				color.Yellow("Unrecognized county %q for CA HCD; defaulting to Riverside (33). Use -county-code to specify explicitly.", county)
				code = hcdCountyCodes["riverside"]
			}
		}
		payload, err = cahcd.NewClient(cfg.Sources.CAHCD.BaseURL, web).FetchParks(ctx, code)
	case "mhvillage":
		client := mhvillage.NewClient(cfg.Sources.MHVillage.BaseURL, cfg.Sources.MHVillage.PageSize, cfg.Sources.Concurrency, web)
		payload, err = client.FetchParkDetails(ctx, county, state, 0)
	case "rivcoview":
		client := rivco.NewClient(cfg.Sources.RivCo.BaseURL, cfg.Sources.Concurrency, web)
		payload, err = client.FetchParcels(ctx, county, limit)
	default:
		return nil, fmt.Errorf("unknown source %q: use ca_hcd, mhvillage or rivcoview", source)
	}
	if err != nil {
		return nil, err
	}
	return transformers.FlattenRecords(payload), nil
}
