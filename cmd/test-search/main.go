package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/launchwatch/launchcoin-feed/internal/config"
	"github.com/launchwatch/launchcoin-feed/internal/extract"
	"github.com/launchwatch/launchcoin-feed/internal/sources"
)

func main() {
	fmt.Println("Launchcoin Feed - Search API Connectivity Test")
	fmt.Println("==============================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	source := sources.NewTwitterSource(cfg.TwitterAPIBaseURL, cfg.TwitterBearerToken, 0)
	extractor := extract.NewExtractor(cfg.TriggerPhrase, cfg.MaxTweetAge)

	fmt.Printf("\nSearching %s for %q...\n", source.GetName(), cfg.TriggerPhrase)
	fmt.Println(strings.Repeat("-", 40))

	start := time.Now()
	result, err := source.Search(ctx, sources.SearchRequest{
		Query:      cfg.TriggerPhrase,
		MaxResults: cfg.PageSize,
	})
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	fmt.Printf("OK in %v: %d tweets, %d authors, newest id %q\n",
		time.Since(start).Round(time.Millisecond), result.ResultCount, len(result.Authors), result.NewestID)

	accepted := 0
	for _, item := range result.Items {
		record, _, err := extractor.Extract(item, result.Authors)
		if err != nil {
			fmt.Printf("  skip %s: %v\n", item.ID, err)
			continue
		}
		accepted++
		fmt.Printf("  keep %s: $%s %s (@%s)\n", record.ID, record.Symbol, record.AdditionalText, record.User.Username)
	}

	fmt.Printf("\n%d of %d tweets would be stored\n", accepted, len(result.Items))
}
