package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/lvollmer/semkb"
	"github.com/lvollmer/semkb/helper"
	"github.com/lvollmer/semkb/model"
)

// Crawls an llms.txt style manifest into an index and queries it.
// Usage: go run ./example/crawl https://example.com/llms.txt "your question"
func main() {
	if len(os.Args) < 3 {
		log.Fatalf("usage: %s <manifest-url> <query> [section ...]", os.Args[0])
	}
	manifestURL := os.Args[1]
	queryText := os.Args[2]
	sections := os.Args[3:]

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	kb, err := semkb.New(dbConfig, model.DefaultConfiguration())
	if err != nil {
		log.Fatalf("Failed to create knowledge base: %v", err)
	}
	defer kb.Close()

	if err := kb.UseDefaultCapabilities(); err != nil {
		log.Fatalf("Failed to set up capabilities: %v", err)
	}

	if err := kb.CreateIndex("crawled-docs"); err != nil {
		log.Fatalf("Failed to create index: %v", err)
	}

	fmt.Printf("Crawling %s...\n", manifestURL)
	result, err := kb.RunCrawl(context.Background(), "crawled-docs", manifestURL, sections)
	if err != nil {
		log.Fatalf("Failed to crawl: %v", err)
	}
	fmt.Printf("Sections found: %v\n", result.SectionsFound)
	fmt.Printf("Documents processed: %d\n", result.DocumentsProcessed)

	count, err := kb.CountRows("crawled-docs")
	if err != nil {
		log.Fatalf("Failed to count rows: %v", err)
	}
	fmt.Printf("Chunks stored: %d\n", count)

	fmt.Printf("\nQuerying: %s\n", queryText)
	results, err := kb.Query(context.Background(), "crawled-docs", queryText, 5)
	if err != nil {
		log.Fatalf("Failed to query: %v", err)
	}

	for i, r := range results {
		fmt.Printf("\n--- Result %d (%.4f) ---\n", i+1, r.RelevanceScore)
		fmt.Printf("Source: %s\n", r.SourceDocument)
		fmt.Printf("%s\n", r.Content)
	}
}
