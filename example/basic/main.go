package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/lvollmer/semkb"
	"github.com/lvollmer/semkb/helper"
	"github.com/lvollmer/semkb/model"
)

const sampleContent = `This is a sample document about semantic search.

Semantic search retrieves text by meaning instead of exact keyword overlap.
Documents are split into token-bounded chunks, each chunk is embedded into a
vector, and queries are matched against those vectors by cosine similarity.

A cross-encoder reranker then reads the query together with each candidate
chunk and produces a sharper relevance score than vector distance alone.

Combining a fast vector search with a precise reranking stage gives good
recall and good precision at the same time.`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
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

	// Load the embedding and reranker models (downloads on first run)
	if err := kb.UseDefaultCapabilities(); err != nil {
		log.Fatalf("Failed to set up capabilities: %v", err)
	}

	if err := kb.CreateIndex("basic-example"); err != nil {
		log.Fatalf("Failed to create index: %v", err)
	}

	// Write the sample content to disk and encode it
	dir, err := os.MkdirTemp("", "semkb-basic")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "semantic_search.txt")
	if err := os.WriteFile(path, []byte(sampleContent), 0644); err != nil {
		log.Fatalf("Failed to write sample document: %v", err)
	}

	fmt.Println("Ingesting document...")
	numChunks, err := kb.EncodeDocument("basic-example", path)
	if err != nil {
		log.Fatalf("Failed to encode document: %v", err)
	}
	fmt.Printf("Inserted %d chunks\n", numChunks)

	queryText := "How does reranking improve search results?"
	fmt.Printf("\nQuerying: %s\n", queryText)

	results, err := kb.Query(context.Background(), "basic-example", queryText, 3)
	if err != nil {
		log.Fatalf("Failed to query: %v", err)
	}

	fmt.Printf("\nFound %d results:\n", len(results))
	for i, result := range results {
		fmt.Printf("\n--- Result %d ---\n", i+1)
		fmt.Printf("Score: %.4f\n", result.RelevanceScore)
		fmt.Printf("Source: %s (offset %d)\n", result.SourceDocument, result.CharOffset)
		fmt.Printf("Content: %s\n", result.Content)
	}

	fmt.Println("\nBasic example completed successfully!")
}
