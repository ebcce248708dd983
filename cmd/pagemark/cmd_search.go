package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pagemarkhq/pagemark/internal/config"
	"github.com/pagemarkhq/pagemark/internal/embedding"
	"github.com/pagemarkhq/pagemark/internal/ingest"
	"github.com/pagemarkhq/pagemark/internal/vectorstore"
)

// handleSearch implements the search subcommand
func handleSearch(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)

	var topK int
	var fileID int64
	var jsonOutput bool

	fs.IntVar(&topK, "k", cfg.Search.DefaultTopK, "Number of results to return")
	fs.Int64Var(&fileID, "file", 0, "Restrict results to one document (0 = all documents)")
	fs.BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    pagemark search [options] "<query>"

DESCRIPTION:
    Embed the query and return the most similar indexed chunks,
    optionally restricted to a single document.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    pagemark search "how does osmosis work"
    pagemark search -file 12 -k 3 "krebs cycle steps"
    pagemark search -json "photosynthesis"
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: search query is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	query := fs.Arg(0)

	embedder, err := embedding.NewService(&cfg.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}
	store, err := vectorstore.New(cfg.VectorStore)
	if err != nil {
		log.Fatalf("Failed to create vector store: %v", err)
	}
	defer store.Close()

	ingestor, err := ingest.NewIngestor(embedder, store)
	if err != nil {
		log.Fatalf("Failed to create ingestor: %v", err)
	}

	var filter *int64
	if fileID > 0 {
		filter = &fileID
	}

	hits, err := ingestor.Search(context.Background(), query, topK, filter)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	if jsonOutput {
		outputJSON(hits, query)
	} else {
		outputText(hits, query)
	}
}

// outputText outputs search results as human-readable text
func outputText(hits []vectorstore.SearchHit, query string) {
	if len(hits) == 0 {
		fmt.Println("No results found")
		return
	}

	fmt.Printf("Found %d result(s) for: %s\n\n", len(hits), query)
	for i, hit := range hits {
		fmt.Printf("%d. [file %d] score %.3f\n", i+1, hit.FileID, hit.Score)
		text := hit.Text
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		fmt.Printf("   %s\n\n", text)
	}
}

// outputJSON outputs search results as JSON
func outputJSON(hits []vectorstore.SearchHit, query string) {
	output := map[string]interface{}{
		"query":   query,
		"count":   len(hits),
		"results": hits,
	}

	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal results: %v", err)
	}
	fmt.Println(string(jsonData))
}
