package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pagemarkhq/pagemark/internal/config"
	"github.com/pagemarkhq/pagemark/internal/vectorstore"
)

// handleStats implements the stats subcommand
func handleStats(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    pagemark stats

DESCRIPTION:
    Show the number of indexed chunks in the vector store.
`)
	}
	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}

	store, err := vectorstore.New(cfg.VectorStore)
	if err != nil {
		log.Fatalf("Failed to create vector store: %v", err)
	}
	defer store.Close()

	count, err := store.Count(context.Background())
	if err != nil {
		log.Fatalf("Failed to read collection stats: %v", err)
	}
	fmt.Printf("Indexed chunks: %d\n", count)
}
