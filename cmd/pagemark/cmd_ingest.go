package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/pagemarkhq/pagemark/internal/config"
	"github.com/pagemarkhq/pagemark/internal/embedding"
	"github.com/pagemarkhq/pagemark/internal/extract"
	"github.com/pagemarkhq/pagemark/internal/ingest"
	"github.com/pagemarkhq/pagemark/internal/vectorstore"
)

// handleIngest implements the ingest subcommand
func handleIngest(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)

	var fileID int64
	var maxChars int
	var quiet bool

	fs.Int64Var(&fileID, "file-id", 0, "File id of the document (ids count up from here for globs)")
	fs.IntVar(&maxChars, "max-chars", 0, "Override chunk length bound from config")
	fs.BoolVar(&quiet, "quiet", false, "Disable the progress bar")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    pagemark ingest -file-id <n> <path-or-glob>

DESCRIPTION:
    Extract text from a document, split it into sentence-aligned chunks,
    embed every chunk and store the vectors. A doublestar glob ingests a
    whole folder, assigning sequential file ids.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    pagemark ingest -file-id 12 notes/biology.pdf
    pagemark ingest -file-id 100 "notes/**/*.md"
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse arguments: %v", err)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: document path is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	if fileID <= 0 {
		fmt.Fprintf(os.Stderr, "Error: -file-id must be positive\n\n")
		fs.Usage()
		os.Exit(1)
	}

	paths := resolvePaths(fs.Arg(0))
	if len(paths) == 0 {
		log.Fatalf("No documents match %q", fs.Arg(0))
	}

	maxChunkChars := cfg.Ingest.MaxChunkChars
	if maxChars > 0 {
		maxChunkChars = maxChars
	}

	embedder, err := embedding.NewService(&cfg.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}
	store, err := vectorstore.New(cfg.VectorStore)
	if err != nil {
		log.Fatalf("Failed to create vector store: %v", err)
	}
	defer store.Close()

	reporter := ingest.NewBarReporter(!quiet && ingest.DefaultProgressEnabled())
	ingestor, err := ingest.NewIngestor(embedder, store,
		ingest.WithMaxChunkChars(maxChunkChars),
		ingest.WithProgress(reporter),
	)
	if err != nil {
		log.Fatalf("Failed to create ingestor: %v", err)
	}

	ctx := context.Background()
	for i, path := range paths {
		id := fileID + int64(i)
		text, err := extract.FromFile(path)
		if err != nil {
			log.Fatalf("Failed to extract %s: %v", path, err)
		}

		res, err := ingestor.Ingest(ctx, id, text)
		if err != nil {
			var partial *vectorstore.PartialStoreError
			if errors.As(err, &partial) {
				log.Fatalf("Ingestion of %s stopped after %d of %d chunks: %v\n"+
					"Re-run to ingest the document again.", path, partial.Stored, partial.Total, err)
			}
			log.Fatalf("Failed to ingest %s: %v", path, err)
		}
		fmt.Printf("%s: stored %d chunk(s) as file %d\n", path, res.Stored, id)
	}
}

// resolvePaths expands a doublestar glob, or returns the literal path when
// the pattern has no glob metacharacters.
func resolvePaths(pattern string) []string {
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{pattern}
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		log.Fatalf("Invalid glob %q: %v", pattern, err)
	}
	return matches
}
