package internal

import (
	"fmt"
	"os"
)

const Version = "0.3.1"

// PrintUsage writes the top-level usage and subcommand list to stderr.
func PrintUsage() {
	fmt.Fprintf(os.Stderr, `pagemark - Semantic Retrieval for Study Documents

Version: %s

USAGE:
    pagemark [global options] <command> [command options]

GLOBAL OPTIONS:
    -config <path>
        Path to config file (default: ~/.pagemark/config.yaml)

    -verbose
        Enable debug logging

    -v, -version
        Show version information

    -h, -help
        Show this help message

COMMANDS:
    ingest
        Chunk, embed and index a document (pdf, txt, md)

    search
        Find the most relevant chunks for a natural language query

    stats
        Show how many chunks are indexed

EXAMPLES:
    # Index one document under file id 12
    pagemark ingest -file-id 12 notes/biology.pdf

    # Index a whole folder, ids assigned from 100 upwards
    pagemark ingest -file-id 100 "notes/**/*.md"

    # Search everything
    pagemark search "how does osmosis work"

    # Search one document, top 3 hits as JSON
    pagemark search -file 12 -k 3 -json "krebs cycle steps"

For detailed help on each command, use:
    pagemark <command> -help
`, Version)
}
