package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/pagemarkhq/pagemark/cmd/pagemark/internal"
	"github.com/pagemarkhq/pagemark/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		internal.PrintUsage()
		os.Exit(1)
	}

	configPath := ""
	verbose := false
	args := os.Args[1:]

	for _, arg := range args {
		if arg == "-h" || arg == "-help" || arg == "--help" {
			internal.PrintUsage()
			os.Exit(0)
		}
		if arg == "-v" || arg == "-version" || arg == "--version" {
			fmt.Printf("pagemark version %s\n", internal.Version)
			os.Exit(0)
		}
	}

	validSubcommands := map[string]bool{
		"ingest": true,
		"search": true,
		"stats":  true,
	}

	subcommandIndex := -1
	for i, arg := range args {
		if !strings.HasPrefix(arg, "-") && validSubcommands[arg] {
			subcommandIndex = i
			break
		}
	}

	if subcommandIndex == -1 {
		fmt.Fprintf(os.Stderr, "Error: No subcommand specified\n\n")
		internal.PrintUsage()
		os.Exit(1)
	}

	// Parse global flags (before subcommand)
	globalFlags := args[:subcommandIndex]
	for i := 0; i < len(globalFlags); i++ {
		flag := globalFlags[i]
		switch {
		case flag == "-config" || flag == "--config":
			if i+1 < len(globalFlags) {
				configPath = globalFlags[i+1]
				i++
			}
		case flag == "-verbose" || flag == "--verbose":
			verbose = true
		case strings.HasPrefix(flag, "-"):
			fmt.Fprintf(os.Stderr, "Error: Unknown global flag: %s\n\n", flag)
			internal.PrintUsage()
			os.Exit(1)
		}
	}

	internal.SetupLogging(verbose)

	subcommand := args[subcommandIndex]
	subcommandArgs := args[subcommandIndex+1:]

	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		if config.IsConfigNotFound(err) {
			if notFoundErr, ok := err.(*config.ConfigNotFoundError); ok {
				created, createErr := config.WriteDefaultTemplate(notFoundErr.RequestedPath)
				if createErr == nil && created {
					fmt.Fprintf(os.Stderr, "Created default config at %s\n", notFoundErr.RequestedPath)
					fmt.Fprintln(os.Stderr, "Please update embedding.api_key in the config file and rerun.")
					os.Exit(1)
				}
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		log.Fatalf("Failed to load config: %v\n", err)
	}

	switch subcommand {
	case "ingest":
		handleIngest(cfg, subcommandArgs)
	case "search":
		handleSearch(cfg, subcommandArgs)
	case "stats":
		handleStats(cfg, subcommandArgs)
	default:
		fmt.Printf("Unknown subcommand: %s\n\n", subcommand)
		internal.PrintUsage()
		os.Exit(1)
	}
}
