// Command argus drives AI-assisted code security reviews across LLM
// providers. It discovers the models a vendor serves, normalizes chat and
// streaming calls onto one response shape, and keeps provider lifecycle
// (credentials, health, active selection) in a single registry.
//
// Configuration is layered: built-in defaults, a YAML file (-config flag,
// ARGUS_CONFIG, ./argus.yaml, ~/.config/argus/config.yaml), ARGUS_*
// environment variables, and per-provider key files. Provider API keys fall
// back to their well-known environment variables (OPENAI_API_KEY, ...).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
)

const usage = `argus drives AI-assisted code security reviews across LLM providers.

Usage:
  argus <command> [flags]

Commands:
  providers   List the supported providers
  models      Discover the models a provider serves
  chat        Send one review prompt to a provider
  health      Probe provider connectivity
  tools       List or invoke tools served by an MCP server

Flags:
  -h, --help  Show this help message

Every command accepts -config <path>; the ARGUS_CONFIG variable and
./argus.yaml are consulted when the flag is absent. A .env file in the
working directory is loaded before anything else.`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return printUsage()
	}

	switch args[0] {
	case "providers":
		return cmdProviders(ctx, args[1:])
	case "models":
		return cmdModels(ctx, args[1:])
	case "chat":
		return cmdChat(ctx, args[1:])
	case "health":
		return cmdHealth(ctx, args[1:])
	case "tools":
		return cmdTools(ctx, args[1:])
	case "help", "-h", "--help":
		return printUsage()
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage() error {
	fmt.Println(strings.TrimSpace(usage))
	return nil
}
