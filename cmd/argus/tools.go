package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/argus-sec/argus/pkg/llm"
	mcpclient "github.com/argus-sec/argus/pkg/tools/mcp"
)

// headerFlags collects repeated -header flags of the form "Name: value".
type headerFlags map[string]string

func (h headerFlags) String() string {
	parts := make([]string, 0, len(h))
	for k, v := range h {
		parts = append(parts, k+": "+v)
	}
	return strings.Join(parts, "; ")
}

func (h headerFlags) Set(value string) error {
	name, val, ok := strings.Cut(value, ":")
	if !ok {
		return fmt.Errorf("header %q is not in \"Name: value\" form", value)
	}
	h[strings.TrimSpace(name)] = strings.TrimSpace(val)
	return nil
}

func cmdTools(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tools", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	server := fs.String("server", "", "MCP server URL (required)")
	transport := fs.String("transport", "", "transport type: sse or streamable-http (default streamable-http)")
	call := fs.String("call", "", "invoke this tool instead of listing")
	callArgs := fs.String("args", "{}", "JSON arguments for -call")
	timeout := fs.Duration("timeout", 30*time.Second, "overall deadline for the server exchange")
	asJSON := fs.Bool("json", false, "emit JSON instead of text")
	headers := headerFlags{}
	fs.Var(headers, "header", "extra HTTP header \"Name: value\" (repeatable)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: argus tools -server <url> [flags]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if *server == "" {
		return fmt.Errorf("tools: -server is required")
	}

	// Loaded for the debug-logging and metrics side effects only; MCP
	// servers are addressed by flag, not by config.
	if _, err := loadConfig(*configPath); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	client := mcpclient.NewClient(mcpclient.ServerConfig{
		Name:      *server,
		Transport: *transport,
		URL:       *server,
		Headers:   headers,
	})
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	if *call != "" {
		var input map[string]any
		if err := json.Unmarshal([]byte(*callArgs), &input); err != nil {
			return fmt.Errorf("parsing -args: %w", err)
		}
		result, err := client.CallTool(ctx, llm.ToolCall{
			ID:    llm.NewCallID(),
			Name:  *call,
			Input: input,
		})
		if err != nil {
			return err
		}
		if *asJSON {
			return printJSON(result)
		}
		fmt.Println(result.Content)
		return nil
	}

	defs, err := client.ListTools(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(defs)
	}
	for _, def := range defs {
		fmt.Println(def.Name)
		if def.Description != "" {
			fmt.Printf("  %s\n", def.Description)
		}
		if len(def.Parameters.Required) > 0 {
			fmt.Printf("  required: %s\n", strings.Join(def.Parameters.Required, ", "))
		}
	}
	return nil
}
