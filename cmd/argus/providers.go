package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/argus-sec/argus/pkg/config"
	"github.com/argus-sec/argus/pkg/provider/profile"
)

// providerRow is one line of `argus providers` output.
type providerRow struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Default     bool   `json:"default"`
	ToolCalling bool   `json:"tool_calling"`
	Vision      bool   `json:"vision"`
	Credential  string `json:"credential"`
	BaseURL     string `json:"base_url"`
}

func cmdProviders(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("providers", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	asJSON := fs.Bool("json", false, "emit JSON instead of a table")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: argus providers [flags]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	rows := make([]providerRow, 0, len(profile.BuiltinIDs()))
	for _, id := range profile.BuiltinIDs() {
		prof, ok := profile.Builtin(id)
		if !ok {
			continue
		}
		pc := cfg.ProviderFor(id)
		baseURL := prof.BaseURL
		if pc.BaseURL != "" {
			baseURL = pc.BaseURL
		}
		rows = append(rows, providerRow{
			ID:          id,
			DisplayName: prof.Info.DisplayName,
			Default:     id == cfg.Provider,
			ToolCalling: prof.Info.SupportsToolCalling,
			Vision:      prof.Info.SupportsVision,
			Credential:  credentialSource(prof, pc),
			BaseURL:     baseURL,
		})
	}

	if *asJSON {
		return printJSON(rows)
	}

	fmt.Printf("%-13s %-18s %-6s %-26s %s\n", "PROVIDER", "DISPLAY NAME", "TOOLS", "CREDENTIAL", "BASE URL")
	for _, row := range rows {
		id := row.ID
		if row.Default {
			id += "*"
		}
		tools := "no"
		if row.ToolCalling {
			tools = "yes"
		}
		fmt.Printf("%-13s %-18s %-6s %-26s %s\n", id, row.DisplayName, tools, row.Credential, row.BaseURL)
	}
	fmt.Println("\n* default provider")
	return nil
}

// credentialSource reports where the provider's API key would come from,
// matching the fallback order used when an instance is created: explicit
// config first, then the vendor's environment variable.
func credentialSource(prof *profile.VendorProfile, pc config.ProviderConfig) string {
	if prof.AuthStyle == profile.AuthNone {
		return "not required"
	}
	if pc.APIKey != "" {
		return "config"
	}
	if prof.Info.EnvKey == "" {
		return "none"
	}
	if os.Getenv(prof.Info.EnvKey) != "" {
		return prof.Info.EnvKey
	}
	return prof.Info.EnvKey + " (unset)"
}
