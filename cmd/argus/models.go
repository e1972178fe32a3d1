package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/argus-sec/argus/pkg/discovery"
	"github.com/argus-sec/argus/pkg/llm"
)

func cmdModels(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	providerID := fs.String("provider", "", "provider to query (default: configured provider)")
	all := fs.Bool("all", false, "list every model, not just tool-calling ones")
	refresh := fs.Bool("refresh", false, "drop the cached listing and fetch again")
	asJSON := fs.Bool("json", false, "emit the raw discovery result as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: argus models [flags]")
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
	id := *providerID
	if id == "" {
		id = cfg.Provider
	}

	reg := newRegistry()
	defer reg.DestroyAll()

	prov, err := resolveProvider(reg, cfg, id)
	if err != nil {
		return err
	}
	if *refresh {
		reg.Discovery().ClearCache(id)
	}

	res := prov.ListModels(ctx)
	if !res.OK {
		return res.Err
	}

	// The user-level filter from config layers on top of the vendor
	// profile's own filtering.
	userFilter, err := cfg.Models.Filter()
	if err != nil {
		return err
	}
	res = discovery.FilterResult(res, userFilter)

	if *asJSON {
		return printJSON(res)
	}

	if res.Err != nil && res.Err.Kind == llm.KindEmptyResult {
		fmt.Printf("%s reported no models\n", id)
		return nil
	}

	source := fmt.Sprintf("fetched in %s", res.Duration.Round(time.Millisecond))
	if res.Duration == 0 {
		source = "cached"
	}

	models := res.ToolCalling
	if *all {
		models = res.All
	}
	fmt.Printf("%s: %d models (%s)\n", id, len(models), source)
	for _, m := range models {
		line := "  " + m.ID
		if *all && m.SupportsToolCalling {
			line = "  " + m.ID + " *"
		}
		if m.DisplayName != "" && m.DisplayName != m.ID {
			line += "  (" + m.DisplayName + ")"
		}
		fmt.Println(line)
	}
	if *all {
		fmt.Println("\n* supports tool calling")
	} else if len(models) < len(res.All) {
		fmt.Printf("\n%d more without tool calling; use -all to list them\n", len(res.All)-len(models))
	}
	return nil
}
