package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/argus-sec/argus/pkg/provider"
)

func cmdHealth(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file")
	providerID := fs.String("provider", "", "probe a single provider instead of all")
	force := fs.Bool("force", false, "probe even when a recent result is cached")
	asJSON := fs.Bool("json", false, "emit JSON instead of a table")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: argus health [flags]")
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

	reg := newRegistry()
	defer reg.DestroyAll()

	if *providerID != "" {
		if _, err := resolveProvider(reg, cfg, *providerID); err != nil {
			return err
		}
		status, err := reg.CheckHealth(ctx, *providerID, *force)
		if err != nil {
			return err
		}
		if *asJSON {
			return printJSON(status)
		}
		printStatus(status)
		if !status.Healthy {
			return fmt.Errorf("provider %q is unhealthy", *providerID)
		}
		return nil
	}

	// Resolve every provider first so the probes run with configured
	// credentials rather than bare environment fallbacks.
	for _, id := range reg.IDs() {
		if _, err := resolveProvider(reg, cfg, id); err != nil {
			return err
		}
	}

	statuses := reg.CheckAll(ctx, *force)
	if *asJSON {
		return printJSON(statuses)
	}

	unhealthy := 0
	for _, id := range reg.IDs() {
		status := statuses[id]
		if status == nil {
			continue
		}
		printStatus(status)
		if !status.Healthy {
			unhealthy++
		}
	}
	if unhealthy > 0 {
		return fmt.Errorf("%d of %d providers unhealthy", unhealthy, len(statuses))
	}
	return nil
}

func printStatus(status *provider.HealthStatus) {
	state := "ok"
	if !status.Healthy {
		state = "FAIL"
	}
	line := fmt.Sprintf("%-13s %-5s %9s  %d models",
		status.Provider, state, status.Latency.Round(time.Millisecond), status.ModelCount)
	if status.Error != "" {
		line += "  " + status.Error
	}
	fmt.Println(line)
}
