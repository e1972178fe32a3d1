package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/argus-sec/argus/pkg/config"
	"github.com/argus-sec/argus/pkg/debug"
	"github.com/argus-sec/argus/pkg/provider"
	"github.com/argus-sec/argus/pkg/provider/registry"
)

// loadConfig resolves the layered configuration, wires the debug logger and,
// when configured, exposes the Prometheus registry over HTTP.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	debug.Init(cfg.Debug.Categories, cfg.Debug.Level)
	startMetrics(cfg.Observability.MetricsAddr)
	return cfg, nil
}

// startMetrics serves /metrics in the background. A failure to bind is
// reported and otherwise ignored so a busy port never blocks a review.
func startMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Warn("metrics endpoint failed", "addr", addr, "error", err)
		}
	}()
}

// newRegistry builds the provider registry every subcommand shares. One
// discovery engine backs it so repeated commands in scripted runs hit the
// same listing cache.
func newRegistry() *registry.Registry {
	reg := registry.New(registry.Options{})
	reg.RegisterBuiltins()
	return reg
}

// resolveProvider hands the configured credentials for id to the registry
// and returns the (possibly cached) provider instance.
func resolveProvider(reg *registry.Registry, cfg *config.Config, id string) (provider.Provider, error) {
	pc := cfg.ProviderFor(id)
	return reg.Resolve(id, pc.APIKey, pc.BaseURL)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
