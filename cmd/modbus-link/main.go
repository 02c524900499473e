// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sourcegraph/conc"
	"github.com/spf13/pflag"

	"github.com/ffutop/modbus-link/internal/config"
	"github.com/ffutop/modbus-link/internal/station"
	"github.com/ffutop/modbus-link/transport/serial"
)

func main() {
	configFile := pflag.StringP("config", "c", "", "Configuration file path.")
	listPorts := pflag.BoolP("list-ports", "l", false, "List serial ports and exit.")
	logLevel := pflag.StringP("log-level", "v", "", "Log verbosity level (debug, info, warn, error), overrides the config file.")
	watch := pflag.BoolP("watch", "w", false, "Apply fast mode and timeout changes when the config file changes.")
	pflag.Parse()

	if *listPorts {
		ports, err := serial.ListPorts()
		if err != nil {
			fmt.Printf("Failed to list serial ports: %v\n", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		stations = make(map[string]*station.Station)
	)
	reload := func(next *config.Config) {
		mu.Lock()
		defer mu.Unlock()
		for _, lc := range next.Links {
			st, ok := stations[lc.Name]
			if !ok {
				continue
			}
			if err := st.Apply(ctx, lc); err != nil {
				slog.Warn("Failed to apply configuration", "link", lc.Name, "err", err)
			}
		}
	}

	// Load Configuration
	var (
		cfg *config.Config
		err error
	)
	if *watch {
		cfg, err = config.Watch(*configFile, reload)
	} else {
		cfg, err = config.LoadConfig(*configFile)
	}
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	setupLogger(cfg.Log)

	slog.Info("Starting Modbus Link...")

	mu.Lock()
	for _, lc := range cfg.Links {
		st, err := station.New(ctx, lc)
		if err != nil {
			slog.Error("Failed to start link", "link", lc.Name, "err", err)
			continue
		}
		stations[lc.Name] = st
	}
	mu.Unlock()

	if len(stations) == 0 {
		slog.Error("No valid links configured. Exiting.")
		os.Exit(1)
	}

	// Start Stations
	var wg conc.WaitGroup
	for _, st := range stations {
		st := st
		wg.Go(func() {
			if err := st.Run(ctx); err != nil {
				slog.Error("Link stopped with error", "link", st.Name, "err", err)
			}
		})
	}

	// Wait for Signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	cancel()
	wg.Wait()
	slog.Info("Goodbye.")
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stdout: %v\n", err)
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
