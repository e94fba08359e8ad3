/*
Ticker Core
Copyright (c) 2026 The Ticker Project Contributors.

This file is part of Ticker Core.

Ticker Core is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Ticker Core is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Ticker Core.  If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/TickerProject/ticker-core/pkg/config"
	"github.com/TickerProject/ticker-core/pkg/helpers"
	"github.com/TickerProject/ticker-core/pkg/service"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	configDir := flag.String(
		"config",
		"/etc/ticker",
		"directory holding the service config file",
	)
	dataDir := flag.String(
		"data",
		"/var/lib/ticker",
		"directory holding messages, settings and logs",
	)
	daemonMode := flag.Bool(
		"daemon",
		false,
		"run without logging to stderr",
	)
	showVersion := flag.Bool(
		"version",
		false,
		"print version and exit",
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("Ticker Core", config.AppVersion)
		return nil
	}

	cfg, err := config.NewConfig(*configDir, config.BaseDefaults)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	var logWriters []io.Writer
	if !*daemonMode {
		logWriters = []io.Writer{os.Stderr}
	}
	if err := helpers.InitLogging(*dataDir, cfg.DebugLogging(), logWriters); err != nil {
		return fmt.Errorf("error initializing logging: %w", err)
	}

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	svc, err := service.New(service.Options{
		Config:  cfg,
		DataDir: *dataDir,
	})
	if err != nil {
		return fmt.Errorf("error creating service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// a requested reboot also lands here: the process exits cleanly and
	// supervision restarts it
	if err := svc.Start(ctx); err != nil {
		log.Error().Err(err).Msg("service stopped with error")
		return err
	}

	log.Info().Msg("service stopped")
	return nil
}
