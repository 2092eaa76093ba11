// cmd/modsim/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/tamzrod/modsim/internal/config"
	"github.com/tamzrod/modsim/internal/protocol"
	"github.com/tamzrod/modsim/internal/sim"
	"github.com/tamzrod/modsim/internal/transport"
)

func main() {
	app := &cli.App{
		Name:  "modsim",
		Usage: "Modbus field device simulator over TCP and serial",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the configuration file",
				Value:   "config.toml",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	// --------------------
	// Engine + ticker
	// --------------------

	engine := sim.Build(cfg, logger)
	dispatcher := protocol.NewDispatcher(engine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The ticker runs for the process lifetime and is not joined on
	// shutdown; it dies with the process.
	go sim.RunTicker(ctx, engine)

	// --------------------
	// Transports
	// --------------------

	var wg sync.WaitGroup
	started := 0

	if cfg.TCP != nil {
		server, err := transport.NewTCPServer(cfg.TCP.Bind, dispatcher, logger)
		if err != nil {
			logger.Error().Err(err).Str("bind", cfg.TCP.Bind).Msg("tcp transport failed to start")
		} else {
			started++
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := server.Serve(ctx); err != nil {
					logger.Error().Err(err).Msg("tcp transport failed")
				}
			}()
		}
	}

	if cfg.RTU != nil {
		server, err := transport.NewRTUServer(transport.RTUConfig{
			Mode:     cfg.RTU.Mode,
			Device:   cfg.RTU.Device,
			BaudRate: cfg.RTU.BaudRate,
			DataBits: cfg.RTU.DataBits,
			Parity:   cfg.RTU.Parity,
			StopBits: cfg.RTU.StopBits,
			UnitID:   cfg.Device.UnitID,
		}, dispatcher, logger)
		if err != nil {
			logger.Error().Err(err).Msg("rtu transport failed to start")
		} else {
			started++
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := server.Serve(ctx); err != nil {
					logger.Error().Err(err).Msg("rtu transport failed")
				}
			}()
		}
	}

	// An enabled transport that failed to open degrades the process
	// to ticker-only rather than aborting it.
	if started == 0 {
		logger.Error().Msg("no transport running; simulation continues without servable requests")
	}

	logger.Info().
		Uint8("unit_id", cfg.Device.UnitID).
		Dur("tick", engine.MinTickInterval()).
		Msg("modsim started")

	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	wg.Wait()

	return nil
}
