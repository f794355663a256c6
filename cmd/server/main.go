package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"neochat/internal"
	"neochat/relay"
	"neochat/relay/workers"
	"neochat/repositories"
	"neochat/transport/poll"
	"neochat/transport/tcp"
	"neochat/transport/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle and
// centralizes error reporting so deferred cleanup always executes.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Snapshot store & relay core
	store, err := repositories.NewSnapshotStore(config.LogDir, log)
	if err != nil {
		return err
	}
	coordinator := relay.New(log, store, relay.Options{
		CaseSensitiveNames: config.CaseSensitiveNames,
		MaxContentLength:   config.MaxContentLength,
	})

	// 3. Context & Signals
	// The console's quit command shares the same cancel path as SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printBanner(config)

	// 4. Supervised workers: three transports plus maintenance
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		tcp.NewServer(log, coordinator, config.TCPAddr(), config.IdentifyTimeout, config.SendBufferSize),
		ws.NewServer(log, coordinator, config.WSAddr(), config.IdentifyTimeout, config.SendBufferSize),
		poll.NewServer(log, coordinator, config.HTTPAddr()),
		workers.NewSnapshotWorker(log, coordinator, config.SnapshotInterval),
		workers.NewReaperWorker(log, coordinator, config.ReaperInterval, config.SessionTimeout),
		workers.NewConsoleWorker(log, coordinator, os.Stdin, os.Stdout, cancel),
	)
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}
