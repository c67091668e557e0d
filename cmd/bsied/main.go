// Command bsied runs the statement pipeline daemon: the workflow manager,
// the timeout watchdog, and the HTTP API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bsie/internal/config"
	"bsie/internal/daemon"
	"bsie/internal/logging"
	"bsie/internal/statecontrol"
	"bsie/internal/statement"
	"bsie/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := statement.Open(cfg)
	if err != nil {
		logger.Error("open statement store", logging.Error(err))
		os.Exit(1)
	}

	controller := statecontrol.New(store, nil, logger)
	manager := workflow.NewManager(cfg, store, controller, logger)

	d, err := daemon.New(cfg, store, controller, manager, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("bsied shutting down")
}
