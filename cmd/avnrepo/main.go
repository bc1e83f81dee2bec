package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlfranklin/avnrepo/internal/api"
	"github.com/carlfranklin/avnrepo/internal/customers"
	"github.com/carlfranklin/avnrepo/pkg/errors"
	"github.com/carlfranklin/avnrepo/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		stdlog.Panic(errors.WrapFail(err, "parse flags"))
	}

	cfg, err := loadConfig(f)
	if err != nil {
		stdlog.Panic(errors.WrapFail(err, "load config"))
	}

	log, err := logger.New(cfg.Environment)
	if err != nil {
		stdlog.Panic(errors.WrapFail(err, "init logger"))
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGABRT)
	defer cancel()

	customersRepo, err := customers.New(ctx, log, cfg.Repo)
	if err != nil {
		log.Panic(errors.WrapFail(err, "init customers repo"))
	}

	server := api.NewServer(cfg.API, log)
	api.Mount(server, customers.Source, customersRepo,
		api.BeforeInsert(customers.Prepare),
		api.BeforeUpdate(customers.Validate),
	)

	log.Infof("starting in %s environment with %q backend", cfg.Environment, cfg.Repo.Backend)

	err = server.Serve(ctx)
	if err != nil {
		log.Error(errors.WrapFail(err, "serve api"))
	}

	stdlog.Println("Graceful shutdown...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()

	err = server.Shutdown(shutdownCtx)
	if err != nil {
		log.Error(errors.WrapFail(err, "shutdown"))
	}

	stdlog.Println("Shutdown complete")
}
