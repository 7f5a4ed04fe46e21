package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/adeilh/go-shopcache/config"
	"github.com/adeilh/go-shopcache/internal/mockapi"
	"github.com/adeilh/go-shopcache/logging"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	listenAddr := flag.String("listenAddr", "", "address to listen to (overrides SHOP_MOCK_ADDR)")
	noSeed := flag.Bool("empty", false, "start without demo data")
	flag.Parse()

	cfg := config.Load(*envFile)
	if *listenAddr != "" {
		cfg.MockAddr = *listenAddr
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("invalid logging configuration")
	}

	seed := !*noSeed
	srv, err := mockapi.New(mockapi.Options{Address: cfg.MockAddr, Logger: log, Seed: &seed})
	if err != nil {
		log.WithError(err).Fatal("unable to build mock API")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		log.WithError(err).Error("mock API stopped")
		os.Exit(1)
	}
	log.Info("mock API shut down")
}
