// Command shopctl drives the storefront client from the shell. Cached data
// lives in the backend chosen by SHOP_STORAGE, so with redis or postgres a
// login persists across invocations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/adeilh/go-shopcache/cache"
	"github.com/adeilh/go-shopcache/config"
	"github.com/adeilh/go-shopcache/httpx"
	"github.com/adeilh/go-shopcache/logging"
	"github.com/adeilh/go-shopcache/storefront"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: shopctl [-env FILE] COMMAND [ARGS]\n\ncommands:\n%s", usage)
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	os.Exit(execute(*envFile, flag.Args()))
}

func execute(envFile string, args []string) int {
	cfg := config.Load(envFile)
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Error("invalid logging configuration")
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("invalid configuration")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("unable to open storage")
		return 1
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.WithError(err).Warn("closing storage")
		}
	}()

	if err := run(ctx, newService(cfg, store, log), args, os.Stdout); err != nil {
		log.WithError(err).Error("command failed")
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func newService(cfg *config.Config, store cache.Store, log *logrus.Logger) *storefront.Service {
	manager := cache.NewManager(store, cache.WithLogger(log))
	client := httpx.NewClient(
		httpx.WithBaseURL(cfg.APIURL),
		httpx.WithClientTimeout(cfg.HTTPTimeout),
		httpx.WithClientLogger(log),
		httpx.WithRetry(cfg.HTTPRetries, 0),
	)
	return storefront.NewService(client, manager,
		storefront.WithLogger(log),
		storefront.WithStaleHandler(func(resource string, cause error) {
			log.WithField("resource", resource).WithError(cause).Warn("showing cached data, backend unreachable")
		}),
	)
}
