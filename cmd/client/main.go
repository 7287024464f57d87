package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"techworld_client/internal/account"
	"techworld_client/internal/api"
	"techworld_client/internal/auth"
	"techworld_client/internal/cart"
	"techworld_client/internal/catalog"
	"techworld_client/internal/config"
	"techworld_client/internal/detail"
	"techworld_client/internal/logger"
	"techworld_client/internal/nav"
	"techworld_client/internal/session"
	"techworld_client/internal/shell"
	"techworld_client/internal/shutdown"
	"techworld_client/internal/storage"
	"techworld_client/internal/ui"
)

func main() {
	cfg := config.Load()

	apiURL := flag.String("api", cfg.APIBaseURL, "shop API base URL")
	sessionFile := flag.String("session-file", cfg.SessionFile, "where the file session backend keeps its data")
	backend := flag.String("session-backend", cfg.SessionBackend, "session storage: file, redis or memory")
	liveSync := flag.Bool("live", cfg.CartLiveSync, "follow server cart changes while the cart is open")
	flag.Parse()

	logOut, err := logger.Open(cfg.LogFile)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer logOut.Close()

	lg := logger.New(logOut, logger.Options{
		Service: "techworld-client",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	ctx, cancel := shutdown.WithSignals(context.Background(), lg)
	defer cancel()

	kv, closeStore, err := storage.Open(ctx, storage.Options{
		Backend:       *backend,
		FilePath:      *sessionFile,
		RedisHost:     cfg.RedisHost,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisPrefix:   cfg.RedisPrefix,
	})
	if err != nil {
		log.Fatalf("❌ session storage: %v", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			lg.Warn("closing session storage", "err", err)
		}
	}()

	client := api.New(*apiURL, cfg.HTTPTimeout, api.WithLogger(lg))
	sessions := session.NewStore(kv)
	stack := nav.NewStack()
	in := bufio.NewReader(os.Stdin)
	prompt := ui.NewTerminal(in, os.Stdout)

	flow := auth.NewFlow(client, sessions, stack, prompt, lg)
	sh := shell.New(shell.Deps{
		In:       in,
		Out:      os.Stdout,
		Log:      lg,
		Nav:      stack,
		Auth:     flow,
		Catalog:  catalog.NewScreen(client, sessions, stack, prompt, lg),
		Detail:   detail.NewScreen(client, sessions, flow, stack, prompt, lg),
		Cart:     cart.NewScreen(client, sessions, flow, stack, prompt, lg),
		Account:  account.NewScreen(sessions, flow, stack, prompt, lg),
		LiveSync: *liveSync,
	})

	lg.Info("client started", "api", client.BaseURL(), "session_backend", *backend)
	if err := sh.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		lg.Error("shell stopped", "err", err)
		os.Exit(1)
	}
	lg.Info("client stopped")
}
