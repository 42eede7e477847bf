package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/ericfisherdev/bountybot/internal/adapter/driven/github"
	"github.com/ericfisherdev/bountybot/internal/adapter/driven/metrics"
	"github.com/ericfisherdev/bountybot/internal/adapter/driven/permit"
	sqliteadapter "github.com/ericfisherdev/bountybot/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/bountybot/internal/adapter/driving/http"
	"github.com/ericfisherdev/bountybot/internal/application"
	"github.com/ericfisherdev/bountybot/internal/config"
	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server and admin API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	// 1. Load configuration and base bot settings (fail fast on bad values).
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	baseSettings, err := config.LoadBotSettings(cfg.SettingsPath)
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"settings_path", cfg.SettingsPath,
		"payout_network_id", cfg.PayoutNetworkID,
		"payout_key", cfg.HasPayoutKey(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database and run migrations on the writer connection.
	db, err := openDatabase(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// 4. Wire stores.
	wallets := sqliteadapter.NewWalletRepo(db)
	bots := sqliteadapter.NewBotAccountRepo(db)
	fallbacks := sqliteadapter.NewFallbackRepo(db)
	permitLog := sqliteadapter.NewPermitRepo(db)

	if err := registerBotLogin(ctx, bots, cfg.BotLogin); err != nil {
		return err
	}

	// 5. Create GitHub client.
	if cfg.GitHubToken == "" {
		slog.Warn("no github token configured, API calls are unauthenticated and writes will fail")
	}
	ghClient := githubadapter.NewClient(cfg.GitHubToken)

	// 6. Create the permit signer. The chain is only dialed with a key.
	signer, closeChain, err := newSigner(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeChain()

	// 7. Create services and the dispatcher.
	recorder := metrics.NewManager()
	settingsSvc := application.NewSettingsService(baseSettings, ghClient, cfg.RepoSettingsPath, slog.Default())
	pricingSvc := application.NewPricingService(ghClient, slog.Default())
	attributionSvc := application.NewAttributionService(ghClient, wallets, bots, fallbacks, recorder, slog.Default())
	permitSvc := application.NewPermitService(signer, permitLog, recorder, slog.Default())
	payoutSvc := application.NewPayoutService(ghClient, wallets, bots, attributionSvc, permitSvc, recorder, slog.Default())

	dispatcher := application.NewDispatcher(
		application.NewHandlerTable(pricingSvc, payoutSvc),
		settingsSvc,
		ghClient,
		recorder,
		cfg.MaxConcurrentEvents,
		slog.Default(),
	)

	// 8. Create HTTP handler and server.
	var limiter *rate.Limiter
	if cfg.WebhookRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.WebhookRate), cfg.WebhookBurst)
	}
	apiHandler := httphandler.NewHandler(dispatcher, wallets, bots, fallbacks, permitLog, cfg.WebhookSecret, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, recorder.Handler(), limiter, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	slog.Info("bountybot started", "listen_addr", cfg.ListenAddr, "bot_login", cfg.BotLogin)

	// 9. Wait for shutdown signal or a server failure.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	// 10. Graceful shutdown; in-flight payouts get the full drain window,
	// events still queued for a slot are dropped.
	dispatcher.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// openDatabase opens the sqlite database and applies pending migrations.
func openDatabase(path string) (*sqliteadapter.DB, error) {
	db, err := sqliteadapter.NewDB(path)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "path", path)

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("migrations complete")
	return db, nil
}

// registerBotLogin makes sure the bot's own account is in the bot list, so
// its claim comments are recognized and never rewarded.
func registerBotLogin(ctx context.Context, bots driven.BotAccountStore, login string) error {
	if login == "" {
		return nil
	}
	_, err := bots.Add(ctx, model.BotAccount{Username: login, AddedAt: time.Now().UTC()})
	if err != nil && !errors.Is(err, driven.ErrBotAlreadyExists) {
		return fmt.Errorf("register bot login %q: %w", login, err)
	}
	return nil
}

// newSigner builds the permit signer. Without a payout key no RPC
// connection is made and every Sign call reports permit.ErrMissingKey.
func newSigner(ctx context.Context, cfg *config.Config) (*permit.Signer, func(), error) {
	network, err := permit.LookupNetwork(cfg.PayoutNetworkID)
	if err != nil {
		return nil, nil, err
	}

	closeChain := func() {}
	var chain permit.ChainReader
	if cfg.HasPayoutKey() {
		rpcURL := cfg.PayoutRPCURL
		if rpcURL == "" {
			rpcURL = network.RPCURL
		}
		ethChain, err := permit.DialChain(ctx, rpcURL)
		if err != nil {
			return nil, nil, err
		}
		chain = ethChain
		closeChain = ethChain.Close
		slog.Info("payout chain connected", "network", network.Name, "rpc", rpcURL)
	} else {
		slog.Warn("no payout private key configured, permits cannot be issued")
	}

	signer, err := permit.NewSigner(permit.Config{
		PrivateKey: cfg.PayoutPrivateKey,
		NetworkID:  cfg.PayoutNetworkID,
		Token:      cfg.PayoutToken,
		BaseURL:    cfg.PermitBaseURL,
	}, chain)
	if err != nil {
		closeChain()
		return nil, nil, err
	}
	if cfg.HasPayoutKey() {
		slog.Info("permit signer ready", "owner", signer.Owner().Hex())
	}
	return signer, closeChain, nil
}
