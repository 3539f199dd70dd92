package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kiloex-bot/internal/accounts"
	"kiloex-bot/internal/bot"
	"kiloex-bot/internal/cfg"
	"kiloex-bot/internal/common"
	"kiloex-bot/internal/exchange/kiloex"
	"kiloex-bot/internal/metrics"
	"kiloex-bot/internal/storage"
	"kiloex-bot/internal/tasks"
	"kiloex-bot/internal/trade"
)

func main() {
	var (
		logLevel     = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		accountsFile = flag.String("accounts", "", "Path to account file (overrides config)")
		interactive  = flag.Bool("interactive", false, "Prompt for trading settings before starting")
	)
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if *accountsFile != "" {
		c.AccountsFile = *accountsFile
	}

	accts, err := accounts.Load(c.AccountsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("account load failed")
	}
	log.Info().Int("accounts", len(accts)).Str("file", c.AccountsFile).Msg("accounts loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	client := kiloex.New(c.BaseURL, c.HTTPTimeout).WithMetrics(m)

	// The catalog is an immutable snapshot for the process lifetime;
	// restart to refresh it.
	products, err := client.Products(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load products, using default product settings")
		c.ProductSelector = cfg.ProductDefault
		products = nil
	}

	if *interactive {
		if err := configureInteractive(&c, products); err != nil {
			log.Fatal().Err(err).Msg("interactive configuration failed")
		}
	}
	displayTradingConfig(c, products)

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	startMetricsServer(ctx, c.MetricsPort)

	taskEngine := tasks.New(client, m, store, c.TaskDelay)
	tradeEngine := trade.New(client, c, products, m, store)
	b := bot.New(client, c, accts, taskEngine, tradeEngine, m)

	if err := b.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("shutdown signal received, exiting")
			return
		}
		log.Fatal().Err(err).Msg("bot stopped")
	}
}

// initializeStorage opens the journal if DATA_PATH is configured.
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without journal")
		return nil
	}
	return store
}

// startMetricsServer starts the Prometheus metrics HTTP server.
func startMetricsServer(ctx context.Context, port int) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func displayTradingConfig(c cfg.Settings, products []kiloex.Product) {
	product := "BTC (default)"
	switch {
	case c.ProductSelector == cfg.ProductRandom:
		product = "random (changes each order)"
	default:
		if id, ok := c.ProductID(); ok {
			product = fmt.Sprintf("id %d", id)
			for _, p := range products {
				if p.ID == id {
					product = fmt.Sprintf("%s (%s)", p.Base, p.Name)
					break
				}
			}
		}
	}
	log.Info().
		Str("product", product).
		Str("margin", common.FormatAmount(c.Margin)+" USDT").
		Int("leverage", c.Leverage).
		Str("settleDelay", common.FormatSettleDelay(c.SettleDelay)).
		Msg("trading configuration")
}
