package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/betbot/polycopy/internal/activity"
	"github.com/betbot/polycopy/internal/controlplane/server"
	"github.com/betbot/polycopy/internal/copytrade"
	"github.com/betbot/polycopy/internal/metrics"
	"github.com/betbot/polycopy/pkg/config"
	"github.com/betbot/polycopy/pkg/logger"
	"github.com/betbot/polycopy/pkg/ratelimit"
	"github.com/betbot/polycopy/pkg/secretstore"
	"github.com/betbot/polycopy/pkg/shutdown"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", os.Getenv("POLYCOPY_CONFIG"), "optional YAML/JSON config file")
		secretKey  = flag.String("secret-key", os.Getenv("POLYCOPY_SECRET_KEY"), "badger encryption key for the secrets db (32 bytes base64/hex)")
	)
	flag.Parse()

	if err := run(*configPath, *secretKey); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		os.Exit(1)
	}
}

func run(configPath, secretKey string) error {
	secrets, err := openSecrets(secretKey)
	if err != nil {
		return err
	}
	defer secrets.Close()

	cfg, err := config.Load(configPath, secrets.Getenv)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// 所有租户共享同一组限流器
	rl := ratelimit.NewRateLimitManager()
	feed := activity.NewClient(activity.Options{
		BaseURL:     cfg.DataAPIURL,
		Timeout:     cfg.FeedTimeout,
		RateLimiter: rl,
	})

	reg := copytrade.NewRegistry(copytrade.Options{
		Defaults: copytrade.EngineConfig{
			APIKey:         cfg.Credentials.APIKey,
			APISecret:      cfg.Credentials.APISecret,
			APIPassphrase:  cfg.Credentials.APIPassphrase,
			AmountPerTrade: decimal.NewFromFloat(cfg.AmountPerTrade),
			ChainID:        cfg.ChainID,
			Host:           cfg.ClobHost,
		},
		Tuning: copytrade.Tuning{
			PollInterval:     cfg.PollInterval,
			ErrorBackoff:     cfg.ErrorBackoff,
			PollLimit:        cfg.PollLimit,
			InitialSyncLimit: cfg.InitialSyncLimit,
			LedgerCap:        cfg.LedgerCap,
			LogBufferCap:     cfg.LogBufferCap,
		},
		Feed:        feed,
		NewExchange: copytrade.NewClobExchangeFactory(cfg.ClobTimeout, rl),
	})

	srv, err := server.New(server.Config{Registry: reg})
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	sm := shutdown.NewManager()
	sm.OnShutdown("http", func(ctx context.Context) {
		if err := httpSrv.Shutdown(ctx); err != nil {
			logger.Warnf("http shutdown: %v", err)
		}
	})
	sm.OnShutdown("engines", func(ctx context.Context) {
		if err := reg.Shutdown(ctx); err != nil {
			logger.Warnf("engines did not stop in time: %v", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("PolyCopy listening on %s (data api %s, clob %s)", cfg.ListenAddr, cfg.DataAPIURL, cfg.ClobHost)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if cfg.MetricsListen != "" {
		g.Go(func() error {
			if _, err := metrics.StartAsync(gctx, cfg.MetricsListen); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			logger.Infof("metrics listening on %s", cfg.MetricsListen)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Infof("shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if !sm.Shutdown(sctx) {
			logger.Warnf("shutdown timed out after %s", shutdownTimeout)
		}
		return nil
	})

	err = g.Wait()
	logger.Infof("server stopped")
	return err
}

// openSecrets 打开可选的 badger 密钥库（只读）；未配置时返回 nil，Getenv 退化为 os.Getenv
func openSecrets(secretKey string) (*secretstore.Store, error) {
	path := strings.TrimSpace(os.Getenv("SECRETS_DB"))
	if path == "" {
		return nil, nil
	}
	key, err := secretstore.ParseKey(secretKey)
	if err != nil {
		return nil, err
	}
	return secretstore.Open(secretstore.OpenOptions{Path: path, EncryptionKey: key, ReadOnly: true})
}
