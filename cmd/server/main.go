package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-jobscout/internal/browser"
	"go-jobscout/internal/config"
	"go-jobscout/internal/logging"
	"go-jobscout/internal/notify"
	"go-jobscout/internal/scraper/linkedin"
	"go-jobscout/internal/server"
	"go-jobscout/internal/store"
	"go-jobscout/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	//load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("❌ Failed to load config: %v", err)
	}
	logger := logging.New(cfg.Log)
	log := logging.Component(logger, "server")
	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//notifiers: SSE hub and log, plus telegram when configured
	hub := notify.NewHub(64)
	notifiers := notify.Multi{hub, notify.NewLog(logging.Component(logger, "run"))}
	if cfg.Telegram.Enabled() {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, logging.Component(logger, "telegram"))
		if err != nil {
			log.Warnf("⚠️ Telegram disabled: %v", err)
		} else {
			notifiers = append(notifiers, tg)
			log.Info("🤖 Telegram notifications enabled")
		}
	}

	launcher := &browser.PlaywrightLauncher{
		Headless:    cfg.Browser.Headless,
		CookiesPath: cfg.Browser.CookiesPath,
		Log:         logging.Component(logger, "playwright"),
	}
	searcher := linkedin.NewFromConfig(cfg, launcher, logger)
	st := store.New()
	runner := worker.New(searcher, notifiers, worker.WithStore(st), worker.WithLogger(logging.Component(logger, "worker")))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.New(ctx, runner, st, hub, log, server.WithTelegramChat(cfg.Telegram.ChatID)).Router(),
		ReadHeaderTimeout: 10 * time.Second,
		//event streams end with the process context
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("🚀 Server listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("🛑 Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		runner.Cleanup()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
	log.Info("🏁 Server stopped.")
}
