package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nidhogg/valet/internal/api"
	"github.com/nidhogg/valet/internal/classify"
	"github.com/nidhogg/valet/internal/config"
	"github.com/nidhogg/valet/internal/digest"
	"github.com/nidhogg/valet/internal/gateway"
	"github.com/nidhogg/valet/internal/provider"
	"github.com/nidhogg/valet/internal/reminder"
	msgrouter "github.com/nidhogg/valet/internal/router"
	"github.com/nidhogg/valet/internal/store"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting valet...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/valet.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Provider router
	providers := provider.NewRouter(logger)
	for _, pc := range cfg.Providers {
		provCfg := provider.ProviderConfig{
			ID: pc.ID, Type: pc.Type, Name: pc.Name,
			Endpoint: pc.Endpoint, APIKey: pc.APIKey,
			Model: pc.Model, Extra: pc.Extra,
		}
		switch pc.Type {
		case "gemini":
			providers.Register(provider.NewGeminiProvider(provCfg, logger))
		case "openai":
			providers.Register(provider.NewOpenAIProvider(provCfg, logger))
		default:
			logger.Warn("unknown provider type", zap.String("id", pc.ID), zap.String("type", pc.Type))
		}
	}
	if cfg.Classify.Provider != "" {
		providers.SetDefault(cfg.Classify.Provider)
	}

	// Durable stores
	st, err := store.New(cfg.Storage.DataDir, logger)
	if err != nil {
		logger.Fatal("failed to open data dir", zap.String("dir", cfg.Storage.DataDir), zap.Error(err))
	}

	classifier := classify.New(providers, cfg.Classify.Categories, logger)

	// Gateway and notification fan-out
	gw := gateway.NewGateway(logger)
	dispatch := reminder.NewDispatcher(logger)
	sched := reminder.NewScheduler(st.Reminders, dispatch, logger)

	// Wire the message router before registering adapters so no early
	// message is dropped.
	router := msgrouter.New(st, classifier, sched, dispatch, gw,
		cfg.Owner.Conversations, cfg.Classify.AutoCreate, logger)
	gw.SetHandler(router.Handler())

	restAdapter := gateway.NewRESTAdapter(logger)
	gw.Register(restAdapter)
	dispatch.Register(gw.Sink("rest"))

	if cfg.Gateway.Slack.Enabled && cfg.Gateway.Slack.BotToken != "" {
		gw.Register(gateway.NewSlackAdapter(cfg.Gateway.Slack.BotToken, cfg.Gateway.Slack.AppToken, logger))
		dispatch.Register(gw.Sink("slack"))
	}
	if cfg.Gateway.Discord.Enabled && cfg.Gateway.Discord.BotToken != "" {
		gw.Register(gateway.NewDiscordAdapter(cfg.Gateway.Discord.BotToken, logger))
		dispatch.Register(gw.Sink("discord"))
	}

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()

	if err := gw.ConnectAll(runCtx); err != nil {
		logger.Warn("some gateway adapters failed to connect", zap.Error(err))
	}

	// Recovery sweep: rebuild timers from disk now and re-scan daily. This
	// process only arms reminders for the platforms it serves.
	served := gw.Adapters()
	owns := func(conversationID string) bool {
		for _, p := range served {
			if strings.HasPrefix(conversationID, p+":") {
				return true
			}
		}
		return false
	}
	sweep := reminder.NewSweep(st.Reminders, sched, owns, reminder.DefaultSweepInterval, logger)
	go sweep.Run(runCtx)

	// Daily digest for the owner
	if cfg.Digest.Enabled && len(cfg.Owner.Conversations) > 0 {
		d := digest.New(st, dispatch, cfg.Owner.Conversations[0], cfg.Digest.Hour, logger)
		go d.Run(runCtx)
	}

	// HTTP server
	handler := api.NewHandler(st, providers, restAdapter, gw, logger)
	port := fmt.Sprintf("%d", cfg.Server.Port)
	if port == "0" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("valet listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down valet...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	gw.Close()
}
