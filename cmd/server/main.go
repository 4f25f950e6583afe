package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"proofing/internal/analytics"
	"proofing/internal/docauth"
	"proofing/internal/flow"
	"proofing/internal/notification"
	"proofing/internal/platform/config"
	"proofing/internal/platform/httpserver"
	"proofing/internal/platform/logger"
	"proofing/internal/platform/metrics"
	platformredis "proofing/internal/platform/redis"
	"proofing/internal/profile"
	"proofing/internal/proofing"
	"proofing/internal/session"
	"proofing/internal/throttle"
	httptransport "proofing/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connecting to redis failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var sessions session.Store = session.NewInMemoryStore()
	var throttleStore throttle.Store = throttle.NewInMemoryStore()
	var jobs proofing.Store = proofing.NewInMemoryStore()
	if redisClient != nil {
		sessions = session.NewRedisStore(redisClient.Client, cfg.SessionTTL)
		throttleStore = throttle.NewRedisStore(redisClient.Client)
		jobs = proofing.NewRedisStore(redisClient.Client)
	}

	var profiles profile.Store = profile.NewInMemoryStore()
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("opening postgres failed", "error", err)
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("pinging postgres failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		profiles = profile.NewPostgres(db)
	}

	var notifier notification.Notifier = notification.Noop{}
	if cfg.SNSTopicARN != "" {
		snsNotifier, err := notification.NewSNS(cfg.AWSRegion, cfg.SNSTopicARN)
		if err != nil {
			log.Error("configuring sns notifier failed", "error", err)
			os.Exit(1)
		}
		notifier = snsNotifier
	}

	m := metrics.New()
	emitter := analytics.NewEmitter(log)
	go emitter.Run(ctx, analytics.SlogSink{Logger: log})

	docRouter, err := buildDocRouter(cfg, emitter, m)
	if err != nil {
		log.Error("configuring doc auth vendors failed", "error", err)
		os.Exit(1)
	}

	orchestrator := proofing.NewOrchestrator(docRouter, jobs, emitter, m,
		cfg.ResolutionJobTTL, cfg.VendorTimeout, proofing.WithLogger(log))
	lifecycle := profile.NewLifecycle(profiles, notifier, emitter, m,
		profile.WithLogger(log))
	throttles := throttle.New(throttleStore, throttle.LimitsFromConfig(cfg.Throttle))

	handler := httptransport.NewHandler(httptransport.HandlerDeps{
		Sessions:     sessions,
		Snapshot:     func() flow.Snapshot { return snapshot(cfg) },
		Throttles:    throttles,
		DocRouter:    docRouter,
		Orchestrator: orchestrator,
		Profiles:     profiles,
		Lifecycle:    lifecycle,
		Notifier:     notifier,
		Tracker:      emitter,
		Metrics:      m,
		Logger:       log,
	})
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	go func() {
		log.Info("starting proofing server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func snapshot(cfg config.Config) flow.Snapshot {
	return flow.Snapshot{
		HybridFlowEnabled: cfg.HybridFlowEnabled,
		SelfieRequired:    cfg.SelfieRequired,
	}
}

func buildDocRouter(cfg config.Config, tracker analytics.Tracker, m *metrics.Metrics) (*docauth.Router, error) {
	primary, err := docauth.ParseVendor(cfg.Vendor.Primary)
	if err != nil {
		return nil, err
	}
	routerCfg := docauth.RouterConfig{
		Primary:        primary,
		Randomize:      cfg.Vendor.Randomize,
		Percent:        cfg.Vendor.RandomizePercent,
		SelfieRequired: cfg.SelfieRequired,
	}
	if cfg.Vendor.Alternate != "" {
		alternate, err := docauth.ParseVendor(cfg.Vendor.Alternate)
		if err != nil {
			return nil, err
		}
		routerCfg.Alternate = alternate
	}

	clients := []docauth.Client{docauth.NewMockClient()}
	if cfg.Vendor.AcuantBaseURL != "" {
		clients = append(clients, docauth.NewAcuantClient(cfg.Vendor.AcuantBaseURL, cfg.VendorTimeout))
	}
	if cfg.Vendor.LexisNexisBaseURL != "" {
		clients = append(clients, docauth.NewLexisNexisClient(cfg.Vendor.LexisNexisBaseURL, cfg.VendorTimeout))
	}
	return docauth.NewRouter(routerCfg, clients, tracker, m)
}
