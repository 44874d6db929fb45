package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eternisai/fire-alerts/internal/alerts"
	"github.com/eternisai/fire-alerts/internal/auth"
	"github.com/eternisai/fire-alerts/internal/config"
	"github.com/eternisai/fire-alerts/internal/firebase"
	"github.com/eternisai/fire-alerts/internal/logger"
	"github.com/eternisai/fire-alerts/internal/notifications"
	"github.com/eternisai/fire-alerts/internal/presence"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig

	log := logger.New(logger.FromConfig(cfg.LogLevel, cfg.LogFormat))
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fb, err := firebase.NewClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredJSON)
	if err != nil {
		log.Error("failed to initialize firebase", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer fb.Close() //nolint:errcheck

	// Presence index and user registry live in the same Firestore database.
	store := presence.NewFirestoreStore(fb.Firestore, cfg.PresenceCollection, cfg.UsersCollection)
	collector := presence.NewCollector(store, store, log)

	dispatcher := notifications.NewService(fb.Messaging, log, notifications.Options{
		Enabled:      cfg.PushNotificationsEnabled,
		SendInterval: cfg.PushSendInterval,
		Appearance:   cfg.Alert.Appearance,
		DebugCurl:    cfg.PushDebugCurl,
		CredJSON:     cfg.FirebaseCredJSON,
		ProjectID:    cfg.FirebaseProjectID,
	})

	bodyTemplate, err := notifications.ParseBodyTemplate(cfg.Alert.BodyTemplate)
	if err != nil {
		log.Error("invalid alert body template", slog.String("error", err.Error()))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := alerts.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		log.Error("failed to register metrics", slog.String("error", err.Error()))
		os.Exit(1)
	}

	reports := alerts.NewReportStore(fb.Firestore, cfg.ReportsCollection)

	pipelineConfig := alerts.PipelineConfig{
		Collector:           collector,
		Dispatcher:          dispatcher,
		Metrics:             metrics,
		Logger:              log,
		DefaultRadiusMeters: cfg.DefaultRadiusMeters,
		Title:               cfg.Alert.Title,
		BodyTemplate:        bodyTemplate,
	}
	if cfg.RecordDispatchSummary {
		pipelineConfig.Summary = reports
		log.Info("dispatch summaries enabled", slog.String("collection", cfg.ReportsCollection))
	}
	if cfg.NatsURL != "" {
		nc, err := alerts.ConnectNATS(cfg.NatsURL, log)
		if err != nil {
			// Events are optional; alerts still go out without them.
			log.Warn("nats unavailable, dispatch events disabled", slog.String("error", err.Error()))
		} else {
			defer nc.Drain() //nolint:errcheck
			pipelineConfig.Events = alerts.NewNATSEvents(nc, cfg.AlertEventsSubject)
			log.Info("dispatch events enabled", slog.String("subject", cfg.AlertEventsSubject))
		}
	}

	pipeline, err := alerts.NewPipeline(pipelineConfig)
	if err != nil {
		log.Error("failed to build pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var (
		handler   *alerts.Handler
		eventAuth []gin.HandlerFunc
	)
	if cfg.TriggerMode.HTTP() {
		handler = alerts.NewHandler(pipeline, reports, log)

		if cfg.TriggerAuthEnabled {
			validator, err := auth.NewOIDCValidator(ctx, cfg.TriggerAuthJWKSURL, cfg.TriggerAuthAudience, cfg.TriggerAuthAllowedEmails)
			if err != nil {
				log.Error("failed to initialize event trigger auth", slog.String("error", err.Error()))
				os.Exit(1)
			}
			eventAuth = append(eventAuth, auth.NewEventAuthMiddleware(validator, log).RequireEventAuth())
			log.Info("event trigger auth enabled", slog.String("audience", cfg.TriggerAuthAudience))
		} else {
			log.Warn("event trigger auth disabled, /v1/events accepts unauthenticated calls")
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: alerts.NewRouter(handler, registry, eventAuth...),
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.TriggerMode.Listener() {
		listener := alerts.NewListener(fb.Firestore, cfg.ReportsCollection, pipeline, log)
		g.Go(func() error {
			return listener.Run(gctx)
		})
	}

	g.Go(func() error {
		log.Info("🚀 fire alert service starting",
			slog.String("port", cfg.Port),
			slog.String("trigger_mode", string(cfg.TriggerMode)),
			slog.Bool("push_enabled", cfg.PushNotificationsEnabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("🛑 shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("✅ server exited")
}
