package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"parkgate-service/internal/bookings"
	"parkgate-service/internal/config"
	"parkgate-service/internal/db"
	"parkgate-service/internal/exitflow"
	"parkgate-service/internal/gate"
	httpapi "parkgate-service/internal/http"
	"parkgate-service/internal/monitor"
	"parkgate-service/internal/notify"
	"parkgate-service/internal/ocr"
	"parkgate-service/internal/repository"
	"parkgate-service/internal/service"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := db.RunMigrations(gormDB); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	repo := repository.NewBookingRepository(gormDB)

	index := bookings.NewIndex(repo, log.With().Str("component", "bookings").Logger())
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	if err := index.Refresh(startupCtx); err != nil {
		cancelStartup()
		log.Fatal().Err(err).Msg("initial booking refresh failed")
	}
	cancelStartup()

	mailer, err := notify.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From,
		log.With().Str("component", "mailer").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure mailer")
	}
	dispatcher := notify.NewDispatcher(mailer, log.With().Str("component", "notify").Logger())

	coordinator := exitflow.NewCoordinator(log.With().Str("component", "exitflow").Logger())
	tracker := monitor.NewTracker(log.With().Str("component", "monitor").Logger())

	// A gate link that fails to open disables that gate's control path
	// for the run; everything else keeps going.
	entryGate := gate.NewController("entry", openLink(cfg.Gates.Entry, log), log)
	exitGate := gate.NewController("exit", openLink(cfg.Gates.Exit, log), log)

	orchestrator := service.NewOrchestrator(index, tracker, dispatcher, coordinator, entryGate, exitGate, repo, repo,
		service.Config{
			PublicBaseURL:      cfg.HTTP.PublicBaseURL,
			ConfirmTimeout:     cfg.Exit.ConfirmTimeout,
			EntrySensorTimeout: cfg.Gates.Entry.SensorTimeout,
			ExitSensorTimeout:  cfg.Gates.Exit.SensorTimeout,
			ExitCooldown:       cfg.Exit.Cooldown,
		},
		log.With().Str("component", "orchestrator").Logger())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go index.Run(ctx, cfg.Bookings.RefreshInterval)

	recognizer := ocr.NewClient(cfg.OCR.ServiceURL, cfg.OCR.Timeout, log.With().Str("component", "ocr").Logger())

	if cfg.Cameras.SlotsURL != "" && len(cfg.Monitor.Slots) > 0 {
		frames := ocr.NewCameraClient(cfg.Cameras.SlotsURL, cfg.OCR.Timeout)
		observer := ocr.NewSlotObserver(frames, recognizer, cfg.Monitor.Slots, cfg.OCR.MergeConfidence,
			log.With().Str("component", "slots").Logger())
		go orchestrator.RunSlotMonitor(ctx, observer, cfg.Monitor.TickInterval)
	}
	if cfg.Cameras.EntryURL != "" {
		frames := ocr.NewCameraClient(cfg.Cameras.EntryURL, cfg.OCR.Timeout)
		cam := ocr.NewGateCamera(frames, recognizer, cfg.OCR.LiveConfidence, cfg.Cameras.EntryStability,
			log.With().Str("component", "entry-cam").Logger())
		go orchestrator.RunEntryWatch(ctx, cam, cfg.Cameras.PollInterval)
	}
	if cfg.Cameras.ExitURL != "" {
		frames := ocr.NewCameraClient(cfg.Cameras.ExitURL, cfg.OCR.Timeout)
		cam := ocr.NewGateCamera(frames, recognizer, cfg.OCR.LiveConfidence, 1,
			log.With().Str("component", "exit-cam").Logger())
		go orchestrator.RunExitWatch(ctx, cam, cfg.Cameras.PollInterval)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.AllowedOrigins,
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := httpapi.NewHandler(orchestrator, coordinator, repo, cfg, log.With().Str("component", "http").Logger())
	handler.Register(router, httpapi.JWTAuthMiddleware(cfg.HTTP.JWTSecret))

	srv := &http.Server{
		Addr:    cfg.HTTP.ListenAddr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTP.ListenAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	// Pending confirmations are abandoned on shutdown; their Await calls
	// observe ctx cancellation and deny.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	closeLink(entryGate, log)
	closeLink(exitGate, log)
}

func openLink(cfg config.GateLinkConfig, log zerolog.Logger) gate.Link {
	if cfg.Device == "" {
		log.Warn().Msg("no gate device configured, gate control disabled")
		return nil
	}
	link, err := gate.OpenSerialLink(cfg.Device, cfg.BaudRate, log.With().Str("component", "gate-link").Str("device", cfg.Device).Logger())
	if err != nil {
		log.Error().Err(err).Str("device", cfg.Device).Msg("gate link unavailable, gate control disabled for this run")
		return nil
	}
	return link
}

func closeLink(c *gate.Controller, log zerolog.Logger) {
	if err := c.CloseLink(); err != nil {
		log.Error().Err(err).Msg("failed to close gate link")
	}
}
