package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/mindengage-omr/internal/api/http"
	"github.com/mind-engage/mindengage-omr/internal/auth"
	"github.com/mind-engage/mindengage-omr/internal/config"
	"github.com/mind-engage/mindengage-omr/internal/db"
	"github.com/mind-engage/mindengage-omr/internal/omr"
	"github.com/mind-engage/mindengage-omr/internal/profile"
	"github.com/mind-engage/mindengage-omr/internal/storage"
	"github.com/mind-engage/mindengage-omr/internal/templatestore"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("OMR_CONFIG"), "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := newLogger(cfg)
	slog.SetDefault(log)

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.Error("db open failed", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	defer dbh.Close()

	bs, err := storage.NewFSStore(cfg.ScanBasePath)
	if err != nil {
		log.Error("scan store", "path", cfg.ScanBasePath, "err", err)
		os.Exit(1)
	}

	if !profile.Known(cfg.Omr.Profile) {
		log.Warn("unknown alignment profile, using default", "profile", cfg.Omr.Profile, "default", profile.Default)
	}
	deps := api.Deps{
		Templates: templatestore.NewSQLStore(dbh),
		Blobs:     bs,
		Pipeline:  omr.NewTuned(cfg.Omr.Tuning()),
		Profile:   profile.Lookup(cfg.Omr.Profile),
		MaxUpload: int64(cfg.Omr.MaxUploadMB) << 20,
		Log:       log,
	}
	if cfg.AuthHMACSecret != "" {
		deps.Auth = auth.NewAuthService(cfg.AuthHMACSecret)
	} else if cfg.Mode == config.ModeOnline {
		log.Error("OMR_AUTH_HMAC_SECRET is required in online mode")
		os.Exit(1)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, api.RequestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Mount("/", api.Routes(deps))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver,
		"profile", deps.Profile.Name, "auth", deps.Auth != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
