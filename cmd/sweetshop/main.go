package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	sweetcfg "github.com/Skotchmaster/sweetshop/internal/config"
	"github.com/Skotchmaster/sweetshop/internal/es"
	"github.com/Skotchmaster/sweetshop/internal/events"
	"github.com/Skotchmaster/sweetshop/internal/hash"
	"github.com/Skotchmaster/sweetshop/internal/httpserver"
	"github.com/Skotchmaster/sweetshop/internal/metrics"
	"github.com/Skotchmaster/sweetshop/internal/repo"
	"github.com/Skotchmaster/sweetshop/internal/service"
	"github.com/Skotchmaster/sweetshop/internal/tokens"
	pkgdb "github.com/Skotchmaster/sweetshop/pkg/db"
	"github.com/Skotchmaster/sweetshop/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("notice: .env not loaded: %v", err)
	}

	cfg, err := sweetcfg.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db open: %v", err)
	}
	store := repo.New(db)
	if err := store.Migrate(ctx); err != nil {
		cancel()
		log.Fatalf("db migrate: %v", err)
	}
	cancel()

	hasher, err := hash.New(cfg.PasswordScheme)
	if err != nil {
		log.Fatalf("password hasher: %v", err)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers)
		logger.Info("kafka_enabled", "brokers", cfg.KafkaBrokers)
	}

	m := metrics.NewWithRuntime()

	authSvc := &service.AuthService{
		Repo:      store,
		Hasher:    hasher,
		Tokens:    tokens.NewService(cfg.JWTSecret, cfg.JWTTTL),
		Publisher: publisher,
		Metrics:   m,
	}
	sweetSvc := &service.SweetService{
		Repo:      store,
		Publisher: publisher,
		Metrics:   m,
	}
	if index := openIndex(logger, cfg.ES); index != nil {
		sweetSvc.Index = index
	}

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if created, err := authSvc.Bootstrap(bootCtx, cfg.Admin); err != nil {
		logger.Error("admin_bootstrap_failed", "error", err)
	} else if created {
		logger.Info("admin_bootstrap_created", "email", cfg.Admin.Email)
	}
	bootCancel()

	e := httpserver.NewEcho(logger, m, cfg.CORSOrigins)
	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:   &httpserver.AuthHTTP{Svc: authSvc},
		SweetHandler:  &httpserver.SweetHTTP{Svc: sweetSvc},
		HealthHandler: &httpserver.HealthHTTP{DB: store},
		Guard:         &httpserver.Guard{Auth: authSvc},
		Metrics:       m,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_error", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Warn("kafka_close_error", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("server_stopped")
}

// openIndex returns nil when ES is not configured or unreachable; the service
// then runs without full-text search.
func openIndex(logger *slog.Logger, cfg es.Config) *es.Index {
	if cfg.URL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := es.NewClient(ctx, cfg)
	if err != nil {
		logger.Error("es_unavailable", "url", cfg.URL, "error", err)
		return nil
	}
	index := es.NewIndex(client, cfg.Index)
	if err := index.Ensure(ctx); err != nil {
		logger.Error("es_index_error", "index", index.Name, "error", err)
		return nil
	}
	logger.Info("es_enabled", "url", cfg.URL, "index", index.Name)
	return index
}
