package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventparticipation/config"
	_ "eventparticipation/docs"
	"eventparticipation/internal/adapters/metrics"
	"eventparticipation/internal/adapters/ratelimit"
	deliveryhttp "eventparticipation/internal/delivery/http"
	"eventparticipation/internal/delivery/http/controllers"
	"eventparticipation/internal/domain"
	"eventparticipation/internal/repository/memory"
	"eventparticipation/internal/repository/postgres"
	"eventparticipation/internal/services"
)

const (
	rateLimitWindow = time.Minute
	shutdownTimeout = 10 * time.Second
)

// @title Event participation API
// @version 1.0
// @description Event lifecycle and capacity-bounded admission of join requests.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

type stores struct {
	events     domain.EventRepository
	requests   domain.RequestRepository
	users      domain.UserRepository
	categories domain.CategoryRepository
	locker     domain.EventLocker
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, closeStore, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(reg)

	admission := services.NewAdmissionService(st.events, st.requests, st.locker, recorder, logger, cfg.ContextTimeout)
	capacity := services.NewCapacityCounter(st.locker)
	eventService := services.NewEventService(st.events, st.requests, st.users, st.categories,
		admission, capacity, recorder, domain.SystemClock{}, cfg.ContextTimeout)
	requestService := services.NewRequestService(st.events, st.requests, st.users, st.locker,
		recorder, domain.SystemClock{}, cfg.ContextTimeout)

	opts := deliveryhttp.RouterOptions{
		RateLimitWindow: rateLimitWindow,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
	}
	if cfg.MetricsEnabled {
		opts.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	if cfg.RedisURL != "" {
		client, err := ratelimit.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		opts.Limiter = ratelimit.NewLimiter(client, cfg.RateLimitPerMinute, rateLimitWindow)
		logger.Info("rate limiter enabled", "per_minute", cfg.RateLimitPerMinute)
	}

	router := deliveryhttp.NewRouter(logger,
		controllers.NewEventController(logger, eventService),
		controllers.NewRequestController(logger, requestService),
		controllers.NewAdminController(logger, eventService),
		opts,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Environment, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (stores, func(), error) {
	if cfg.Storage == config.StorageMemory {
		store := memory.NewStore()
		seedMemory(store, logger)
		return stores{
			events:     store.Events(),
			requests:   store.Requests(),
			users:      store.Users(),
			categories: store.Categories(),
			locker:     store.Locker(),
		}, func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return stores{}, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return stores{}, nil, err
	}
	return stores{
		events:     postgres.NewEventRepository(db),
		requests:   postgres.NewRequestRepository(db),
		users:      postgres.NewUserRepository(db),
		categories: postgres.NewCategoryRepository(db),
		locker:     postgres.NewEventLocker(db),
	}, closeDB(db, logger), nil
}

func closeDB(db *sql.DB, logger *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close postgres connection", "err", err)
		}
	}
}

// seedMemory adds an organizer, a participant and a category so the in-memory server is
// usable without a users service.
func seedMemory(store *memory.Store, logger *slog.Logger) {
	organizer := store.AddUser(domain.User{Name: "Demo organizer", Email: "organizer@example.com"})
	participant := store.AddUser(domain.User{Name: "Demo participant", Email: "participant@example.com"})
	category := store.AddCategory(domain.Category{Name: "Meetups"})
	logger.Info("seeded memory storage",
		"organizer_id", organizer.ID,
		"participant_id", participant.ID,
		"category_id", category.ID)
}
