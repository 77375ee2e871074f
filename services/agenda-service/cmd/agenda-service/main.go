package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/espacoca/agenda/libs/config"
	"github.com/espacoca/agenda/libs/db"
	"github.com/espacoca/agenda/libs/httpx"
	"github.com/espacoca/agenda/libs/kafkax"
	otelx "github.com/espacoca/agenda/libs/otel"
	"github.com/espacoca/agenda/libs/runtime"
	"github.com/espacoca/agenda/services/agenda-service/internal/availability"
	"github.com/espacoca/agenda/services/agenda-service/internal/booking"
	"github.com/espacoca/agenda/services/agenda-service/internal/calendar"
	"github.com/espacoca/agenda/services/agenda-service/internal/handlers"
	"github.com/espacoca/agenda/services/agenda-service/internal/outbox"
	"github.com/espacoca/agenda/services/agenda-service/internal/reminder"
	"github.com/espacoca/agenda/services/agenda-service/internal/storage"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "agenda-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	store := storage.New(pool, outboxRepo)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	reminderWorker := reminder.NewWorker(store, logger, reminder.WorkerConfig{
		Interval: config.Minutes("REMINDER_SWEEP_INTERVAL_MINUTES", time.Hour),
		LeadFrom: config.Minutes("REMINDER_LEAD_FROM_MINUTES", 24*time.Hour),
		LeadTo:   config.Minutes("REMINDER_LEAD_TO_MINUTES", 28*time.Hour),
	})
	go reminderWorker.Run(ctx)

	cal := calendar.FromEnv()
	finder := availability.NewFinder(cal, store)
	mgr := booking.NewManager(store, cal)

	toolsHandler := handlers.NewToolsHandler(mgr, finder, cal, logger)
	adminAuth := handlers.NewAdminAuth(
		config.String("ADMIN_PASSWORD_HASH", ""),
		config.String("JWT_SECRET", ""),
		logger,
	)
	adminHandler := handlers.NewAdminHandler(store, mgr, cal, logger)

	toolsMux := http.NewServeMux()
	toolsMux.HandleFunc("/api/v1/tools", toolsHandler.Definitions)
	toolsMux.HandleFunc("/api/v1/tools/check_calendar", toolsHandler.CheckCalendar)
	toolsMux.HandleFunc("/api/v1/tools/book_appointment", toolsHandler.BookAppointment)
	toolsMux.HandleFunc("/api/v1/tools/reschedule_appointment", toolsHandler.RescheduleAppointment)
	toolsMux.HandleFunc("/api/v1/tools/list_my_appointments", toolsHandler.ListMyAppointments)
	toolsMux.HandleFunc("/api/v1/tools/cancel_appointment", toolsHandler.CancelAppointment)

	limitPerWindow := config.Int("RATE_LIMIT", 60)
	limitWindow := config.Minutes("RATE_LIMIT_WINDOW_MINUTES", time.Minute)
	var rateLimitMW httpx.Middleware
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerWindow, limitWindow, service)
		rateLimitMW = rl.Middleware(logger, isTruthy(config.String("RATE_LIMIT_FAIL_OPEN", "true")))
		logger.Info("rate limiting enabled (redis)", "limit", limitPerWindow, "redis_addr", redisAddr)
	} else {
		rl := httpx.NewRateLimiter(limitPerWindow, limitWindow)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "limit", limitPerWindow)
	}

	tools := httpx.Chain(toolsMux, rateLimitMW)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.Handle("/api/v1/tools", tools)
	mux.Handle("/api/v1/tools/", tools)
	mux.HandleFunc("/api/v1/admin/login", adminAuth.Login)
	mux.HandleFunc("/api/v1/admin/appointments", adminAuth.RequireAdmin(adminHandler.Appointments))
	mux.HandleFunc("/api/v1/admin/blocks", adminAuth.RequireAdmin(adminHandler.Blocks))
	mux.HandleFunc("/api/v1/admin/overrides", adminAuth.RequireAdmin(adminHandler.Overrides))
	mux.HandleFunc("/api/v1/admin/customers", adminAuth.RequireAdmin(adminHandler.Customers))
	mux.HandleFunc("/api/v1/admin/services", adminAuth.RequireAdmin(adminHandler.Services))

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id,X-Customer-Phone")),
			AllowCredentials: isTruthy(config.String("CORS_ALLOW_CREDENTIALS", "false")),
			MaxAge:           10 * time.Minute,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(time.Duration(config.Int("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "agenda")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func isTruthy(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
