package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/espacoca/agenda/libs/config"
	"github.com/espacoca/agenda/libs/db"
	"github.com/espacoca/agenda/libs/httpx"
	"github.com/espacoca/agenda/libs/kafkax"
	otelx "github.com/espacoca/agenda/libs/otel"
	"github.com/espacoca/agenda/libs/runtime"
	"github.com/espacoca/agenda/services/notify-service/internal/consumer"
	"github.com/espacoca/agenda/services/notify-service/internal/inbox"
	"github.com/espacoca/agenda/services/notify-service/internal/message"
	"github.com/espacoca/agenda/services/notify-service/internal/storage"
	"github.com/espacoca/agenda/services/notify-service/internal/whatsapp"
)

type reminderPayload struct {
	AppointmentID string   `json:"appointment_id"`
	CustomerPhone string   `json:"customer_phone"`
	CustomerName  string   `json:"customer_name"`
	ServiceIDs    []string `json:"service_ids"`
	StartsAt      string   `json:"starts_at"`
}

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "notify-service")
	port, err := config.Port("PORT", "8081")
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

	inboxRepo := inbox.NewRepository(pool)
	notificationsRepo := storage.NewRepository(pool)

	var sender whatsapp.Sender
	switch strings.ToLower(config.String("WHATSAPP_PROVIDER", "noop")) {
	case "webhook":
		sender = whatsapp.NewWebhookSender(
			config.String("WHATSAPP_WEBHOOK_URL", ""),
			config.String("WHATSAPP_CLIENT_TOKEN", ""),
		)
	default:
		sender = whatsapp.NewNoopSender()
	}

	displayLoc := time.FixedZone("-03", config.Int("BUSINESS_UTC_OFFSET_HOURS", -3)*60*60)

	consumerCfg := consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "notify-service"),
		Topic:   config.String("KAFKA_CONSUME_TOPIC", "agenda.reminder.due.v1"),
	}
	eventConsumer := consumer.New(logger, inboxRepo, consumerCfg, func(ctx context.Context, msg kafka.Message) error {
		var payload reminderPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid reminder payload", "err", err)
			return nil
		}
		if payload.AppointmentID == "" || payload.CustomerPhone == "" || payload.StartsAt == "" {
			logger.Error("missing reminder fields", "appointment_id", payload.AppointmentID)
			return nil
		}
		startsAt, err := time.Parse(time.RFC3339, payload.StartsAt)
		if err != nil {
			logger.Error("invalid starts_at", "err", err)
			return nil
		}

		body := message.Reminder(payload.CustomerName, payload.ServiceIDs, startsAt.In(displayLoc))

		status := "sent"
		sendErr := ""
		if err := sender.Send(ctx, payload.CustomerPhone, body); err != nil {
			status = "failed"
			sendErr = err.Error()
			logger.Error("whatsapp send failed", "err", err, "phone", payload.CustomerPhone)
		}

		if err := notificationsRepo.Insert(ctx, storage.Notification{
			AppointmentID: payload.AppointmentID,
			Recipient:     payload.CustomerPhone,
			Message:       body,
			Status:        status,
			Error:         sendErr,
		}); err != nil {
			logger.Error("failed to persist notification", "err", err)
			return err
		}

		logger.Info("reminder processed",
			"appointment_id", payload.AppointmentID,
			"provider", sender.ProviderID(),
			"status", status,
		)
		return nil
	})
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notify")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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
