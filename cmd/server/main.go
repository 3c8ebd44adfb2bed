package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notifyd/internal/bindcode"
	"notifyd/internal/config"
	"notifyd/internal/delivery"
	"notifyd/internal/handler"
	"notifyd/internal/notification/contexts"
	"notifyd/internal/notification/repository"
	"notifyd/internal/notification/scheduler"
	"notifyd/internal/notification/service"
	"notifyd/internal/server"
	"notifyd/internal/telemetry"
	notifyotel "notifyd/internal/telemetry/otel"
	"notifyd/internal/telemetry/producer"
	"notifyd/internal/trust"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	providers, err := notifyotel.NewProviders(ctx, cfg.OTLPEndpoint, "notifyd", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	// Telemetry emitter: Kafka when brokers are configured, otherwise the OTel
	// log pipeline (a no-op without an OTLP endpoint).
	var emitter telemetry.EventEmitter
	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	if kafkaProducer != nil {
		emitter = kafkaProducer
		log.Printf("telemetry: emitting to kafka topic %s", cfg.TelemetryKafkaTopic)
	} else {
		emitter = notifyotel.NewEventEmitter(providers.LoggerProvider)
	}

	var sender delivery.Sender = &delivery.LogSender{}
	if cfg.SMSLocalAPIKey != "" {
		client := delivery.NewSMSLocalClient(cfg.SMSLocalAPIKey, cfg.SMSLocalBaseURL, cfg.SMSLocalSender)
		demoPhone := cfg.SMSLocalDemoPhone
		sender = delivery.NewSMSLocalSender(client, func(string) string { return demoPhone }, sender)
		log.Println("delivery: SMS channels routed through SMS Local")
	}

	repo := repository.NewMemoryRepository()
	esc := scheduler.New(repo, cfg.EscalationDeadline(), emitter)
	svc := service.New(repo, esc, trust.NewMemoryRegistry(), contexts.NewMemoryProvider(),
		bindcode.NewMemoryStore(), sender, emitter, service.Options{
			VerifyNumber:       cfg.BindingVerifyNumber,
			CodeTTL:            cfg.BindingCodeDeadline(),
			CodeReturnToClient: cfg.CodeReturnToClient,
		})

	router := server.New(handler.New(svc), emitter)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		log.Printf("HTTP server listening on %s (escalation deadline %s)", cfg.HTTPAddr, esc.Timeout())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// In-flight async emits get a grace period before the producer closes.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Printf("kafka close: %v", err)
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
