package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/api"
	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/appointment"
	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/config"
	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/db"
	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/notification"
	redisclient "github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/redis"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config load")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api-server").Logger()
	if cfg.Env == "dev" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Str("service", "api-server").Logger()
	}

	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	if err := db.ApplySchema(rootCtx, pgPool); err != nil {
		logger.Fatal().Err(err).Msg("apply schema")
	}

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	// Event dispatch: the broker when configured, the log otherwise.
	var dispatcher appointment.Dispatcher
	var broker api.BrokerHealth
	if cfg.AMQPURL != "" {
		amqpDisp, err := notification.NewAMQPDispatcher(cfg.AMQPURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("rabbitmq connection")
		}
		defer func() {
			if err := amqpDisp.Close(); err != nil {
				logger.Error().Err(err).Msg("closing rabbitmq")
			}
		}()
		dispatcher = amqpDisp
		broker = amqpDisp
		logger.Info().Msg("connected to RabbitMQ")
	} else {
		dispatcher = notification.NewLogDispatcher(logger)
		logger.Warn().Msg("AMQP_URL not set, notifications go to the log")
	}

	repo := appointment.NewPgRepository(pgPool)
	locker := redisclient.NewRedisDayLocker(rdb, cfg.LockTTL)
	svc := appointment.NewService(repo, locker, dispatcher, appointment.Options{
		AutoConfirm:        cfg.AutoConfirm,
		RecurrenceHardCap:  cfg.RecurrenceHardCap,
		InternalRecipients: cfg.InternalRecipients,
		Timezone:           cfg.Timezone,
		WorkStartMin:       cfg.WorkStartMin,
		WorkEndMin:         cfg.WorkEndMin,
		SlotStep:           cfg.SlotStep,
	}, logger)

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		PgPool:   pgPool,
		Redis:    rdb,
		Broker:   broker,
		Timezone: cfg.Timezone,
		Env:      cfg.Env,
		Version:  version,
		Log:      logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
