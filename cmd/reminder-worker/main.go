package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/appointment"
	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/config"
	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/db"
	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/notification"
	redisclient "github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config load")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "reminder-worker").Logger()
	if cfg.Env == "dev" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Str("service", "reminder-worker").Logger()
	}

	logger.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Dur("lead", cfg.ReminderLead).
		Msg("reminder-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

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

	var dispatcher appointment.Dispatcher
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
		logger.Info().Msg("connected to RabbitMQ")
	} else {
		dispatcher = notification.NewLogDispatcher(logger)
		logger.Warn().Msg("AMQP_URL not set, reminders go to the log")
	}

	repo := appointment.NewPgRepository(pgPool)
	locker := redisclient.NewRedisDayLocker(rdb, cfg.LockTTL)
	svc := appointment.NewService(repo, locker, dispatcher, appointment.Options{
		RecurrenceHardCap:  cfg.RecurrenceHardCap,
		InternalRecipients: cfg.InternalRecipients,
		Timezone:           cfg.Timezone,
		WorkStartMin:       cfg.WorkStartMin,
		WorkEndMin:         cfg.WorkEndMin,
		SlotStep:           cfg.SlotStep,
	}, logger)

	// Run once at startup
	runOnce(rootCtx, svc, cfg.ReminderLead, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.ReminderLead, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, lead time.Duration, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	count, err := svc.QueueDueReminders(runCtx, start, lead)
	if err != nil {
		logger.Error().Err(err).Msg("reminder run")
		return
	}
	logger.Info().Int("queued", count).Dur("took", time.Since(start)).Msg("reminder run complete")
}
