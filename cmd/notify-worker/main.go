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
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config load")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "notify-worker").Logger()
	if cfg.Env == "dev" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Str("service", "notify-worker").Logger()
	}

	if cfg.AMQPURL == "" {
		logger.Fatal().Msg("AMQP_URL is required, the notify worker has nothing to consume without it")
	}

	logger.Info().Str("env", cfg.Env).Msg("notify-worker starting up")

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

	var mailer notification.Mailer
	if cfg.SMTPHost != "" {
		mailer = notification.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		logger.Info().Str("host", cfg.SMTPHost).Msg("mail goes through SMTP")
	} else {
		mailer = notification.NewConsoleMailer(logger)
		logger.Warn().Msg("SMTP_HOST not set, mail goes to the console")
	}

	store := appointment.NewPgRepository(pgPool)
	consumer := notification.NewConsumer(notification.ConsumerConfig{
		URL:      cfg.AMQPURL,
		Timezone: cfg.Timezone,
	}, mailer, store, logger)

	// The broker may come up after us.
	for {
		if err := consumer.Connect(); err != nil {
			logger.Error().Err(err).Msg("rabbitmq connect, retrying in 2s")
			select {
			case <-rootCtx.Done():
				return
			case <-time.After(2 * time.Second):
			}
			continue
		}
		break
	}
	defer consumer.Close()
	logger.Info().Msg("connected to RabbitMQ")

	if err := consumer.Run(rootCtx); err != nil {
		logger.Error().Err(err).Msg("consumer stopped")
	}
	logger.Info().Msg("shutting down notify-worker")
}
