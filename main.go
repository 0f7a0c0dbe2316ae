package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"andiamo/gateway"
	"andiamo/log"
	"andiamo/service"
	"andiamo/tracing"
)

type config struct {
	HTTPAddr    string `long:"http-addr" env:"HTTP_ADDR" default:":8080" description:"HTTP listen address"`
	PostgresURL string `long:"postgres-url" env:"POSTGRES_URL" required:"true" description:"Postgres connection string"`
	RedisAddr   string `long:"redis-addr" env:"REDIS_ADDR" required:"true" description:"Redis address"`

	QRAPIURL         string `long:"qr-api-url" env:"QR_API_URL" required:"true" description:"QR rendering API base URL"`
	StorageURL       string `long:"storage-url" env:"STORAGE_URL" required:"true" description:"Object storage upload base URL"`
	StoragePublicURL string `long:"storage-public-url" env:"STORAGE_PUBLIC_URL" required:"true" description:"Object storage public base URL"`

	MailerURL   string `long:"mailer-url" env:"MAILER_URL" required:"true" description:"Transactional mailer base URL"`
	MailerToken string `long:"mailer-token" env:"MAILER_TOKEN" required:"true" description:"Transactional mailer API token"`
	MailFrom    string `long:"mail-from" env:"MAIL_FROM" default:"tickets@andiamo.events" description:"Confirmation email sender address"`

	JaegerEndpoint string `long:"jaeger-endpoint" env:"JAEGER_ENDPOINT" description:"Jaeger collector endpoint (tracing disabled when empty)"`
}

func main() {
	log.Init(logrus.InfoLevel)

	var cfg config
	if _, err := flags.Parse(&cfg); err != nil {
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp := tracing.ConfigureTraceProvider(cfg.JaegerEndpoint)
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logrus.WithError(err).Error("failed to shut down trace provider")
			}
		}()
	}

	sqlDB, err := otelsql.Open("postgres", cfg.PostgresURL,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		panic(err)
	}
	dbConn := sqlx.NewDb(sqlDB, "postgres")
	defer dbConn.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer redisClient.Close()

	svc := service.New(
		cfg.HTTPAddr,
		dbConn,
		redisClient,
		gateway.NewQRClient(cfg.QRAPIURL),
		gateway.NewStorageClient(cfg.StorageURL, cfg.StoragePublicURL),
		gateway.NewMailerClient(cfg.MailerURL, cfg.MailerToken, cfg.MailFrom),
	)

	if err := svc.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("service stopped with error")
	}
}
