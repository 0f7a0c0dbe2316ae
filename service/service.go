package service

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"andiamo/db"
	"andiamo/fulfillment"
	"andiamo/http"
	"andiamo/log"
	"andiamo/pubsub"
	"andiamo/pubsub/bus"
	"andiamo/pubsub/event"
	"andiamo/pubsub/outbox"
)

func init() {
	log.Init(logrus.InfoLevel)
}

type Service struct {
	db              *sqlx.DB
	watermillRouter *message.Router
	httpServer      *http.Server
}

func New(
	addr string,
	dbConn *sqlx.DB,
	redisClient *redis.Client,
	qrRenderer fulfillment.QRRenderer,
	objectStorage fulfillment.ObjectStorage,
	mailer fulfillment.Mailer,
) Service {
	ordersRepo := db.NewOrdersPostgresRepository(dbConn)
	ticketsRepo := db.NewTicketsPostgresRepository(dbConn)
	deliveryLogRepo := db.NewDeliveryLogPostgresRepository(dbConn)
	registry := db.NewRedisRegistry(redisClient)

	orchestrator := fulfillment.NewOrchestrator(
		ordersRepo,
		ticketsRepo,
		deliveryLogRepo,
		registry,
		qrRenderer,
		objectStorage,
		mailer,
	)

	watermillLogger := log.NewWatermill(logrus.NewEntry(logrus.StandardLogger()))

	redisPublisher := pubsub.NewRedisPublisher(redisClient, watermillLogger)

	eventBus, err := bus.NewEventBus(redisPublisher)
	if err != nil {
		panic(fmt.Errorf("failed to create event bus: %w", err))
	}

	eventsHandler := event.NewHandler(eventBus, orchestrator)

	postgresSubscriber := outbox.NewPostgresSubscriber(dbConn.DB, watermillLogger)
	eventProcessorConfig := event.NewProcessorConfig(redisClient, watermillLogger)

	watermillRouter, err := pubsub.NewWatermillRouter(
		postgresSubscriber,
		redisPublisher,
		eventProcessorConfig,
		eventsHandler,
		watermillLogger,
	)
	if err != nil {
		panic(fmt.Errorf("failed to create watermill router: %w", err))
	}

	httpServer := http.NewServer(
		addr,
		orchestrator,
		ticketsRepo,
		deliveryLogRepo,
	)

	return Service{
		db:              dbConn,
		watermillRouter: watermillRouter,
		httpServer:      httpServer,
	}
}

func (s Service) Run(ctx context.Context) error {
	if err := db.InitializeDatabaseSchema(s.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		// the HTTP server starts after the router so the service is not
		// reported healthy before handlers are subscribed
		<-s.watermillRouter.Running()

		return s.httpServer.Run(ctx)
	})

	return g.Wait()
}
