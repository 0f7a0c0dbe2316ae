package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"andiamo/entity"
	"andiamo/fulfillment"
	"andiamo/log"
)

type Orchestrator interface {
	GenerateTicketsForOrder(ctx context.Context, orderID string) (fulfillment.Result, error)
}

type TicketsRepository interface {
	FindByOrderID(ctx context.Context, orderID string) ([]entity.Ticket, error)
}

type DeliveryLogRepository interface {
	FindByOrderID(ctx context.Context, orderID string) ([]entity.DeliveryLogEntry, error)
}

type Server struct {
	addr         string
	e            *echo.Echo
	orchestrator Orchestrator
	ticketsRepo  TicketsRepository
	deliveryLog  DeliveryLogRepository
}

func NewServer(
	addr string,
	orchestrator Orchestrator,
	ticketsRepo TicketsRepository,
	deliveryLog DeliveryLogRepository,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(otelecho.Middleware("fulfillment"))

	server := &Server{
		addr:         addr,
		e:            e,
		orchestrator: orchestrator,
		ticketsRepo:  ticketsRepo,
		deliveryLog:  deliveryLog,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/orders/:order_id/fulfillment", server.PostOrderFulfillment)
	e.GET("/orders/:order_id/tickets", server.GetOrderTickets)
	e.GET("/orders/:order_id/delivery-log", server.GetOrderDeliveryLog)

	return server
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(ctx)
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
