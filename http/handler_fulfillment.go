package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"andiamo/entity"
)

type fulfillmentResponse struct {
	Success   bool            `json:"success"`
	Tickets   []entity.Ticket `json:"tickets"`
	EmailSent bool            `json:"email_sent"`
	Error     string          `json:"error,omitempty"`
}

// PostOrderFulfillment is the manual administrative trigger. It calls the
// same idempotent entry point as the order status monitor, synchronously.
func (s *Server) PostOrderFulfillment(c echo.Context) error {
	orderID := c.Param("order_id")

	result, err := s.orchestrator.GenerateTicketsForOrder(c.Request().Context(), orderID)
	switch {
	case errors.Is(err, entity.ErrOrderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case errors.Is(err, entity.ErrOrderNotFulfillable):
		return echo.NewHTTPError(http.StatusConflict, "order is not in a fulfillable state")
	case errors.Is(err, entity.ErrMissingContact), errors.Is(err, entity.ErrNoLineItems):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		return err
	}

	response := fulfillmentResponse{
		Success:   result.Success(),
		Tickets:   result.Tickets,
		EmailSent: result.EmailSent,
	}
	if result.Err != nil {
		response.Error = result.Err.Error()
	}

	return c.JSON(http.StatusOK, response)
}

func (s *Server) GetOrderTickets(c echo.Context) error {
	tickets, err := s.ticketsRepo.FindByOrderID(c.Request().Context(), c.Param("order_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tickets)
}

func (s *Server) GetOrderDeliveryLog(c echo.Context) error {
	entries, err := s.deliveryLog.FindByOrderID(c.Request().Context(), c.Param("order_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}
