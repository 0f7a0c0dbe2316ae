package event

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"andiamo/fulfillment"
)

type Orchestrator interface {
	GenerateTicketsForOrder(ctx context.Context, orderID string) (fulfillment.Result, error)
}

type Handler struct {
	eventBus     *cqrs.EventBus
	orchestrator Orchestrator
}

func NewHandler(eventBus *cqrs.EventBus, orchestrator Orchestrator) Handler {
	if eventBus == nil {
		panic("missing eventBus")
	}
	if orchestrator == nil {
		panic("missing orchestrator")
	}

	return Handler{
		eventBus:     eventBus,
		orchestrator: orchestrator,
	}
}
