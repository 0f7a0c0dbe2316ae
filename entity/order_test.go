package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"andiamo/entity"
)

func TestOrder_IsFulfillable(t *testing.T) {
	testCases := []struct {
		channel     entity.OrderChannel
		status      entity.OrderStatus
		fulfillable bool
	}{
		{entity.OrderChannelCashOnDelivery, entity.OrderStatusCompleted, true},
		{entity.OrderChannelCashOnDelivery, entity.OrderStatusPending, false},
		{entity.OrderChannelCashOnDelivery, entity.OrderStatusPaid, false},
		{entity.OrderChannelCashOnDelivery, entity.OrderStatusCanceled, false},
		{entity.OrderChannelOnline, entity.OrderStatusPaid, true},
		{entity.OrderChannelOnline, entity.OrderStatusPending, false},
		{entity.OrderChannelOnline, entity.OrderStatusCompleted, false},
		{entity.OrderChannelOnline, entity.OrderStatusCanceled, false},
		{entity.OrderChannel("unknown"), entity.OrderStatusPaid, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.channel)+"_"+string(tc.status), func(t *testing.T) {
			order := entity.Order{Channel: tc.channel, Status: tc.status}
			assert.Equal(t, tc.fulfillable, order.IsFulfillable())
		})
	}
}

func TestOrder_TicketCount(t *testing.T) {
	order := entity.Order{
		LineItems: []entity.OrderLineItem{
			{Quantity: 2},
			{Quantity: 3},
			{Quantity: 1},
		},
	}
	assert.Equal(t, 6, order.TicketCount())

	assert.Zero(t, entity.Order{}.TicketCount())
}
