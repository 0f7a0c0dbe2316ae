package fulfillment_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"andiamo/entity"
	"andiamo/fulfillment"
	"andiamo/gateway"
)

type fakeOrdersRepo struct {
	orders map[string]entity.Order
}

func (f *fakeOrdersRepo) GetWithLineItems(_ context.Context, orderID string) (entity.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return entity.Order{}, entity.ErrOrderNotFound
	}
	return order, nil
}

type fakeTicketsRepo struct {
	lock    sync.Mutex
	tickets map[string][]entity.Ticket
	locked  map[string]bool

	createErr error
	// hideExistingOnce makes the first FindByOrderID come back empty, as if a
	// concurrent winner's rows were not yet visible to this run.
	hideExistingOnce bool
}

func newFakeTicketsRepo() *fakeTicketsRepo {
	return &fakeTicketsRepo{
		tickets: map[string][]entity.Ticket{},
		locked:  map[string]bool{},
	}
}

func (f *fakeTicketsRepo) CreateForOrder(_ context.Context, orderID string, tickets []entity.Ticket) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	if f.locked[orderID] {
		return entity.ErrFulfillmentConflict
	}

	f.locked[orderID] = true
	f.tickets[orderID] = append([]entity.Ticket(nil), tickets...)
	return nil
}

func (f *fakeTicketsRepo) FindByOrderID(_ context.Context, orderID string) ([]entity.Ticket, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.hideExistingOnce {
		f.hideExistingOnce = false
		return nil, nil
	}

	return append([]entity.Ticket(nil), f.tickets[orderID]...), nil
}

func (f *fakeTicketsRepo) MarkGenerated(_ context.Context, ticketID string, qrCodeURL string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.mutate(ticketID, func(t *entity.Ticket) {
		t.Status = entity.TicketStatusGenerated
		t.QRCodeURL.String = qrCodeURL
		t.QRCodeURL.Valid = true
	})
	return nil
}

func (f *fakeTicketsRepo) MarkFailed(_ context.Context, ticketID string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.mutate(ticketID, func(t *entity.Ticket) {
		t.Status = entity.TicketStatusFailed
	})
	return nil
}

func (f *fakeTicketsRepo) MarkRunOutcome(_ context.Context, ticketIDs []string, emailSent bool) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, id := range ticketIDs {
		f.mutate(id, func(t *entity.Ticket) {
			if emailSent {
				t.Status = entity.TicketStatusDelivered
				t.EmailDeliveryStatus.String = string(entity.EmailDeliverySent)
			} else {
				t.Status = entity.TicketStatusFailed
				t.EmailDeliveryStatus.String = string(entity.EmailDeliveryFailed)
			}
			t.EmailDeliveryStatus.Valid = true
		})
	}
	return nil
}

func (f *fakeTicketsRepo) mutate(ticketID string, fn func(*entity.Ticket)) {
	for orderID := range f.tickets {
		for i := range f.tickets[orderID] {
			if f.tickets[orderID][i].TicketID == ticketID {
				fn(&f.tickets[orderID][i])
			}
		}
	}
}

type fakeDeliveryLog struct {
	lock    sync.Mutex
	entries []entity.DeliveryLogEntry
}

func (f *fakeDeliveryLog) Append(_ context.Context, entry entity.DeliveryLogEntry) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.entries = append(f.entries, entry)
	return nil
}

type fakeRegistry struct {
	lock      sync.Mutex
	entries   map[string]entity.RegistryEntry
	insertErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{entries: map[string]entity.RegistryEntry{}}
}

func (f *fakeRegistry) Insert(_ context.Context, entry entity.RegistryEntry) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.insertErr != nil {
		return f.insertErr
	}
	f.entries[entry.Token] = entry
	return nil
}

type testEnv struct {
	orders      *fakeOrdersRepo
	tickets     *fakeTicketsRepo
	deliveryLog *fakeDeliveryLog
	registry    *fakeRegistry
	qr          *gateway.QRMock
	storage     *gateway.StorageMock
	mailer      *gateway.MailerMock

	orchestrator *fulfillment.Orchestrator
}

func newTestEnv(orders ...entity.Order) *testEnv {
	env := &testEnv{
		orders:      &fakeOrdersRepo{orders: map[string]entity.Order{}},
		tickets:     newFakeTicketsRepo(),
		deliveryLog: &fakeDeliveryLog{},
		registry:    newFakeRegistry(),
		qr:          &gateway.QRMock{},
		storage:     &gateway.StorageMock{},
		mailer:      &gateway.MailerMock{},
	}
	for _, order := range orders {
		env.orders.orders[order.OrderID] = order
	}

	env.orchestrator = fulfillment.NewOrchestrator(
		env.orders,
		env.tickets,
		env.deliveryLog,
		env.registry,
		env.qr,
		env.storage,
		env.mailer,
	)

	return env
}

func fulfillableOrder(quantities ...int) entity.Order {
	order := entity.Order{
		OrderID:       uuid.NewString(),
		CustomerName:  "Mouna Ben Salah",
		CustomerEmail: "mouna@test.io",
		CustomerPhone: "+21655123456",
		TotalAmount:   "120.00",
		TotalCurrency: "TND",
		Channel:       entity.OrderChannelOnline,
		Status:        entity.OrderStatusPaid,
		EventName:     "Andiamo Summer Opening",
		EventDate:     "2024-07-12",
		EventLocation: "La Marsa",
	}

	for i, quantity := range quantities {
		order.LineItems = append(order.LineItems, entity.OrderLineItem{
			LineItemID: uuid.NewString(),
			OrderID:    order.OrderID,
			PassType:   fmt.Sprintf("Pass %d", i+1),
			Quantity:   quantity,
			UnitAmount: "60.00",
		})
	}

	return order
}

func TestGenerateTicketsForOrder_success(t *testing.T) {
	order := fulfillableOrder(2)
	env := newTestEnv(order)

	result, err := env.orchestrator.GenerateTicketsForOrder(context.Background(), order.OrderID)
	require.NoError(t, err)

	assert.True(t, result.Success())
	assert.True(t, result.EmailSent)
	require.Len(t, result.Tickets, 2)

	for _, ticket := range result.Tickets {
		assert.Equal(t, entity.TicketStatusDelivered, ticket.Status)
		assert.NotEmpty(t, ticket.Token)
		assert.True(t, ticket.QRCodeURL.Valid)
		assert.Equal(t, string(entity.EmailDeliverySent), ticket.EmailDeliveryStatus.String)
	}

	tokens := lo.Map(result.Tickets, func(t entity.Ticket, _ int) string { return t.Token })
	assert.Len(t, lo.Uniq(tokens), 2, "tokens must be unique")

	require.Len(t, env.mailer.SentMails, 1)
	assert.Equal(t, order.CustomerEmail, env.mailer.SentMails[0].To)
	for _, ticket := range result.Tickets {
		assert.Contains(t, env.mailer.SentMails[0].HTML, ticket.QRCodeURL.String)
	}

	require.Len(t, env.deliveryLog.entries, 1)
	assert.Equal(t, entity.DeliveryStatusSent, env.deliveryLog.entries[0].Status)

	assert.Len(t, env.registry.entries, 2)
	for _, entry := range env.registry.entries {
		assert.Equal(t, order.OrderID, entry.OrderID)
		assert.Equal(t, order.EventName, entry.EventName)
	}

	stored, _ := env.tickets.FindByOrderID(context.Background(), order.OrderID)
	assert.Len(t, stored, 2)
}

func TestGenerateTicketsForOrder_quantityInvariant(t *testing.T) {
	order := fulfillableOrder(2, 3, 1)
	env := newTestEnv(order)

	result, err := env.orchestrator.GenerateTicketsForOrder(context.Background(), order.OrderID)
	require.NoError(t, err)

	require.Len(t, result.Tickets, 6)

	tokens := lo.Map(result.Tickets, func(t entity.Ticket, _ int) string { return t.Token })
	assert.Len(t, lo.Uniq(tokens), 6)

	perLineItem := lo.CountValuesBy(result.Tickets, func(t entity.Ticket) string { return t.LineItemID })
	assert.Equal(t, 2, perLineItem[order.LineItems[0].LineItemID])
	assert.Equal(t, 3, perLineItem[order.LineItems[1].LineItemID])
	assert.Equal(t, 1, perLineItem[order.LineItems[2].LineItemID])
}

func TestGenerateTicketsForOrder_orderNotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.orchestrator.GenerateTicketsForOrder(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, entity.ErrOrderNotFound)
}

func TestGenerateTicketsForOrder_notFulfillable(t *testing.T) {
	order := fulfillableOrder(1)
	order.Status = entity.OrderStatusPending
	env := newTestEnv(order)

	_, err := env.orchestrator.GenerateTicketsForOrder(context.Background(), order.OrderID)
	assert.ErrorIs(t, err, entity.ErrOrderNotFulfillable)

	stored, _ := env.tickets.FindByOrderID(context.Background(), order.OrderID)
	assert.Empty(t, stored)
}

func TestGenerateTicketsForOrder_noLineItems(t *testing.T) {
	order := fulfillableOrder()
	env := newTestEnv(order)

	_, err := env.orchestrator.GenerateTicketsForOrder(context.Background(), order.OrderID)
	assert.ErrorIs(t, err, entity.ErrNoLineItems)
}

func TestGenerateTicketsForOrder_missingContact(t *testing.T) {
	order := fulfillableOrder(2)
	order.CustomerEmail = ""
	env := newTestEnv(order)

	_, err := env.orchestrator.GenerateTicketsForOrder(context.Background(), order.OrderID)
	assert.ErrorIs(t, err, entity.ErrMissingContact)

	stored, _ := env.tickets.FindByOrderID(context.Background(), order.OrderID)
	assert.Empty(t, stored, "no tickets may be created for an order without contact")
	assert.Empty(t, env.deliveryLog.entries, "no delivery log entry without a send attempt")
	assert.Empty(t, env.mailer.SentMails)
}

func TestGenerateTicketsForOrder_idempotent(t *testing.T) {
	order := fulfillableOrder(3)
	env := newTestEnv(order)

	first, err := env.orchestrator.GenerateTicketsForOrder(context.Background(), order.OrderID)
	require.NoError(t, err)
	require.Len(t, first.Tickets, 3)

	second, err := env.orchestrator.GenerateTicketsForOrder(context.Background(), order.OrderID)
	require.NoError(t, err)

	assert.True(t, second.Success())
	assert.False(t, second.EmailSent, "no new send may be attempted")
	require.Len(t, second.Tickets, 3)

	firstIDs := lo.Map(first.Tickets, func(t entity.Ticket, _ int) string { return t.TicketID })
	secondIDs := lo.Map(second.Tickets, func(t entity.Ticket, _ int) string { return t.TicketID })
	assert.ElementsMatch(t, firstIDs, secondIDs)

	assert.Len(t, env.mailer.SentMails, 1, "only the first run sends")
	assert.Len(t, env.deliveryLog.entries, 1, "only the first run logs")
}

func TestGenerateTicketsForOrder_concurrentConflict(t *testing.T) {
	order := fulfillableOrder(2)
	env := newTestEnv(order)

	// Simulate the loser of the lock race: the winner's tickets exist but the
	// idempotency read happens before they are visible, so this run proceeds
	// to insert and hits the lock conflict.
	winner := []entity.Ticket{
		{TicketID: uuid.NewString(), OrderID: order.OrderID, Token: entity.NewSecureToken(), Status: entity.TicketStatusDelivered},
		{TicketID: uuid.NewString(), OrderID: order.OrderID, Token: entity.NewSecureToken(), Status: entity.TicketStatusDelivered},
	}
	env.tickets.locked[order.OrderID] = true
	env.tickets.tickets[order.OrderID] = winner
	env.tickets.hideExistingOnce = true

	result, err := env.orchestrator.GenerateTicketsForOrder(context.Background(), order.OrderID)
	require.NoError(t, err)

	// The loser converges on the winner's batch without a second insert,
	// email or QR generation.
	winnerIDs := lo.Map(winner, func(t entity.Ticket, _ int) string { return t.TicketID })
	resultIDs := lo.Map(result.Tickets, func(t entity.Ticket, _ int) string { return t.TicketID })
	assert.ElementsMatch(t, winnerIDs, resultIDs)
	assert.False(t, result.EmailSent)
	assert.Empty(t, env.mailer.SentMails)
	assert.Empty(t, env.qr.RenderedTokens)
}

func TestGenerateTicketsForOrder_ticketCreationFailed(t *testing.T) {
	order := fulfillableOrder(2)
	env := newTestEnv(order)
	env.tickets.createErr = errors.New("insert failed")

	_, err := env.orchestrator.GenerateTicketsForOrder(context.Background(), order.OrderID)
	assert.ErrorIs(t, err, entity.ErrTicketCreationFailed)
	assert.Empty(t, env.mailer.SentMails)
	assert.Empty(t, env.deliveryLog.entries)
}

func TestGenerateTicketsForOrder_partialQRFailure(t *testing.T) {
	order := fulfillableOrder(3)
	env := newTestEnv(order)

	var calls atomic.Int64
	env.qr.RenderFunc = func(_ context.Context, token string) ([]byte, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("renderer unavailable")
		}
		return []byte("png-" + token), nil
	}

	result, err := env.orchestrator.GenerateTicketsForOrder(context.Background(), order.OrderID)
	require.NoError(t, err)

	assert.True(t, result.EmailSent)
	require.Len(t, result.Tickets, 3)

	byStatus := lo.CountValuesBy(result.Tickets, func(t entity.Ticket) entity.TicketStatus { return t.Status })
	assert.Equal(t, 2, byStatus[entity.TicketStatusDelivered], "siblings are unaffected")
	assert.Equal(t, 1, byStatus[entity.TicketStatusFailed])

	require.Len(t, env.mailer.SentMails, 1)
	require.Len(t, env.deliveryLog.entries, 1)
	assert.Equal(t, entity.DeliveryStatusSent, env.deliveryLog.entries[0].Status)

	assert.Len(t, env.registry.entries, 2, "failed ticket gets no registry entry")
}

func TestGenerateTicketsForOrder_allQRFail(t *testing.T) {
	order := fulfillableOrder(2)
	env := newTestEnv(order)
	env.qr.RenderFunc = func(context.Context, string) ([]byte, error) {
		return nil, errors.New("renderer down")
	}

	result, err := env.orchestrator.GenerateTicketsForOrder(context.Background(), order.OrderID)
	require.NoError(t, err)

	assert.ErrorIs(t, result.Err, entity.ErrNoTicketsGenerated)
	assert.False(t, result.EmailSent)
	for _, ticket := range result.Tickets {
		assert.Equal(t, entity.TicketStatusFailed, ticket.Status)
	}
	assert.Empty(t, env.mailer.SentMails)
	assert.Empty(t, env.deliveryLog.entries)
	assert.Empty(t, env.registry.entries)
}

func TestGenerateTicketsForOrder_registryBestEffort(t *testing.T) {
	order := fulfillableOrder(2)
	env := newTestEnv(order)
	env.registry.insertErr = errors.New("registry down")

	result, err := env.orchestrator.GenerateTicketsForOrder(context.Background(), order.OrderID)
	require.NoError(t, err)

	assert.True(t, result.Success(), "registry failures never surface")
	assert.True(t, result.EmailSent)
	for _, ticket := range result.Tickets {
		assert.Equal(t, entity.TicketStatusDelivered, ticket.Status, "registry failures never change ticket status")
	}
}

func TestGenerateTicketsForOrder_emailFailure(t *testing.T) {
	order := fulfillableOrder(2)
	env := newTestEnv(order)
	env.mailer.SendFunc = func(context.Context, string, string, string) error {
		return errors.New("smtp rejected")
	}

	result, err := env.orchestrator.GenerateTicketsForOrder(context.Background(), order.OrderID)
	require.NoError(t, err)

	assert.False(t, result.Success())
	assert.False(t, result.EmailSent)
	require.Error(t, result.Err)

	for _, ticket := range result.Tickets {
		assert.Equal(t, entity.TicketStatusFailed, ticket.Status)
		assert.Equal(t, string(entity.EmailDeliveryFailed), ticket.EmailDeliveryStatus.String)
	}

	require.Len(t, env.deliveryLog.entries, 1)
	assert.Equal(t, entity.DeliveryStatusFailed, env.deliveryLog.entries[0].Status)
	assert.Contains(t, env.deliveryLog.entries[0].ErrorDetail, "smtp rejected")

	// The QR images remain generated and retrievable for a manual resend.
	stored, _ := env.tickets.FindByOrderID(context.Background(), order.OrderID)
	for _, ticket := range stored {
		assert.True(t, ticket.QRCodeURL.Valid)
	}
}

func TestGenerateTicketsForOrder_oneDeliveryLogEntryPerRun(t *testing.T) {
	small := fulfillableOrder(1)
	large := fulfillableOrder(50)
	env := newTestEnv(small, large)

	_, err := env.orchestrator.GenerateTicketsForOrder(context.Background(), small.OrderID)
	require.NoError(t, err)
	_, err = env.orchestrator.GenerateTicketsForOrder(context.Background(), large.OrderID)
	require.NoError(t, err)

	assert.Len(t, env.deliveryLog.entries, 2, "one entry per run, not per ticket")
}
