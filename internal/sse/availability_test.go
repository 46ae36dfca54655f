package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-attractions/internal/models"
)

func ticketEvent(typ, attractionID string, reserved int) models.LedgerEvent {
	return models.LedgerEvent{
		Type:         typ,
		AttractionID: attractionID,
		TicketDay:    &models.TicketDay{AttractionID: attractionID, Date: "2030-06-01", TotalCapacity: 5, ReservedCount: reserved},
	}
}

func TestEmitterDeliversPerAttraction(t *testing.T) {
	e := NewAvailabilityEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := e.Subscribe(ctx, "a1")
	b := e.Subscribe(ctx, "a2")
	assert.Equal(t, 1, e.ClientCount("a1"))

	require.NoError(t, e.Publish(ctx, ticketEvent(models.EventReservationCreated, "a1", 1)))
	require.NoError(t, e.Publish(ctx, models.LedgerEvent{Type: models.EventEngagementChanged, AttractionID: "a1"}))

	select {
	case msg := <-a:
		assert.Equal(t, 4, msg.Ticket.RemainingTickets)
		assert.False(t, msg.Closed)
	case <-time.After(time.Second):
		t.Fatal("expected availability update")
	}
	select {
	case <-a:
		t.Fatal("engagement events are not streamed")
	case <-b:
		t.Fatal("other attractions must not receive the update")
	default:
	}
}

func TestEmitterDropsClientOnCancel(t *testing.T) {
	e := NewAvailabilityEmitter()
	ctx, cancel := context.WithCancel(context.Background())

	ch := e.Subscribe(ctx, "a1")
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel should be closed after cancel")
	}
	assert.Equal(t, 0, e.ClientCount("a1"))
	assert.NoError(t, e.Publish(context.Background(), ticketEvent(models.EventTicketDayClosed, "a1", 0)))
}

func TestEmitterCloseEndsSubscriptions(t *testing.T) {
	e := NewAvailabilityEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := e.Subscribe(ctx, "a1")
	e.Close()
	e.Close()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, e.ClientCount("a1"))

	late := e.Subscribe(ctx, "a1")
	_, ok = <-late
	assert.False(t, ok, "subscriptions after close are already closed")
	assert.NoError(t, e.Publish(ctx, ticketEvent(models.EventReservationCreated, "a1", 1)))
}

func TestEmitterSkipsSlowClients(t *testing.T) {
	e := NewAvailabilityEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := e.Subscribe(ctx, "a1")

	for i := 0; i < e.buffer+5; i++ {
		require.NoError(t, e.Publish(ctx, ticketEvent(models.EventReservationCreated, "a1", 1)))
	}
	assert.Len(t, ch, e.buffer)
}

func TestStreamWritesSnapshotAndUpdates(t *testing.T) {
	events := make(chan Availability, 1)
	events <- Availability{Type: models.EventTicketDayClosed, Closed: true, Ticket: models.TicketDayView{AttractionID: "a1", Date: "2030-06-01"}}
	close(events)

	req := httptest.NewRequest(http.MethodGet, "/attractions/a1/tickets/stream", nil)
	rec := httptest.NewRecorder()

	err := Stream(rec, req, []models.TicketDayView{{AttractionID: "a1", Date: "2030-06-01", TotalTickets: 5, RemainingTickets: 5}}, events, time.Minute)
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "event: snapshot\ndata: ["))
	assert.Contains(t, body, "event: availability\n")
	assert.Contains(t, body, `"closed":true`)
}
