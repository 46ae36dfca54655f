package sse

import (
	"context"
	"sync"

	"ms-attractions/internal/models"
)

// Availability is pushed to stream clients after every committed ticket day change.
type Availability struct {
	Type   string               `json:"type"`
	Closed bool                 `json:"closed"`
	Ticket models.TicketDayView `json:"ticket"`
}

// AvailabilityEmitter fans ticket day changes out to clients subscribed per attraction.
type AvailabilityEmitter struct {
	clients map[string][]chan Availability
	mu      sync.RWMutex
	buffer  int
	closed  bool
}

func NewAvailabilityEmitter() *AvailabilityEmitter {
	return &AvailabilityEmitter{
		clients: make(map[string][]chan Availability),
		buffer:  16,
	}
}

// Subscribe registers a client for one attraction. The channel is closed once ctx is done.
func (e *AvailabilityEmitter) Subscribe(ctx context.Context, attractionID string) <-chan Availability {
	clientChan := make(chan Availability, e.buffer)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		close(clientChan)
		return clientChan
	}
	e.clients[attractionID] = append(e.clients[attractionID], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(attractionID, clientChan)
	}()

	return clientChan
}

// Publish implements events.Publisher. Only ticket day changes are streamed.
func (e *AvailabilityEmitter) Publish(_ context.Context, event models.LedgerEvent) error {
	if event.TicketDay == nil {
		return nil
	}

	msg := Availability{
		Type:   event.Type,
		Closed: event.Type == models.EventTicketDayClosed,
		Ticket: event.TicketDay.View(),
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, clientChan := range e.clients[event.AttractionID] {
		// Slow clients miss updates rather than stall the ledger.
		select {
		case clientChan <- msg:
		default:
		}
	}
	return nil
}

func (e *AvailabilityEmitter) remove(attractionID string, clientChan chan Availability) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[attractionID]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[attractionID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[attractionID]) == 0 {
		delete(e.clients, attractionID)
	}
}

// Close ends every subscription and refuses new ones. Streams reading from
// a closed channel finish on their own.
func (e *AvailabilityEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for attractionID, clients := range e.clients {
		for _, ch := range clients {
			close(ch)
		}
		delete(e.clients, attractionID)
	}
}

// ClientCount returns the number of clients subscribed to an attraction.
func (e *AvailabilityEmitter) ClientCount(attractionID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[attractionID])
}
