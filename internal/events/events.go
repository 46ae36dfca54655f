package events

import (
	"context"
	"errors"

	"ms-attractions/internal/models"
)

// Publisher receives ledger events after the mutation that produced them has committed.
type Publisher interface {
	Publish(ctx context.Context, event models.LedgerEvent) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, models.LedgerEvent) error { return nil }

// Fanout hands each event to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event models.LedgerEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory.
type Recorder struct {
	ch chan models.LedgerEvent
}

func NewRecorder(size int) *Recorder {
	return &Recorder{ch: make(chan models.LedgerEvent, size)}
}

func (r *Recorder) Publish(_ context.Context, event models.LedgerEvent) error {
	select {
	case r.ch <- event:
		return nil
	default:
		return errors.New("recorder is full")
	}
}

// Drain returns everything recorded so far.
func (r *Recorder) Drain() []models.LedgerEvent {
	var out []models.LedgerEvent
	for {
		select {
		case e := <-r.ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
