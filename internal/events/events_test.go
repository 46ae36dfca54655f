package events

import (
	"context"
	"errors"
	"testing"

	"ms-attractions/internal/models"

	"github.com/stretchr/testify/assert"
)

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, models.LedgerEvent) error { return f.err }

func TestFanoutDeliversToAllAndJoinsErrors(t *testing.T) {
	rec := NewRecorder(4)
	boom := errors.New("broker down")
	fan := Fanout{rec, nil, failingPublisher{err: boom}, Nop{}}

	err := fan.Publish(context.Background(), models.LedgerEvent{Type: models.EventReservationCreated, AttractionID: "a"})

	assert.ErrorIs(t, err, boom)
	got := rec.Drain()
	assert.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Key())
}

func TestRecorderRejectsWhenFull(t *testing.T) {
	rec := NewRecorder(1)
	assert.NoError(t, rec.Publish(context.Background(), models.LedgerEvent{}))
	assert.Error(t, rec.Publish(context.Background(), models.LedgerEvent{}))
	assert.Len(t, rec.Drain(), 1)
	assert.Empty(t, rec.Drain())
}
