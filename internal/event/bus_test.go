package event

import (
	"context"
	"testing"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBusFanOut(t *testing.T) {
	bus := NewBus()

	var first, second []string
	bus.Subscribe(func(_ context.Context, e Event) {
		first = append(first, e.Type())
	})
	bus.Subscribe(func(_ context.Context, e Event) {
		second = append(second, e.Type())
	})

	bus.Publish(context.Background(), RequestCreated{RequestID: uuid.New()})
	bus.Publish(context.Background(), ReorderPointAlert{EntityID: uuid.New()})

	want := []string{model.EventTypeRequestCreated, model.EventTypeReorderAlert}
	assert.Equal(t, want, first)
	assert.Equal(t, want, second)
}

func TestBusPanickingHandlerIsIsolated(t *testing.T) {
	bus := NewBus()

	bus.Subscribe(func(context.Context, Event) {
		panic("handler bug")
	})

	var got []string
	bus.Subscribe(func(_ context.Context, e Event) {
		got = append(got, e.Type())
	})

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), RequestUpdate{Status: model.RequestStatusApproved})
	})
	assert.Equal(t, []string{model.EventTypeRequestUpdate}, got)
}

func TestBusNoSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), ApprovalNeeded{NextLevel: 2})
	})
}
