package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_PublishesToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []Event
	d.Subscribe(EventLoginSucceeded, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})
	d.Subscribe(EventLoginFailed, func(_ context.Context, e Event) error {
		t.Fatal("unexpected handler")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventLoginSucceeded, SubjectID: 42}))

	require.Len(t, got, 1)
	assert.Equal(t, int64(42), got[0].SubjectID)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestDispatcher_RunsAllHandlersOnError(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")

	calls := 0
	d.Subscribe(EventTokenRejected, func(context.Context, Event) error {
		calls++
		return boom
	})
	d.Subscribe(EventTokenRejected, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTokenRejected})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestDispatcher_NoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventUserRegistered}))
}
