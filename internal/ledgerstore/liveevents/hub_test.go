package liveevents

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(id string) Event {
	return Event{Collection: "inventory", Snapshot: map[string]json.RawMessage{id: json.RawMessage(`{}`)}}
}

func TestPublishReachesSubscribers(t *testing.T) {
	hub := NewHub()
	first, err := hub.Subscribe("inventory")
	require.NoError(t, err)
	second, err := hub.Subscribe("inventory")
	require.NoError(t, err)
	other, err := hub.Subscribe("payroll")
	require.NoError(t, err)

	hub.Publish("inventory", event("a"))

	assert.Contains(t, (<-first.Events()).Snapshot, "a")
	assert.Contains(t, (<-second.Events()).Snapshot, "a")
	select {
	case <-other.Events():
		t.Fatalf("payroll subscriber received an inventory event")
	default:
	}
}

func TestSlowSubscriberGetsLatestSnapshot(t *testing.T) {
	hub := NewHub()
	sub, err := hub.Subscribe("inventory")
	require.NoError(t, err)

	hub.Publish("inventory", event("a"))
	hub.Publish("inventory", event("b"))
	hub.Publish("inventory", event("c"))

	got := <-sub.Events()
	assert.Contains(t, got.Snapshot, "c")
	select {
	case <-sub.Events():
		t.Fatalf("expected a single pending event")
	default:
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	hub := NewHub()
	sub, err := hub.Subscribe("inventory")
	require.NoError(t, err)
	assert.True(t, hub.HasSubscribers("inventory"))

	sub.Close()
	sub.Close()

	assert.False(t, hub.HasSubscribers("inventory"))
	_, open := <-sub.Events()
	assert.False(t, open)
	hub.Publish("inventory", event("a"))
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub()
	sub, err := hub.Subscribe("inventory")
	require.NoError(t, err)

	hub.Close()

	_, open := <-sub.Events()
	assert.False(t, open)
	_, err = hub.Subscribe("inventory")
	assert.ErrorIs(t, err, ErrHubClosed)
	sub.Close()
}
