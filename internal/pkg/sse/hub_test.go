package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesOnlyRecipient(t *testing.T) {
	hub := NewHub(4)
	alice, cancelAlice := hub.Subscribe("alice")
	defer cancelAlice()
	bob, cancelBob := hub.Subscribe("bob")
	defer cancelBob()

	delivered := hub.Publish(Event{UserID: "alice", Name: "notification", Data: "hi"})

	assert.Equal(t, 1, delivered)
	require.Len(t, alice, 1)
	assert.Equal(t, "hi", (<-alice).Data)
	assert.Len(t, bob, 0)
}

func TestHub_FullBufferDrops(t *testing.T) {
	hub := NewHub(1)
	_, cancel := hub.Subscribe("alice")
	defer cancel()

	assert.Equal(t, 1, hub.Publish(Event{UserID: "alice"}))
	assert.Equal(t, 0, hub.Publish(Event{UserID: "alice"}))
	assert.Equal(t, int64(1), hub.Dropped())
}

func TestHub_CancelIsIdempotent(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe("alice")
	assert.Equal(t, 1, hub.Connections("alice"))

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Connections("alice"))
	assert.Equal(t, 0, hub.Publish(Event{UserID: "alice"}))
}

func TestHub_CloseEndsStreams(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe("alice")

	hub.Close()
	cancel()

	_, open := <-ch
	assert.False(t, open)
}
