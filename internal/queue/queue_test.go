package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryPublishConsume(t *testing.T) {
	q := NewInMemory(4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, q.Publish(ctx, Message{Type: MessageTypeScan, Body: []byte(`{"kind":"start"}`)}))

	messages, err := q.Consume(ctx)
	require.NoError(t, err)

	msg := <-messages
	assert.Equal(t, MessageTypeScan, msg.Type)
	assert.Equal(t, `{"kind":"start"}`, string(msg.Body))
}

func TestSerializeRoundTrip(t *testing.T) {
	msg := Message{Type: "scan", Body: []byte(`{"session_id":"s|1"}`)}
	got, err := deserialize(serialize(msg))
	require.NoError(t, err)
	assert.Equal(t, msg.Type, got.Type)
	// Pipes inside the body survive: only the first separator counts.
	assert.Equal(t, string(msg.Body), string(got.Body))
}

func TestDeserialize_NoSeparator(t *testing.T) {
	got, err := deserialize("plain")
	require.NoError(t, err)
	assert.Empty(t, got.Type)
	assert.Equal(t, "plain", string(got.Body))
}
