package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemory_PublishConsume(t *testing.T) {
	t.Parallel()

	q := NewInMemory(4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Publish(ctx, Message{Type: "mark", Body: []byte("stu-1|2026-03-06|present")}))

	select {
	case msg := <-msgs:
		require.Equal(t, "mark", msg.Type)
		require.Equal(t, "stu-1|2026-03-06|present", string(msg.Body))
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemory_PublishHonorsContext(t *testing.T) {
	t.Parallel()

	q := NewInMemory(1)
	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, Message{Type: "mark"}))

	full, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := q.Publish(full, Message{Type: "mark"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSerializeRoundTrip(t *testing.T) {
	t.Parallel()

	msg := Message{Type: "mark", Body: []byte("stu-1|2026-03-06|absent")}
	got, err := deserialize(serialize(msg))
	require.NoError(t, err)
	require.Equal(t, msg.Type, got.Type)
	require.Equal(t, msg.Body, got.Body)
}
