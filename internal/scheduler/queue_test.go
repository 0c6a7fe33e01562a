package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChanQueuePushThenPopRoundTrips(t *testing.T) {
	q := NewChanQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, InputItem{Kind: InputQuery, Query: "dog"}))

	item, ok, err := q.Pop(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dog", item.Query)
}

func TestChanQueuePopTimesOutWhenEmpty(t *testing.T) {
	q := NewChanQueue(4)

	_, ok, err := q.Pop(context.Background(), 5*time.Millisecond)

	require.NoError(t, err)
	assert.False(t, ok)
}
