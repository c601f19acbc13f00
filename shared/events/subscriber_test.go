package events

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestProcessClassifiesMalformedMessages(t *testing.T) {
	var handled int
	sub := NewSubscriber(nil, SubscriberConfig{
		Stream: TransactionEventsStream,
		Handler: func(ctx context.Context, e Event) error {
			handled++
			return assert.AnError
		},
	})

	tests := []struct {
		name   string
		values map[string]any
	}{
		{"no event field", map[string]any{"payload": "{}"}},
		{"event not a string", map[string]any{"event": 42}},
		{"event not json", map[string]any{"event": "{not json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sub.process(context.Background(), redis.XMessage{ID: "1-0", Values: tt.values})
			assert.ErrorIs(t, err, errMalformedMessage)
		})
	}
	assert.Zero(t, handled)

	// Handler failures are not treated as malformed so the entry stays pending.
	err := sub.process(context.Background(), redis.XMessage{ID: "2-0", Values: map[string]any{
		"event": `{"type":"transaction.created","data":{}}`,
	}})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, errMalformedMessage)
	assert.Equal(t, 1, handled)
}
