package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Handler processes one event. Returning an error leaves the message pending
// so it is redelivered when the consumer restarts. Entries that do not decode
// into an Event never reach the handler and are acknowledged.
type Handler func(ctx context.Context, event Event) error

// Subscriber consumes a Redis stream through a consumer group.
type Subscriber struct {
	client        redis.Cmdable
	group         string
	consumer      string
	stream        string
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
}

func NewSubscriber(client redis.Cmdable, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
	}
}

// Start blocks until ctx is cancelled. Messages left pending by an earlier run
// of the same consumer are replayed before new ones are read.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log := slog.With("stream", s.stream, "group", s.group, "consumer", s.consumer)
	log.Info("subscriber started")

	if err := s.drainPending(ctx); err != nil && ctx.Err() == nil {
		log.Warn("failed to replay pending messages", "error", err)
	}

	for {
		if ctx.Err() != nil {
			log.Info("subscriber stopping")
			return ctx.Err()
		}
		if _, err := s.read(ctx, ">", s.blockDuration); err != nil && ctx.Err() == nil {
			log.Warn("error reading messages", "error", err)
			time.Sleep(time.Second)
		}
	}
}

func (s *Subscriber) drainPending(ctx context.Context) error {
	for {
		n, err := s.read(ctx, "0", -1)
		if err != nil || n == 0 {
			return err
		}
	}
}

// read fetches one batch starting after id and returns how many messages
// were acknowledged. A negative block means do not block.
func (s *Subscriber) read(ctx context.Context, id string, block time.Duration) (int, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, id},
		Count:    s.batchSize,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream: %w", err)
	}

	acked := 0
	for _, stream := range streams {
		for _, message := range stream.Messages {
			err := s.process(ctx, message)
			if errors.Is(err, errMalformedMessage) {
				// It will never decode; acknowledge it so it is not replayed.
				slog.Error("dropping malformed message", "stream", s.stream, "id", message.ID, "error", err)
			} else if err != nil {
				slog.Warn("failed to process message", "stream", s.stream, "id", message.ID, "error", err)
				continue
			}
			if err := s.client.XAck(ctx, s.stream, s.group, message.ID).Err(); err != nil {
				slog.Warn("failed to ack message", "stream", s.stream, "id", message.ID, "error", err)
				continue
			}
			acked++
		}
	}
	return acked, nil
}

var errMalformedMessage = errors.New("malformed stream message")

// process decodes message and hands it to the handler. Entries that cannot be
// decoded are reported as errMalformedMessage.
func (s *Subscriber) process(ctx context.Context, message redis.XMessage) error {
	eventData, ok := message.Values["event"].(string)
	if !ok {
		return fmt.Errorf("%w: missing event field", errMalformedMessage)
	}

	var event Event
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		return fmt.Errorf("%w: %w", errMalformedMessage, err)
	}
	return s.handler(ctx, event)
}
