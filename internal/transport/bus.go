package transport

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

const (
	TopicMarketData = "marksim.market_data"
	TopicTrades     = "marksim.trades"
	TopicDepth      = "marksim.depth"
	candleTopicPrefix = "marksim.candles."
)

// CandleTopic returns the bus topic for one timeframe tag's candle feed.
func CandleTopic(tag string) string { return candleTopicPrefix + tag }

// Bus is the demonstration fan-out backbone between the core's publication
// streams and the websocket hub, built on watermill's in-process
// gochannel Pub/Sub: multi-subscriber, with a buffered output channel per
// subscriber. Unlike the core streams it has no publish timeout and
// counts no drops.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *zap.Logger
}

// NewBus returns a Bus with one gochannel instance shared by every topic,
// each subscriber getting its own buffered output channel of bufferSize.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            int64(bufferSize),
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewStdLogger(false, false),
	)
	return &Bus{pubsub: pubsub, logger: logger}
}

// Publish marshals payload to JSON and publishes it on topic.
func (b *Bus) Publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Warn("transport: failed to marshal envelope", zap.String("topic", topic), zap.Error(err))
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := b.pubsub.Publish(topic, msg); err != nil {
		b.logger.Warn("transport: failed to publish envelope", zap.String("topic", topic), zap.Error(err))
	}
}

// Subscribe returns a channel of raw JSON payloads published on topic.
// Messages are acked immediately — this bus has no redelivery semantics.
// When the returned channel is full, forwarding waits until it has room or
// ctx is done; nothing is dropped.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	msgs, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	out := make(chan []byte, cap(msgs))
	go func() {
		defer close(out)
		for msg := range msgs {
			payload := append([]byte(nil), msg.Payload...)
			msg.Ack()
			select {
			case out <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close shuts down the underlying pub/sub.
func (b *Bus) Close() error { return b.pubsub.Close() }
