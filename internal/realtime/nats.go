package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

const subjectPrefix = "agroai.rooms"

// NATS shares rooms between server instances through a JetStream stream. Subscribers only
// see messages published after they joined.
type NATS struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream string
	logger *zap.Logger
}

func NewNATS(ctx context.Context, url, stream string, logger *zap.Logger) (*NATS, error) {
	nc, err := nats.Connect(url, nats.Name("agroai"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        stream,
		Description: "AgroAI chat room broadcasts",
		Subjects:    []string{subjectPrefix + ".*"},
		MaxAge:      time.Hour,
		Storage:     jetstream.MemoryStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream %q: %w", stream, err)
	}
	logger.Info("jetstream ready", zap.String("stream", stream))

	return &NATS{nc: nc, js: js, stream: stream, logger: logger}, nil
}

func subject(room string) string {
	return subjectPrefix + "." + room
}

func (n *NATS) Publish(ctx context.Context, room string, payload []byte) error {
	if _, err := n.js.Publish(ctx, subject(room), payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", room, err)
	}
	return nil
}

func (n *NATS) Subscribe(ctx context.Context, room string, h Handler) (Subscription, error) {
	cons, err := n.js.OrderedConsumer(ctx, n.stream, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{subject(room)},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer for %s: %w", room, err)
	}
	cc, err := cons.Consume(func(msg jetstream.Msg) {
		h(msg.Data())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to consume %s: %w", room, err)
	}
	return cc, nil
}

func (n *NATS) Close() error {
	if err := n.nc.Drain(); err != nil {
		n.nc.Close()
		return err
	}
	return nil
}
