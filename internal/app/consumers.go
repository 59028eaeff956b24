package app

import (
	"context"
	"time"

	"platform_backend/internal/broker"
	"platform_backend/internal/logger"
)

const consumerRetryDelay = 5 * time.Second

// runConsumer объявляет очередь и читает ее, переподключаясь после обрыва
func runConsumer(ctx context.Context, conn *broker.Connection, spec broker.QueueSpec, consumer *broker.Consumer) {
	log := logger.WithComponent("consumer").With("queue", spec.Name)

	for {
		err := consumeOnce(ctx, conn, spec, consumer)
		if ctx.Err() != nil {
			return
		}
		log.Warn("consumer interrupted, retrying", "error", err, "delay", consumerRetryDelay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(consumerRetryDelay):
		}
	}
}

func consumeOnce(ctx context.Context, conn *broker.Connection, spec broker.QueueSpec, consumer *broker.Consumer) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	if err := broker.DeclareExchanges(ch); err != nil {
		return err
	}
	if err := broker.DeclareQueue(ch, spec); err != nil {
		return err
	}
	return consumer.Run(ctx, ch)
}
