package queue

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

func (w *Worker) Process(ctx context.Context, d amqp.Delivery) { w.process(ctx, d) }
