package queue

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/ligue-pipeline/internal/infra/logger"
	"github.com/xavierca1/ligue-pipeline/internal/infra/realtime"
)

type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Worker consome os eventos do funil e repassa ao bridge.
type Worker struct {
	Channel Consumer
	Bridge  *realtime.Bridge
	Log     *logger.Logger
}

func NewWorker(ch Consumer, bridge *realtime.Bridge, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	return &Worker{
		Channel: ch,
		Bridge:  bridge,
		Log:     log.With("service", "PipelineEventWorker"),
	}
}

// Start registra o consumidor e processa até o ctx acabar ou o canal fechar.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",
		false, // ack manual
		true,  // exclusive
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("falha ao registrar consumidor RabbitMQ: %w", err)
	}

	w.Log.Info("worker aguardando eventos", "queue", queueName)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				w.Log.Warn("canal do RabbitMQ fechado", "queue", queueName)
				return nil
			}
			w.process(ctx, d)
		}
	}
}

func (w *Worker) process(ctx context.Context, d amqp.Delivery) {
	outcome, err := w.Bridge.Handle(ctx, d.Body)
	switch {
	case errors.Is(err, realtime.ErrMalformedEvent):
		// mensagem podre, rejeita sem requeue para não travar a fila
		w.Log.Warn("evento malformado descartado", "error", err)
		_ = d.Nack(false, false)
	case err != nil:
		// o reload já notificou; o refresh periódico cobre o atraso
		w.Log.Error("falha ao recarregar quadro após evento", "error", err)
		_ = d.Nack(false, false)
	default:
		w.Log.Debug("evento processado", "outcome", outcome)
		_ = d.Ack(false)
	}
}
