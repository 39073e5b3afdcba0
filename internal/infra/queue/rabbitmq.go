package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "ex.pipeline" // topic, routing key = tipo do evento
	DLXName      = "ex.pipeline.dlx"
	DLQName      = "q.pipeline.dlq"
	BindingKey   = "#"
)

type RabbitMQ struct {
	Conn      *amqp.Connection
	Ch        *amqp.Channel
	QueueName string
}

// NewRabbitMQ conecta e declara a topologia. Cada instância ganha a própria fila
// exclusiva, assim todas recebem todos os eventos.
func NewRabbitMQ(url, instanceID string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("falha ao abrir canal: %w", err)
	}

	queueName := InstanceQueueName(instanceID)
	if err := setupTopology(ch, queueName); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("falha ao declarar topologia: %w", err)
	}

	return &RabbitMQ{Conn: conn, Ch: ch, QueueName: queueName}, nil
}

func InstanceQueueName(instanceID string) string {
	return "q.pipeline." + instanceID
}

func setupTopology(ch *amqp.Channel, queueName string) error {
	if err := ch.ExchangeDeclare(DLXName, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(DLQName, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(DLQName, "", DLXName, false, nil); err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange": DLXName, // Nack sem requeue vai para a DLQ
	}
	// exclusiva e auto-delete: some junto com a instância
	if _, err := ch.QueueDeclare(queueName, false, true, true, false, args); err != nil {
		return err
	}
	return ch.QueueBind(queueName, BindingKey, ExchangeName, false, nil)
}

func (r *RabbitMQ) Close() {
	if r.Ch != nil {
		_ = r.Ch.Close()
	}
	if r.Conn != nil {
		_ = r.Conn.Close()
	}
}
