package publisher

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-yolo/service/config"
)

type rabbitService struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

// NewRabbitMQ dials the broker and declares a durable topic exchange that
// run events are published to.
func NewRabbitMQ(params config.PublisherParameters) (IService, error) {
	conn, err := amqp.Dial(params.URL)
	if err != nil {
		return nil, xerrors.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, xerrors.Errorf("open publisher channel: %w", err)
	}

	if err := ch.ExchangeDeclare(params.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, xerrors.Errorf("declare exchange %s: %w", params.Exchange, err)
	}

	return &rabbitService{
		conn:       conn,
		channel:    ch,
		exchange:   params.Exchange,
		routingKey: params.RoutingKey,
	}, nil
}

func (svc *rabbitService) Publish(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return xerrors.Errorf("marshal event: %w", err)
	}

	err = svc.channel.PublishWithContext(ctx,
		svc.exchange,
		svc.routingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		},
	)
	if err != nil {
		return xerrors.Errorf("publish to %s: %w", svc.exchange, err)
	}
	return nil
}

func (svc *rabbitService) Close() error {
	if err := svc.channel.Close(); err != nil {
		svc.conn.Close()
		return err
	}
	return svc.conn.Close()
}
