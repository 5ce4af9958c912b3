// Package queue mirrors committed audit events onto an AMQP exchange so
// downstream consumers (SIEM forwarders, notification workers) can follow
// the trail without reading the database.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"privaseal/internal/domain"
	"privaseal/internal/usecase"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

type auditMessage struct {
	ID            string    `json:"id"`
	ScopeID       string    `json:"scope_id"`
	Seq           int64     `json:"seq"`
	EventType     string    `json:"event_type"`
	PayloadHash   string    `json:"payload_hash"`
	TargetType    string    `json:"target_type,omitempty"`
	TargetID      string    `json:"target_id,omitempty"`
	Result        string    `json:"result"`
	EventHash     string    `json:"event_hash"`
	PrevEventHash string    `json:"prev_event_hash"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewPublisher dials the broker and declares the exchange, queue, and
// binding. Declarations are idempotent and must match any consumer side.
func NewPublisher(amqpURL, exchange, queueName, routingKey string) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	if queueName != "" {
		if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, err
		}
		if err := ch.QueueBind(queueName, routingKey, exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, err
		}
	}
	return &Publisher{
		conn:       conn,
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

// Publish sends the chain metadata of a committed event. Payload bodies
// stay out of the stream; consumers that need them read the store.
func (p *Publisher) Publish(ctx context.Context, event domain.AuditEvent) error {
	body, err := json.Marshal(auditMessage{
		ID:            event.ID,
		ScopeID:       event.ScopeID,
		Seq:           event.Seq,
		EventType:     string(event.EventType),
		PayloadHash:   event.PayloadHash,
		TargetType:    string(event.TargetType),
		TargetID:      event.TargetID,
		Result:        string(event.Result),
		EventHash:     event.EventHash,
		PrevEventHash: event.PrevEventHash,
		CreatedAt:     event.CreatedAt,
	})
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		p.routingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			DeliveryMode: amqp.Persistent,
		},
	)
}

func (p *Publisher) Close() {
	p.channel.Close()
	p.conn.Close()
}

var _ usecase.AuditSink = (*Publisher)(nil)
