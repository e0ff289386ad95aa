// Package event signals confirmed ledger mutations to interested
// observers (list refresh, modal close, audit consumers) over AMQP.
package event

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// Confirmation describes one confirmed write. ID and At are stamped at
// publish time when the caller leaves them empty, so consumers can
// deduplicate redelivered messages.
type Confirmation struct {
	ID      string    `json:"event_id"`
	Kind    string    `json:"kind"`    // e.g. "payment", "offer_accepted"
	Subject string    `json:"subject"` // loan address, offer id, borrower
	TxID    string    `json:"tx_id"`
	At      time.Time `json:"at"`
}

// Notifier receives confirmations. Publishing is best-effort: a failed
// notification never fails the action it follows.
type Notifier interface {
	Confirmed(ctx context.Context, c Confirmation)
}

// Nop discards confirmations; used when no broker is configured.
type Nop struct{}

func (Nop) Confirmed(context.Context, Confirmation) {}

// Publisher emits confirmations on a topic exchange, routing key
// "tx.<kind>".
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *Publisher) Confirmed(_ context.Context, c Confirmation) {
	body, route := Message(c)
	if err := p.ch.Publish(
		p.exchange,
		route,
		false, // mandatory
		false, // immediate
		amqp.Publishing{ContentType: "application/json", Body: body},
	); err != nil {
		log.Printf("event: publish %s failed: %v", route, err)
	}
}

// Message builds the wire payload and routing key for a confirmation,
// stamping the event id and time when missing.
func Message(c Confirmation) (body []byte, route string) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}
	body, _ = json.Marshal(c)
	return body, "tx." + c.Kind
}

func (p *Publisher) Close() {
	p.ch.Close()
	p.conn.Close()
}
