package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends a JSON payload to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, payload any) error
}

// AMQPPublisher publishes persistent messages through the default
// exchange over one long-lived connection.  The connection is dialled on
// first use and again after the broker closes it.
type AMQPPublisher struct {
	URL string
	Log *logrus.Logger

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

func NewAMQPPublisher(url string, log *logrus.Logger) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Log: log}
}

// Publish declares the queue once per connection and publishes payload as
// JSON.  Errors are logged and returned so callers can decide to ignore
// them.  A failed publish drops the connection so the next call redials.
func (p *AMQPPublisher) Publish(ctx context.Context, queue string, payload any) error {
	log := p.Log.WithField("queue", queue)
	body, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).Error("rabbitmq: marshal payload failed")
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked()
	if err != nil {
		log.WithError(err).Warn("rabbitmq: connect failed")
		return err
	}
	if !p.declared[queue] {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			log.WithError(err).Warn("rabbitmq: queue declare failed")
			p.resetLocked()
			return err
		}
		p.declared[queue] = true
	}

	err = ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		log.WithError(err).Warn("rabbitmq: publish failed")
		p.resetLocked()
		return err
	}
	return nil
}

// Close shuts the connection down.  A later Publish dials again.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch, p.declared = nil, nil, nil
	return err
}

// channelLocked returns the open channel, dialling when there is none.
func (p *AMQPPublisher) channelLocked() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch, p.declared = conn, ch, make(map[string]bool)
	go p.watch(ch, ch.NotifyClose(make(chan *amqp.Error, 1)))
	return ch, nil
}

// watch forgets ch once the broker closes it.
func (p *AMQPPublisher) watch(ch *amqp.Channel, closed <-chan *amqp.Error) {
	amqpErr, ok := <-closed
	if ok && amqpErr != nil {
		p.Log.WithError(amqpErr).Warn("rabbitmq: channel closed; will redial")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == ch {
		p.resetLocked()
	}
}

func (p *AMQPPublisher) resetLocked() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch, p.declared = nil, nil, nil
}

// NopPublisher drops every message.  It stands in when no broker is
// configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
