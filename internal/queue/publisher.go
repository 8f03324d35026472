package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/logger"
)

// Publisher publishes persistent messages to durable queues over one
// long-lived connection.  A broken connection is redialled on the next
// Publish.  It is safe for concurrent use.
type Publisher struct {
	url    string
	logger *zap.Logger

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

func NewPublisher(url string, l *zap.Logger) *Publisher {
	return &Publisher{url: url, logger: l, declared: make(map[string]bool)}
}

// Publish sends body to queueName through the default exchange.
func (p *Publisher) Publish(ctx context.Context, queueName string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	if !p.declared[queueName] {
		if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
			p.reset()
			return fmt.Errorf("rabbitmq: queue declare: %w", err)
		}
		p.declared[queueName] = true
	}

	err = ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}

// Close releases the connection.  A later Publish dials again.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch = nil, nil
	p.declared = make(map[string]bool)
	return err
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			logger.MakeWarn(p.logger, "rabbitmq: dial failed", zap.Error(err))
			return nil, fmt.Errorf("rabbitmq: dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		p.reset()
		return nil, fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	p.ch = ch
	p.declared = make(map[string]bool)
	return ch, nil
}

func (p *Publisher) reset() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
	p.declared = make(map[string]bool)
}
