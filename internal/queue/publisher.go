package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// FulfillmentQueue is the durable queue FulfillmentRecorded events go to.
const FulfillmentQueue = "fulfillment.recorded"

const (
	defaultDialTimeout = 3 * time.Second
	defaultBuffer      = 256
)

var (
	// ErrPublisherBusy is returned when the send buffer is full.
	ErrPublisherBusy = errors.New("publisher buffer full")
	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("publisher closed")
)

// Publisher sends FulfillmentRecorded events to RabbitMQ.  Publish only
// enqueues; a background goroutine owns the connection, opening it on first
// use and re-opening it after the broker drops it.  Events that cannot be
// delivered are logged and dropped.  Safe for concurrent use.
type Publisher struct {
	url         string
	log         *zap.Logger
	dialTimeout time.Duration

	events    chan FulfillmentRecorded
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a Publisher for the broker at url and starts its
// sender.  No connection is made until the first event.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	return newPublisher(url, log, defaultDialTimeout, defaultBuffer)
}

func newPublisher(url string, log *zap.Logger, dialTimeout time.Duration, buffer int) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Publisher{
		url:         url,
		log:         log.Named("publisher"),
		dialTimeout: dialTimeout,
		events:      make(chan FulfillmentRecorded, buffer),
		done:        make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Publish queues ev for delivery.  It never waits on the broker.
func (p *Publisher) Publish(ctx context.Context, ev FulfillmentRecorded) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.done:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.events <- ev:
		return nil
	default:
		return ErrPublisherBusy
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		default:
		}
		select {
		case <-p.done:
			return
		case ev := <-p.events:
			if err := p.send(ev); err != nil {
				p.log.Warn("fulfillment event dropped", zap.String("session_id", ev.SessionID), zap.Error(err))
			}
		}
	}
}

// channel returns an open channel with the queue declared.  Caller holds mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout)})
		if err != nil {
			return nil, fmt.Errorf("dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(
		FulfillmentQueue, // name
		true,             // durable
		false,            // autoDelete
		false,            // exclusive
		false,            // noWait
		nil,              // args
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

// send delivers ev as a persistent JSON message on the default exchange.
func (p *Publisher) send(ev FulfillmentRecorded) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.dialTimeout)
	defer cancel()
	err = ch.PublishWithContext(ctx,
		"",               // default exchange
		FulfillmentQueue, // routing key = queue name
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		_ = ch.Close()
		p.ch = nil
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close stops the sender and releases the channel and connection.  Queued
// events not yet sent are dropped.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
