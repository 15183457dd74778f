package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/blueprint-paywall/internal/model"
)

// Sink stores consumed fulfillment events.  repository.AuditRepo and FileSink
// both implement it.
type Sink interface {
	Append(ctx context.Context, e model.AuditEntry) error
}

// FileSink appends one human-readable line per event to Dir/fulfillment.log.
type FileSink struct {
	Dir string
	mu  sync.Mutex
}

func (s *FileSink) Append(_ context.Context, e model.AuditEntry) error {
	dir := s.Dir
	if dir == "" {
		dir = "logs"
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "fulfillment.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	email := e.Email
	if email == "" {
		email = "none"
	}
	line := fmt.Sprintf("[%s] Fulfillment recorded | session_id=%s | role=%s | email=%s | source=%s\n",
		e.RecordedAt.UTC().Format(time.RFC3339), e.SessionID, e.Role, email, e.Source)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// StartFulfillmentConsumer connects to the broker at url, declares the
// fulfillment queue and hands every message to sink.  It reconnects with
// exponential backoff (capped at 30s) and returns only when ctx is done.
// Messages the sink rejects are nacked without requeue.
func StartFulfillmentConsumer(ctx context.Context, url string, sink Sink, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("consumer")

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, sink, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, sink Sink, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(FulfillmentQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(FulfillmentQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(ctx, sink, d.Body); err != nil {
				log.Error("handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one FulfillmentRecorded body and stores it in sink.
func HandleMessage(ctx context.Context, sink Sink, body []byte) error {
	var ev FulfillmentRecorded
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.SessionID == "" || ev.Role == "" {
		return errors.New("event without session_id or role")
	}
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = time.Now().UTC()
	}
	return sink.Append(ctx, ev.Entry())
}
