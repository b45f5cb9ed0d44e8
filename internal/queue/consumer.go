package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// AuditConsumer drains the emergency queue into an append-only log file.
type AuditConsumer struct {
    url string
    dir string
    log *zap.Logger
}

func NewAuditConsumer(url, dir string, log *zap.Logger) *AuditConsumer {
    return &AuditConsumer{url: url, dir: dir, log: log}
}

// Run connects to RabbitMQ, declares the durable emergency queue and
// appends one line per event to <dir>/emergency.log.  It reconnects with
// exponential backoff and returns only when ctx is cancelled.
func (c *AuditConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("emergency-consumer: failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn("emergency-consumer: consume loop ended; reconnecting", zap.Error(err))
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

func (c *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warn("emergency-consumer: set QoS failed", zap.Error(err))
    }
    if _, err := ch.QueueDeclare(EmergencyQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(EmergencyQueueName, "", false, false, false, false, nil)
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
            if err := c.handleMessage(d.Body); err != nil {
                c.log.Error("emergency-consumer: handle message failed", zap.String("message_id", d.MessageId), zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func (c *AuditConsumer) handleMessage(body []byte) error {
    var ev EmergencyEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Kind == "" || ev.EmergencyID == 0 {
        return errors.New("event missing kind or emergency_id")
    }
    if err := os.MkdirAll(c.dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", c.dir, err)
    }
    f, err := os.OpenFile(filepath.Join(c.dir, "emergency.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(auditLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// auditLine renders ev as a single log line.
func auditLine(ev EmergencyEvent) string {
    pinned := "-"
    if ev.PinnedMessageID != nil {
        pinned = fmt.Sprintf("%d", *ev.PinnedMessageID)
    }
    return fmt.Sprintf("[%s] %s | event_id=%s | emergency_id=%d | building_id=%d | type=%s | actor_id=%d | pinned_message_id=%s\n",
        ev.OccurredAt.UTC().Format(time.RFC3339), ev.Kind, ev.EventID, ev.EmergencyID, ev.BuildingID,
        ev.EmergencyType, ev.ActorID, pinned)
}
