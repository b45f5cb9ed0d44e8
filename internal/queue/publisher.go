package queue

import (
    "context"
    "encoding/json"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// Publisher sends emergency events to RabbitMQ.  It dials per publish;
// emergency traffic is rare and this keeps no connection state to repair.
type Publisher struct {
    url string
    log *zap.Logger
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
    return &Publisher{url: url, log: log}
}

// PublishEmergency publishes ev as a persistent message.  A missing
// EventID is filled with a fresh UUID, which is also the AMQP message id.
// Errors are logged and returned so callers may ignore them.
func (p *Publisher) PublishEmergency(ctx context.Context, ev EmergencyEvent) error {
    if ev.EventID == "" {
        ev.EventID = uuid.NewString()
    }
    if ev.OccurredAt.IsZero() {
        ev.OccurredAt = time.Now().UTC()
    }

    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.log.Warn("rabbitmq: dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Warn("rabbitmq: channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(EmergencyQueueName, true, false, false, false, nil); err != nil {
        p.log.Warn("rabbitmq: queue declare failed", zap.Error(err))
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Type:         ev.Kind,
        Timestamp:    ev.OccurredAt,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", EmergencyQueueName, false, false, pub); err != nil {
        p.log.Warn("rabbitmq: publish failed", zap.String("event_id", ev.EventID), zap.Error(err))
        return err
    }
    return nil
}

// NopPublisher drops events.  It is used when EVENTS_ENABLED is false.
type NopPublisher struct{}

func (NopPublisher) PublishEmergency(context.Context, EmergencyEvent) error { return nil }
