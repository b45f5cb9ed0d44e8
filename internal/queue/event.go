// Package queue defines the emergency events exchanged over RabbitMQ, the
// publisher used by the service layer and the audit consumer.
package queue

import "time"

// EmergencyQueueName is the durable queue carrying emergency events.
const EmergencyQueueName = "emergency.events"

// Event kinds.
const (
    KindEmergencyReported = "emergency.reported"
    KindEmergencyVerified = "emergency.verified"
)

// EmergencyEvent is published after a report or a verification commits.
// It carries identifiers and the type only; location and description stay
// in the database.
type EmergencyEvent struct {
    EventID         string    `json:"event_id"`
    Kind            string    `json:"kind"`
    EmergencyID     uint64    `json:"emergency_id"`
    BuildingID      uint64    `json:"building_id"`
    EmergencyType   string    `json:"emergency_type"`
    ActorID         uint64    `json:"actor_id"`
    PinnedMessageID *uint64   `json:"pinned_message_id,omitempty"`
    OccurredAt      time.Time `json:"occurred_at"`
}
