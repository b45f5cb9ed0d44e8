package model

import "time"

// Message is an append-only post on a building board.  Author is the
// display name ("Anonymous" when IsAnonymous is set) and AuthorRole the
// resolved role of the poster; both are filled by listing queries.
type Message struct {
    ID          uint64    `json:"message_id"`
    UserID      uint64    `json:"-"`
    BuildingID  uint64    `json:"building_id"`
    Content     string    `json:"content"`
    ContentHash string    `json:"content_hash"`
    IsAnonymous bool      `json:"is_anonymous"`
    CreatedAt   time.Time `json:"created_at"`
    Author      string    `json:"author"`
    AuthorRole  *string   `json:"author_role,omitempty"`
}

// PinnedMessage is a highlighted announcement.  EmergencyID and
// EmergencyType are set only when the pin was produced by verifying an
// emergency report.
type PinnedMessage struct {
    ID            uint64         `json:"pinned_message_id"`
    UserID        uint64         `json:"user_id"`
    BuildingID    uint64         `json:"building_id"`
    Content       string         `json:"content"`
    ContentHash   string         `json:"content_hash"`
    EmergencyID   *uint64        `json:"emergency_id,omitempty"`
    EmergencyType *EmergencyType `json:"emergency_type,omitempty"`
    CreatedAt     time.Time      `json:"created_at"`
    Author        string         `json:"author"`
    AuthorRole    *string        `json:"author_role,omitempty"`
}
