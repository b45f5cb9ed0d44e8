package model

import "time"

// Building is the tenancy unit that scopes messages, memberships and
// emergencies.  The legacy shared building password is not modelled;
// enrollment goes through invite codes.
type Building struct {
    ID          uint64    `json:"building_id"`
    Name        string    `json:"building_name"`
    Description *string   `json:"description,omitempty"`
    CreatedAt   time.Time `json:"created_at"`
}

// BuildingStats summarises activity in a building.
type BuildingStats struct {
    BuildingID   uint64 `json:"building_id"`
    BuildingName string `json:"building_name"`
    MemberCount  int64  `json:"member_count"`
    MessageCount int64  `json:"message_count"`
}
