package model

import "time"

// InviteCode is a single-use, building-scoped enrollment token.
//
// Lifecycle: issued active and unused; consumed exactly once (UsedBy and
// UsedAt set); or deactivated (IsActive false); or expired once ExpiresAt
// passes.  Expiry is evaluated lazily, there is no background sweep.
type InviteCode struct {
    ID                uint64     `json:"invite_code_id"`
    Code              string     `json:"code"`
    BuildingID        uint64     `json:"building_id"`
    CreatedBy         uint64     `json:"created_by"`
    UsedBy            *uint64    `json:"used_by,omitempty"`
    UsedAt            *time.Time `json:"used_at,omitempty"`
    ExpiresAt         *time.Time `json:"expires_at,omitempty"`
    IsActive          bool       `json:"is_active"`
    CreatedAt         time.Time  `json:"created_at"`
    CreatedByUsername string     `json:"created_by_username,omitempty"`
    UsedByUsername    *string    `json:"used_by_username,omitempty"`
    BuildingName      string     `json:"building_name,omitempty"`
}

// InviteStatus is the validity state of a code at a point in time.
type InviteStatus string

const (
    InviteValid    InviteStatus = "valid"
    InviteUsed     InviteStatus = "used"
    InviteInactive InviteStatus = "inactive"
    InviteExpired  InviteStatus = "expired"
)

// StatusAt classifies the code at now.  Checks run used → inactive →
// expired so a code that is both inactive and expired reports inactive.
func (c InviteCode) StatusAt(now time.Time) InviteStatus {
    if c.UsedBy != nil {
        return InviteUsed
    }
    if !c.IsActive {
        return InviteInactive
    }
    if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
        return InviteExpired
    }
    return InviteValid
}
