package model

import "time"

// EmergencyType enumerates the kinds of report a member can raise.
type EmergencyType string

const (
    EmergencyMedical  EmergencyType = "medical"
    EmergencyFire     EmergencyType = "fire"
    EmergencySecurity EmergencyType = "security"
    EmergencyOther    EmergencyType = "other"
)

// Valid reports whether t is one of the four known types.
func (t EmergencyType) Valid() bool {
    switch t {
    case EmergencyMedical, EmergencyFire, EmergencySecurity, EmergencyOther:
        return true
    }
    return false
}

// Label is the human heading used when a verified report is pinned.
func (t EmergencyType) Label() string {
    switch t {
    case EmergencyMedical:
        return "Medical Emergency"
    case EmergencyFire:
        return "Fire Emergency"
    case EmergencySecurity:
        return "Security Emergency"
    }
    return "Emergency"
}

// EmergencyReport mirrors the emergency_messages table.  Location and
// description are stored in plaintext next to their SHA-256 digests; the
// digests provide integrity checking only.
//
// State machine: Reported (IsVerified false) -> Verified.  VerifiedBy and
// VerifiedAt record the verifier.
type EmergencyReport struct {
    ID                 uint64        `json:"emergency_id"`
    ReporterID         uint64        `json:"-"`
    BuildingID         uint64        `json:"building_id"`
    Type               EmergencyType `json:"emergency_type"`
    Location           string        `json:"location"`
    LocationHash       string        `json:"location_hash"`
    Description        string        `json:"description"`
    DescriptionHash    string        `json:"description_hash"`
    IsVerified         bool          `json:"is_verified"`
    VerifiedBy         *uint64       `json:"verified_by,omitempty"`
    VerifiedAt         *time.Time    `json:"verified_at,omitempty"`
    CreatedAt          time.Time     `json:"created_at"`
    ReportedBy         string        `json:"reported_by,omitempty"`
    VerifiedByUsername *string       `json:"verified_by_username,omitempty"`
    BuildingName       string        `json:"building_name,omitempty"`
    PinnedMessageID    *uint64       `json:"pinned_message_id,omitempty"`
}

// EmergencyVerification is one append-only audit row per verify call.
type EmergencyVerification struct {
    ID          uint64    `json:"verification_id"`
    EmergencyID uint64    `json:"emergency_id"`
    VerifiedBy  uint64    `json:"verified_by"`
    Notes       *string   `json:"verification_notes,omitempty"`
    CreatedAt   time.Time `json:"created_at"`
}
