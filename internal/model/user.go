package model

import "time"

// User represents an account record as stored in the `users` table.
// Role information lives in the extension tables (students, ras,
// admins) and is resolved into a Membership.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  Email        – unique institutional email address.
//  PasswordHash – bcrypt digest; the raw password is never stored.
//  LastLogin    – time of the last successful authentication (nullable).
//  CreatedAt    – timestamp of creation.
type User struct {
    ID           uint64     // users.user_id
    Username     string     // users.username
    Email        string     // users.student_email
    PasswordHash string     // users.password_hash
    LastLogin    *time.Time // users.last_login (nullable)
    CreatedAt    time.Time  // users.created_at
}

// Role is the tagged variant naming which extension table owns a user.
// The zero value RoleNone means the user matched no extension table and
// must be treated as unauthorized for every building-scoped operation.
type Role string

const (
    RoleNone    Role = ""
    RoleStudent Role = "student"
    RoleRA      Role = "RA"
    RoleAdmin   Role = "admin"
)

// Rank orders roles by precedence: admin > RA > student > none.
func (r Role) Rank() int {
    switch r {
    case RoleAdmin:
        return 3
    case RoleRA:
        return 2
    case RoleStudent:
        return 1
    }
    return 0
}

// Valid reports whether r names one of the three extension tables.
func (r Role) Valid() bool { return r.Rank() > 0 }

// IsStaff reports whether r may manage a building (RA or admin).
func (r Role) IsStaff() bool { return r == RoleRA || r == RoleAdmin }

// ParseRole maps a stored or claimed role name onto a Role.
func ParseRole(s string) Role {
    switch Role(s) {
    case RoleStudent, RoleRA, RoleAdmin:
        return Role(s)
    }
    return RoleNone
}

// Membership is the resolved role of a user together with the building
// it is scoped to.  BuildingID is set for RAs and for students with a
// building link; AdminLevel is set for admins only.
type Membership struct {
    UserID     uint64  `json:"user_id"`
    Role       Role    `json:"role"`
    BuildingID *uint64 `json:"building_id,omitempty"`
    AdminLevel *string `json:"admin_level,omitempty"`
}

// InBuilding reports whether the membership is scoped to buildingID.
func (m Membership) InBuilding(buildingID uint64) bool {
    return m.BuildingID != nil && *m.BuildingID == buildingID
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token handed to the client is persisted.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}

// RA is a resident-assistant record joined with its user and building.
type RA struct {
    RAID           uint64    `json:"ra_id"`
    UserID         uint64    `json:"user_id"`
    BuildingID     uint64    `json:"building_id"`
    PhoneNumber    *string   `json:"phone_number,omitempty"`
    OfficeLocation *string   `json:"office_location,omitempty"`
    Username       string    `json:"username"`
    Email          string    `json:"email"`
    BuildingName   string    `json:"building_name"`
    CreatedAt      time.Time `json:"created_at"`
}
