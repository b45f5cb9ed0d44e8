// Package service holds the core rules of the platform: credentials,
// membership, invite codes, enrollment, the building access gate and the
// emergency workflow.  Services return *Error values whose Kind tells the
// HTTP layer which status to use.
package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	}
	return "internal"
}

// Error is a classified failure.  Two errors match under errors.Is when
// their codes are equal, so callers can compare against the sentinels
// below even when the message was customised.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrInvalidCredentials       = newErr(KindUnauthorized, "invalid_credentials", "invalid credentials")
	ErrInvalidEmailDomain       = newErr(KindValidation, "invalid_email_domain", "email must use an institutional address")
	ErrDuplicateIdentity        = newErr(KindConflict, "duplicate_identity", "username or email already exists")
	ErrBuildingNotFound         = newErr(KindNotFound, "building_not_found", "building not found")
	ErrBuildingAlreadyStaffed   = newErr(KindConflict, "building_already_staffed", "building already has an RA")
	ErrBuildingNameTaken        = newErr(KindConflict, "building_name_taken", "building name already exists")
	ErrInviteNotFound           = newErr(KindNotFound, "invite_not_found", "invalid invite code")
	ErrInviteAlreadyUsed        = newErr(KindConflict, "invite_already_used", "invite code has already been used")
	ErrInviteInactive           = newErr(KindConflict, "invite_inactive", "invite code has been deactivated")
	ErrInviteExpired            = newErr(KindConflict, "invite_expired", "invite code has expired")
	ErrCodeSpaceExhausted       = newErr(KindUnavailable, "code_space_exhausted", "could not generate a unique invite code")
	ErrInvalidBuildingID        = newErr(KindValidation, "invalid_building_id", "invalid building id")
	ErrInvalidEmergencyType     = newErr(KindValidation, "invalid_emergency_type", "emergency type must be medical, fire, security or other")
	ErrEmergencyNotFound        = newErr(KindNotFound, "emergency_not_found", "emergency not found")
	ErrEmergencyAlreadyVerified = newErr(KindConflict, "emergency_already_verified", "emergency already verified")
	ErrPinnedNotFound           = newErr(KindNotFound, "pinned_message_not_found", "pinned message not found")
	ErrRoleConflict             = newErr(KindConflict, "role_conflict", "account has conflicting roles")
	ErrForbidden                = newErr(KindForbidden, "forbidden", "forbidden")
	ErrInvalidInput             = newErr(KindValidation, "invalid_input", "invalid input")
	ErrInternal                 = newErr(KindInternal, "internal", "internal error")
)

// forbidden returns ErrForbidden with a message naming the violated rule.
func forbidden(msg string) *Error {
	return newErr(KindForbidden, ErrForbidden.Code, msg)
}

// invalid returns ErrInvalidInput with a message naming the bad field.
func invalid(msg string) *Error {
	return newErr(KindValidation, ErrInvalidInput.Code, msg)
}

// internal wraps an unexpected store failure.  The operation name is kept
// for logs; clients only ever see the generic message.
func internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Code: ErrInternal.Code, Message: ErrInternal.Message, Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf reports the Kind of err, treating unclassified errors as internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
