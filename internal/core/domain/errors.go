package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrReferralNotFound = errors.New("referral not found")
	ErrTagNotFound      = errors.New("tag not found")

	ErrUnauthenticated      = errors.New("authentication required")
	ErrForbidden            = errors.New("access forbidden")
	ErrBusy                 = errors.New("another change is still in progress")
	ErrSubmitInFlight       = errors.New("a submission is already in progress")
	ErrConfirmationRequired = errors.New("deletion must be confirmed first")
	ErrEditorClosed         = errors.New("editor is not open")

	// ErrValidation, ErrRemote and ErrConflict classify the typed errors below
	// for errors.Is checks.
	ErrValidation = errors.New("validation failed")
	ErrRemote     = errors.New("remote call failed")
	ErrConflict   = errors.New("domain conflict")
)

// FieldError is a single client-side validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// ConflictKind names a business-rule rejection.
type ConflictKind string

const (
	ConflictTagInUse       ConflictKind = "tag_in_use"
	ConflictTagLimit       ConflictKind = "tag_limit"
	ConflictReferralLimit  ConflictKind = "referral_limit"
	ConflictUsernameTaken  ConflictKind = "username_taken"
	ConflictAlreadyPremium ConflictKind = "already_premium"
	ConflictProfileExists  ConflictKind = "profile_exists"
)

// DomainConflict is a named rejection, rendered with dedicated copy rather
// than as a generic failure.
type DomainConflict struct {
	Kind    ConflictKind
	Message string
}

func (e *DomainConflict) Error() string { return e.Message }

func (e *DomainConflict) Is(target error) bool { return target == ErrConflict }

// NewConflict builds a DomainConflict with the standard copy for kind.
func NewConflict(kind ConflictKind) *DomainConflict {
	return &DomainConflict{Kind: kind, Message: conflictMessages[kind]}
}

var conflictMessages = map[ConflictKind]string{
	ConflictTagInUse:       "Tag is in use by one or more referrals. Remove it from those referrals first.",
	ConflictTagLimit:       "Tag limit reached. Upgrade to premium for more tags.",
	ConflictReferralLimit:  "Referral limit reached. Upgrade to premium for more referrals.",
	ConflictUsernameTaken:  "Username is already taken",
	ConflictAlreadyPremium: "Profile is already on the premium tier",
	ConflictProfileExists:  "A profile already exists for this account",
}

// IsConflict reports whether err is a DomainConflict of the given kind.
func IsConflict(err error, kind ConflictKind) bool {
	var dc *DomainConflict
	return errors.As(err, &dc) && dc.Kind == kind
}

// RemoteError wraps a failed call to the storage collaborator.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

// ClassifyRemoteMessage maps the message of a rejected remote call to the
// domain error it stands for. Unknown messages yield nil.
func ClassifyRemoteMessage(msg string) error {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "tag is in use"):
		return &DomainConflict{Kind: ConflictTagInUse, Message: msg}
	case strings.Contains(m, "tag limit reached"):
		return NewConflict(ConflictTagLimit)
	case strings.Contains(m, "referral limit reached"):
		return NewConflict(ConflictReferralLimit)
	case strings.Contains(m, "profiles_username_key"), strings.Contains(m, "username is already taken"):
		return NewConflict(ConflictUsernameTaken)
	case strings.Contains(m, "referral not found"):
		return ErrReferralNotFound
	case strings.Contains(m, "tag not found"):
		return ErrTagNotFound
	case strings.Contains(m, "profile not found"):
		return ErrProfileNotFound
	}
	return nil
}
