package profile

import (
	"context"
	"errors"
	"time"
)

// ErrProfileNotFound is returned when no profile exists for a subject.
// A missing profile is an expected outcome for first-time users, not a
// failure.
var ErrProfileNotFound = errors.New("profile not found")

// Profile is a stored user profile, keyed by the identity provider's
// subject id.
type Profile struct {
	SubjectID   string    `json:"subject_id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name,omitempty"`
	Role        string    `json:"role,omitempty"`
	DateOfBirth string    `json:"date_of_birth,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Address     string    `json:"address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store is the profile store. Get returns ErrProfileNotFound for unknown
// subjects; Upsert inserts when absent and otherwise leaves the stored
// profile untouched, so a late minimal insert never clobbers a profile
// the user has since filled in.
type Store interface {
	Get(ctx context.Context, subjectID string) (*Profile, error)
	Upsert(ctx context.Context, profile Profile) error
}
