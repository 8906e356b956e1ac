package user

import (
	"github.com/givebridge/authfront/internal/emailutil"
	"github.com/givebridge/authfront/internal/idp"
	"github.com/givebridge/authfront/internal/profile"
)

// RoleDonor is the default role for users without a stored role.
const RoleDonor = "donor"

// DefaultDisplayName is the last-resort display name when neither claims
// nor the email yield one.
const DefaultDisplayName = "Donor"

// Record is the application-facing user shape. Basic records are derived
// from session claims alone; full records additionally carry profile-store
// attributes.
type Record struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Address     string `json:"address,omitempty"`
}

// Basic derives a Record from session claims only. It is pure: no I/O,
// identical output for identical sessions. Display name falls back
// through provider full name, provider name, the email local-part, and
// finally DefaultDisplayName.
func Basic(session *idp.Session) Record {
	name := session.MetadataClaim("user_metadata", "full_name")
	if name == "" {
		name = session.MetadataClaim("user_metadata", "name")
	}
	if name == "" {
		name = emailutil.LocalPart(session.Email)
	}
	if name == "" {
		name = DefaultDisplayName
	}

	role := session.MetadataClaim("user_metadata", "role")
	if role == "" {
		role = RoleDonor
	}

	return Record{
		ID:          session.SubjectID,
		Email:       session.Email,
		DisplayName: name,
		Role:        role,
	}
}

// MergeProfile overlays stored profile fields on the record. Stored full
// name outranks every claims-derived display name.
func (r Record) MergeProfile(p *profile.Profile) Record {
	if p == nil {
		return r
	}
	if p.FullName != "" {
		r.DisplayName = p.FullName
	}
	if p.Role != "" {
		r.Role = p.Role
	}
	if p.DateOfBirth != "" {
		r.DateOfBirth = p.DateOfBirth
	}
	if p.PhoneNumber != "" {
		r.PhoneNumber = p.PhoneNumber
	}
	if p.Address != "" {
		r.Address = p.Address
	}
	return r
}
