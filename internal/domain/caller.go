package domain

import "github.com/google/uuid"

type Role int

const (
	RoleUnlinked Role = iota
	RoleParent
	RoleTherapist
)

func (r Role) String() string {
	switch r {
	case RoleParent:
		return "parent"
	case RoleTherapist:
		return "therapist"
	default:
		return "unlinked"
	}
}

// Caller is the authenticated principal of a request, resolved once by
// the auth middleware via two independent profile lookups. A user may
// hold both profiles; the therapist profile takes precedence wherever a
// single role has to be picked, matching how the booking rules read.
type Caller struct {
	UserID    uuid.UUID
	Therapist *Therapist
	Parent    *Parent
}

func (c Caller) Role() Role {
	switch {
	case c.Therapist != nil:
		return RoleTherapist
	case c.Parent != nil:
		return RoleParent
	default:
		return RoleUnlinked
	}
}
