package models

import "fmt"

// Role is the closed set of actor roles in the approval pipeline. Core
// operations always receive an explicit Actor; the engine never reads role
// information from ambient state.
type Role string

const (
	RoleDataEntry  Role = "data_entry"
	RoleReviewer   Role = "reviewer"
	RoleCompliance Role = "compliance"
	// RoleSystem performs automatic transitions (quarantine partitioning).
	// It is never accepted from the HTTP boundary.
	RoleSystem Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleDataEntry, RoleReviewer, RoleCompliance, RoleSystem:
		return true
	}
	return false
}

// ParseRole translates a role string from the auth layer into a Role. Legacy
// clients send the historical numeric codes, so those are accepted here as a
// boundary adapter; everything past this function works with named roles.
func ParseRole(s string) (Role, error) {
	switch s {
	case "1", string(RoleDataEntry):
		return RoleDataEntry, nil
	case "2", string(RoleReviewer):
		return RoleReviewer, nil
	case "3", string(RoleCompliance):
		return RoleCompliance, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Actor identifies who is performing a core operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// SystemActor is the actor recorded for automatic transitions.
func SystemActor() Actor {
	return Actor{ID: "system", Role: RoleSystem}
}
