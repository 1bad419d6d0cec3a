package services

import "context"

// RoleStore is the role collaborator: admission reads role sets from it and
// the scoring step grants or revokes the verification roles through it.
type RoleStore interface {
	// Roles returns the user's role names, lowercase.
	Roles(ctx context.Context, userID string) ([]string, error)
	AddRole(ctx context.Context, userID, role string) error
	RemoveRole(ctx context.Context, userID, role string) error
}

// RoleNames configures the role names the verification flow cares about.
type RoleNames struct {
	Verified   string
	Unverified string
	Moderator  string
}

// DefaultRoleNames returns the conventional community role names.
func DefaultRoleNames() RoleNames {
	return RoleNames{Verified: "verified", Unverified: "unverified", Moderator: "mod"}
}
