package services

import "comparador/internal/models"

// Authorizer decides privilege levels. Exactly one username is ever an administrator.
type Authorizer struct {
	adminUsername string
}

// NewAuthorizer creates an Authorizer for the configured administrator username.
func NewAuthorizer(adminUsername string) *Authorizer {
	return &Authorizer{adminUsername: adminUsername}
}

// RoleOf returns the role carried by username.
func (a *Authorizer) RoleOf(username string) models.Role {
	if username != "" && username == a.adminUsername {
		return models.RoleAdmin
	}
	return models.RoleMember
}

// IsAdmin reports whether p may perform administrative actions.
func (a *Authorizer) IsAdmin(p *models.Principal) bool {
	return p != nil && p.Role == models.RoleAdmin && a.RoleOf(p.Username) == models.RoleAdmin
}
