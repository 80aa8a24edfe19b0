package service

import "paf-backend/internal/model"

// RoleGate decides whether an actor's role may act on a step requiring a
// given approver role. It is injected into the workflow engine so richer
// policies (role hierarchies, delegation) can replace the default without
// touching transition logic.
type RoleGate interface {
	Authorize(actorRole, requiredRole model.Role) bool
}

// EqualityGate is the default policy: exact role match.
type EqualityGate struct{}

func (EqualityGate) Authorize(actorRole, requiredRole model.Role) bool {
	return actorRole == requiredRole
}

// HierarchyGate authorizes an actor whose role equals the required role or
// appears in the required role's delegate list. Districts that let a
// superintendent sign in place of a principal configure it here.
type HierarchyGate struct {
	// Delegates maps a required role to the set of roles also allowed to
	// act for it.
	Delegates map[model.Role][]model.Role
}

func (g HierarchyGate) Authorize(actorRole, requiredRole model.Role) bool {
	if actorRole == requiredRole {
		return true
	}
	for _, r := range g.Delegates[requiredRole] {
		if r == actorRole {
			return true
		}
	}
	return false
}
