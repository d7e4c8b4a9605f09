// Package access evaluates role and scope predicates for the acting user.
package access

import (
	"context"
	"slices"

	"plantops/internal/storage"
)

const (
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// Actor is the authenticated identity a request runs as.
type Actor struct {
	ID           int64   `json:"id"`
	Login        string  `json:"login"`
	Role         string  `json:"role"`
	CompanyIDs   []int64 `json:"company_ids"`
	DepartmentID int64   `json:"department_id,omitempty"`
}

func FromUser(u storage.User) Actor {
	return Actor{
		ID:           u.ID,
		Login:        u.Login,
		Role:         u.Role,
		CompanyIDs:   u.CompanyIDs,
		DepartmentID: u.DepartmentID,
	}
}

// Privileged reports whether the actor may bypass workflow and scope restrictions.
func (a Actor) Privileged() bool {
	return a.Role == RoleAdmin
}

// AllowedCompany reports whether the actor works for company id.
func (a Actor) AllowedCompany(id int64) bool {
	if a.Privileged() {
		return true
	}
	return slices.Contains(a.CompanyIDs, id)
}

// CanWrite reports whether the actor may create or change records in scope s.
// A department-bound manager is limited to that department.
func (a Actor) CanWrite(s storage.Scope) bool {
	if a.Privileged() {
		return true
	}
	if s.CompanyID == 0 || !a.AllowedCompany(s.CompanyID) {
		return false
	}
	if a.DepartmentID != 0 && s.DepartmentID != 0 && s.DepartmentID != a.DepartmentID {
		return false
	}
	return true
}

// CanRead is the row-level filter for reports: managers see their companies, admins everything.
func (a Actor) CanRead(s storage.Scope) bool {
	return a.Privileged() || a.AllowedCompany(s.CompanyID)
}

// Owns reports whether the actor manages the report or is scoped to it.
func (a Actor) Owns(r storage.Report) bool {
	if a.Privileged() {
		return true
	}
	if r.ManagerID == a.ID {
		return true
	}
	return a.CanWrite(r.Scope)
}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// ActorFrom returns the actor stored by the authentication middleware.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}
