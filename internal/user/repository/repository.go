package repository

import (
	"context"
	"errors"

	"token-authority/internal/user/domain"
)

// ErrDuplicateEmployee is returned when a create collides with an existing
// employee id.
var ErrDuplicateEmployee = errors.New("employee id already registered")

// SearchFilter narrows a paged employee search. Empty fields are ignored.
type SearchFilter struct {
	Name       string
	Email      string
	EmployeeID string
	Page       int
	Size       int
}

// Repository is the profile-store boundary. FindByEmployeeID is the contract
// the token authority core depends on; the remaining methods back the
// administrative surface.
type Repository interface {
	// FindByEmployeeID returns the employee for the given principal id, or
	// nil if not found. An error means a store failure, not a missing row.
	FindByEmployeeID(ctx context.Context, employeeID string) (*domain.Employee, error)
	Create(ctx context.Context, e *domain.Employee) error
	Update(ctx context.Context, e *domain.Employee) error
	Delete(ctx context.Context, employeeID string) error
	UpdatePassword(ctx context.Context, employeeID, passwordHash string) error
	// Search returns a page of employees plus the total match count.
	Search(ctx context.Context, f SearchFilter) ([]domain.Employee, int, error)
	// ListIDsByScopeAndShift returns the row ids of active employees in the
	// given scope working the given shift; used by the roster consumer.
	ListIDsByScopeAndShift(ctx context.Context, scope, shift string) ([]string, error)
}
