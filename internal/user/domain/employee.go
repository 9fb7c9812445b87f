package domain

import (
	"errors"
	"time"
)

// Role is an employee's platform role.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Employee is the profile record stored in Postgres. EmployeeID is the
// opaque, immutable principal identifier every token and session is bound
// to; it is never regenerated.
type Employee struct {
	ID           string
	EmployeeID   string
	PasswordHash string
	Name         string
	Email        string
	Gender       string
	Department   string
	Position     string
	Role         Role
	Scope        string
	Shift        string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CreatedBy    string
	UpdatedBy    string
}

// Validate checks required fields before persistence.
func (e *Employee) Validate() error {
	if e.ID == "" {
		return errors.New("employee: id is required")
	}
	if e.EmployeeID == "" {
		return errors.New("employee: employee id is required")
	}
	if e.PasswordHash == "" {
		return errors.New("employee: password hash is required")
	}
	if !e.Role.Valid() {
		return errors.New("employee: unknown role")
	}
	return nil
}
