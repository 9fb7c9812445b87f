// Package service implements the administrative employee operations behind
// the /users and /auth/register surfaces. The authentication hot path does
// not go through this package; it reads the repository directly.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"token-authority/internal/profile"
	"token-authority/internal/security"
	"token-authority/internal/user/domain"
	"token-authority/internal/user/repository"
)

// Sentinel errors for the user service; the handler maps them to HTTP codes.
var (
	ErrNotFound      = errors.New("employee not found")
	ErrWrongPassword = errors.New("current password does not match")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDuplicate     = repository.ErrDuplicateEmployee
)

// RegisterInput carries the fields an admin supplies when creating an
// employee. Role defaults to USER when empty.
type RegisterInput struct {
	EmployeeID string
	Password   string
	Name       string
	Email      string
	Gender     string
	Department string
	Position   string
	Role       string
	Scope      string
	Shift      string
	CreatedBy  string
}

// UpdateInput is a partial update; empty fields are left unchanged. Active
// is a pointer so "deactivate" is distinguishable from "not supplied".
type UpdateInput struct {
	EmployeeID string
	Name       string
	Email      string
	Gender     string
	Department string
	Position   string
	Role       string
	Scope      string
	Shift      string
	Active     *bool
	UpdatedBy  string
}

// Service coordinates the employee repository, the password hasher and the
// profile cache. Cache writes here are invalidations only; the login path
// repopulates snapshots.
type Service struct {
	repo   repository.Repository
	hasher *security.Hasher
	cache  *profile.Cache
	log    *zap.Logger
}

func NewService(repo repository.Repository, hasher *security.Hasher, cache *profile.Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, hasher: hasher, cache: cache, log: log}
}

// Register creates an employee with a bcrypt-hashed password. The employee
// id is the immutable principal identifier; the row id is generated here.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.Employee, error) {
	employeeID := strings.TrimSpace(in.EmployeeID)
	if employeeID == "" {
		return nil, errors.Join(ErrInvalidInput, errors.New("employee id is required"))
	}
	if len(in.Password) < 8 {
		return nil, errors.Join(ErrInvalidInput, errors.New("password must be at least 8 characters"))
	}
	role := domain.Role(strings.ToUpper(strings.TrimSpace(in.Role)))
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, errors.Join(ErrInvalidInput, errors.New("unknown role"))
	}
	shift := strings.TrimSpace(in.Shift)
	if shift == "" {
		shift = "A"
	}

	hash, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	emp := &domain.Employee{
		ID:           uuid.New().String(),
		EmployeeID:   employeeID,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(strings.ToLower(in.Email)),
		Gender:       in.Gender,
		Department:   in.Department,
		Position:     in.Position,
		Role:         role,
		Scope:        in.Scope,
		Shift:        shift,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    in.CreatedBy,
		UpdatedBy:    in.CreatedBy,
	}
	if err := emp.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidInput, err)
	}
	if err := s.repo.Create(ctx, emp); err != nil {
		return nil, err
	}
	s.log.Info("employee registered",
		zap.String("employee_id", emp.EmployeeID),
		zap.String("role", string(emp.Role)))
	return emp, nil
}

// Update applies the non-empty fields of in to the stored employee and
// invalidates the cached profile snapshot.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*domain.Employee, error) {
	emp, err := s.repo.FindByEmployeeID(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, ErrNotFound
	}

	if in.Name != "" {
		emp.Name = strings.TrimSpace(in.Name)
	}
	if in.Email != "" {
		emp.Email = strings.TrimSpace(strings.ToLower(in.Email))
	}
	if in.Gender != "" {
		emp.Gender = in.Gender
	}
	if in.Department != "" {
		emp.Department = in.Department
	}
	if in.Position != "" {
		emp.Position = in.Position
	}
	if in.Role != "" {
		role := domain.Role(strings.ToUpper(in.Role))
		if !role.Valid() {
			return nil, errors.Join(ErrInvalidInput, errors.New("unknown role"))
		}
		emp.Role = role
	}
	if in.Scope != "" {
		emp.Scope = in.Scope
	}
	if in.Shift != "" {
		emp.Shift = in.Shift
	}
	if in.Active != nil {
		emp.Active = *in.Active
	}
	emp.UpdatedAt = time.Now().UTC()
	emp.UpdatedBy = in.UpdatedBy

	if err := s.repo.Update(ctx, emp); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, emp.EmployeeID); err != nil {
			s.log.Warn("profile cache invalidation failed",
				zap.String("employee_id", emp.EmployeeID), zap.Error(err))
		}
	}
	return emp, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *Service) ChangePassword(ctx context.Context, employeeID, current, next string) error {
	if len(next) < 8 {
		return errors.Join(ErrInvalidInput, errors.New("password must be at least 8 characters"))
	}
	emp, err := s.repo.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		return err
	}
	if emp == nil {
		return ErrNotFound
	}
	if err := s.hasher.Compare(emp.PasswordHash, []byte(current)); err != nil {
		return ErrWrongPassword
	}
	hash, err := s.hasher.Hash([]byte(next))
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, employeeID, hash); err != nil {
		return err
	}
	s.log.Info("password changed", zap.String("employee_id", employeeID))
	return nil
}

// Delete removes the employee record and drops the cached snapshot. The
// active session, if any, runs out on its own TTL.
func (s *Service) Delete(ctx context.Context, employeeID string) error {
	emp, err := s.repo.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		return err
	}
	if emp == nil {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, employeeID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, employeeID); err != nil {
			s.log.Warn("profile cache invalidation failed",
				zap.String("employee_id", employeeID), zap.Error(err))
		}
	}
	s.log.Info("employee deleted", zap.String("employee_id", employeeID))
	return nil
}

// Search returns a page of employees and the total match count. Page and
// size are clamped to sane bounds.
func (s *Service) Search(ctx context.Context, f repository.SearchFilter) ([]domain.Employee, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size < 1 || f.Size > 100 {
		f.Size = 20
	}
	return s.repo.Search(ctx, f)
}
