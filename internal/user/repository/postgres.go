package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"token-authority/internal/db"
	"token-authority/internal/user/domain"
)

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

const employeeColumns = `id, employee_id, password_hash, name, email, gender,
department, position, role, scope, shift, active, created_at, updated_at,
created_by, updated_by`

// PostgresRepository implements Repository on a pgx pool.
type PostgresRepository struct {
	db *db.DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository returns an employee repository backed by the given pool.
func NewPostgresRepository(d *db.DB) *PostgresRepository {
	return &PostgresRepository{db: d}
}

func scanEmployee(row pgx.Row, e *domain.Employee) error {
	return row.Scan(
		&e.ID, &e.EmployeeID, &e.PasswordHash, &e.Name, &e.Email, &e.Gender,
		&e.Department, &e.Position, &e.Role, &e.Scope, &e.Shift, &e.Active,
		&e.CreatedAt, &e.UpdatedAt, &e.CreatedBy, &e.UpdatedBy,
	)
}

// FindByEmployeeID returns the employee for the given principal id, or nil
// when no such employee exists.
func (r *PostgresRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	q := `SELECT ` + employeeColumns + ` FROM employees WHERE employee_id = $1`
	var e domain.Employee
	if err := scanEmployee(r.db.Pool.QueryRow(ctx, q, employeeID), &e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find employee: %w", err)
	}
	return &e, nil
}

// Create persists a new employee. The caller assigns the row id.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Employee) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	q := `INSERT INTO employees (id, employee_id, password_hash, name, email, gender,
department, position, role, scope, shift, active, created_at, updated_at,
created_by, updated_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.db.Pool.Exec(ctx, q,
		e.ID, e.EmployeeID, e.PasswordHash, e.Name, e.Email, e.Gender,
		e.Department, e.Position, e.Role, e.Scope, e.Shift, e.Active,
		e.CreatedAt, e.UpdatedAt, e.CreatedBy, e.UpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateEmployee
		}
		return fmt.Errorf("insert employee: %w", err)
	}
	return nil
}

// Update rewrites the employee's mutable profile fields. The password hash is
// not touched here; use UpdatePassword.
func (r *PostgresRepository) Update(ctx context.Context, e *domain.Employee) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	q := `UPDATE employees
SET name = $2, email = $3, gender = $4, department = $5, position = $6,
    role = $7, scope = $8, shift = $9, active = $10, updated_at = $11,
    updated_by = $12
WHERE employee_id = $1`
	_, err := r.db.Pool.Exec(ctx, q,
		e.EmployeeID, e.Name, e.Email, e.Gender, e.Department, e.Position,
		e.Role, e.Scope, e.Shift, e.Active, e.UpdatedAt, e.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	return nil
}

// Delete removes the employee row. Deleting an absent employee is a no-op.
func (r *PostgresRepository) Delete(ctx context.Context, employeeID string) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM employees WHERE employee_id = $1`, employeeID); err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored hash for the given employee.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, employeeID, passwordHash string) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	q := `UPDATE employees SET password_hash = $2, updated_at = $3 WHERE employee_id = $1`
	if _, err := r.db.Pool.Exec(ctx, q, employeeID, passwordHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Search returns a page of employees matching the filter plus the total
// match count. Filters are combined with AND; empty filters match everything.
func (r *PostgresRepository) Search(ctx context.Context, f SearchFilter) ([]domain.Employee, int, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if f.Size <= 0 {
		f.Size = 10
	}
	if f.Page < 1 {
		f.Page = 1
	}

	where := ` WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
AND ($2 = '' OR email ILIKE '%' || $2 || '%')
AND ($3 = '' OR employee_id = $3)`

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM employees`+where,
		f.Name, f.Email, f.EmployeeID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}

	q := `SELECT ` + employeeColumns + ` FROM employees` + where +
		` ORDER BY employee_id LIMIT $4 OFFSET $5`
	rows, err := r.db.Pool.Query(ctx, q, f.Name, f.Email, f.EmployeeID, f.Size, (f.Page-1)*f.Size)
	if err != nil {
		return nil, 0, fmt.Errorf("search employees: %w", err)
	}
	defer rows.Close()

	var out []domain.Employee
	for rows.Next() {
		var e domain.Employee
		if err := scanEmployee(rows, &e); err != nil {
			return nil, 0, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("search employees: %w", err)
	}
	return out, total, nil
}

// ListIDsByScopeAndShift returns row ids of active employees in scope on shift.
func (r *PostgresRepository) ListIDsByScopeAndShift(ctx context.Context, scope, shift string) ([]string, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	q := `SELECT id FROM employees WHERE active AND scope = $1 AND shift = $2`
	rows, err := r.db.Pool.Query(ctx, q, scope, shift)
	if err != nil {
		return nil, fmt.Errorf("list employees by scope/shift: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan employee id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list employees by scope/shift: %w", err)
	}
	return ids, nil
}
