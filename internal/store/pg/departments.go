package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"forecast.kathykuohome.com/internal/ids"
)

const (
	pgErrUniqueViolation = "23505"

	// DefaultCategory is applied when a department is created without one.
	DefaultCategory = "merch"
)

var (
	ErrNotFound      = errors.New("pg: not found")
	ErrAlreadyExists = errors.New("pg: already exists")
)

// DefaultDepartments is the catalogue applied by Seed.
var DefaultDepartments = []string{
	"Art",
	"Bedding & Bath",
	"Decor",
	"Dining & Bar",
	"Furniture",
	"Kids Shop",
	"Lighting",
	"Mirrors",
	"Outdoor",
	"Rugs",
	"Upholstery",
	"Wallpaper",
}

// Department is a merchandising group users can belong to.
type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.db.QueryContext(ctx, `select id, name, category, created_at from departments order by name asc`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	out := []Department{}
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Category, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CreateDepartment(ctx context.Context, name, category string) (Department, error) {
	d := Department{
		ID:       ids.New(),
		Name:     strings.TrimSpace(name),
		Category: strings.TrimSpace(category),
	}
	if d.Category == "" {
		d.Category = DefaultCategory
	}
	err := s.db.QueryRowContext(ctx,
		`insert into departments(id, name, category) values($1,$2,$3) returning created_at`,
		d.ID, d.Name, d.Category,
	).Scan(&d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return Department{}, ErrAlreadyExists
		}
		return Department{}, fmt.Errorf("insert department: %w", err)
	}
	return d, nil
}

// DeleteDepartment removes a department. Users pointing at it keep their
// account with department_id set to null by the foreign key.
func (s *Store) DeleteDepartment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from departments where id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedDepartments inserts any of names not yet present, in one transaction.
// It returns how many rows were created.
func (s *Store) SeedDepartments(ctx context.Context, names []string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	created := 0
	for _, name := range names {
		res, err := tx.ExecContext(ctx, `
			insert into departments(id, name, category)
			values ($1,$2,$3)
			on conflict (name) do nothing
		`, ids.New(), name, DefaultCategory)
		if err != nil {
			return 0, fmt.Errorf("seed department %q: %w", name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			created++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return created, nil
}

// DepartmentExists is used to validate user department assignments.
func (s *Store) DepartmentExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `select 1 from departments where id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
