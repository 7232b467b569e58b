package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"forecast.kathykuohome.com/internal/ids"
)

const pgErrForeignKeyViolation = "23503"

// Kinds of monthly figures.
const (
	EntryActual   = "actual"
	EntryForecast = "forecast"
)

// ErrUnknownDepartment is returned when a row points at a department that
// does not exist.
var ErrUnknownDepartment = errors.New("pg: unknown department")

// Entry is one department's figures for a month, either actual or forecast.
type Entry struct {
	ID               string    `json:"id"`
	DepartmentID     string    `json:"departmentId"`
	Year             int       `json:"year"`
	Month            int       `json:"month"`
	Type             string    `json:"type"`
	GrossBookedSales float64   `json:"grossBookedSales"`
	GMPercent        float64   `json:"gmPercent"`
	CPPercent        float64   `json:"cpPercent"`
	UpdatedBy        string    `json:"updatedBy"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Filter narrows entry and annotation listings. Zero fields match everything.
type Filter struct {
	DepartmentID string
	Year         int
}

func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.DepartmentID != "" {
		args = append(args, f.DepartmentID)
		conds = append(conds, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if f.Year != 0 {
		args = append(args, f.Year)
		conds = append(conds, fmt.Sprintf("year=$%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " where " + strings.Join(conds, " and "), args
}

func (s *Store) ListEntries(ctx context.Context, f Filter) ([]Entry, error) {
	where, args := f.where()
	rows, err := s.db.QueryContext(ctx, `
		select id, department_id, year, month, type,
		       gross_booked_sales, gm_percent, cp_percent, updated_by, updated_at
		from monthly_entries`+where+`
		order by year asc, month asc`, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.DepartmentID, &e.Year, &e.Month, &e.Type,
			&e.GrossBookedSales, &e.GMPercent, &e.CPPercent, &e.UpdatedBy, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertEntries writes every entry keyed by department, year, month and type
// in one transaction. updatedBy is stamped on each row.
func (s *Store) UpsertEntries(ctx context.Context, entries []Entry, updatedBy string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			insert into monthly_entries(id, department_id, year, month, type,
			                            gross_booked_sales, gm_percent, cp_percent, updated_by)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			on conflict (department_id, year, month, type) do update set
			    gross_booked_sales = excluded.gross_booked_sales,
			    gm_percent         = excluded.gm_percent,
			    cp_percent         = excluded.cp_percent,
			    updated_by         = excluded.updated_by,
			    updated_at         = now()
		`, ids.New(), e.DepartmentID, e.Year, e.Month, e.Type,
			e.GrossBookedSales, e.GMPercent, e.CPPercent, updatedBy)
		if err != nil {
			if isForeignKeyViolation(err) {
				return 0, ErrUnknownDepartment
			}
			return 0, fmt.Errorf("upsert entry %s %d-%02d %s: %w", e.DepartmentID, e.Year, e.Month, e.Type, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrForeignKeyViolation
}
