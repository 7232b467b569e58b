package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"forecast.kathykuohome.com/internal/ids"
)

// Annotation is a note pinned to a department's month.
type Annotation struct {
	ID           string    `json:"id"`
	DepartmentID string    `json:"departmentId"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	Text         string    `json:"text"`
	Author       string    `json:"author"`
	AuthorID     string    `json:"authorId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ListAnnotations returns the newest first.
func (s *Store) ListAnnotations(ctx context.Context, f Filter) ([]Annotation, error) {
	where, args := f.where()
	rows, err := s.db.QueryContext(ctx, `
		select id, department_id, year, month, text, author, author_id, created_at
		from annotations`+where+`
		order by created_at desc`, args...)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	out := []Annotation{}
	for rows.Next() {
		var a Annotation
		if err := rows.Scan(&a.ID, &a.DepartmentID, &a.Year, &a.Month, &a.Text, &a.Author, &a.AuthorID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CreateAnnotation(ctx context.Context, a Annotation) (Annotation, error) {
	a.ID = ids.New()
	a.Text = strings.TrimSpace(a.Text)
	err := s.db.QueryRowContext(ctx,
		`insert into annotations(id, department_id, year, month, text, author, author_id)
		 values($1,$2,$3,$4,$5,$6,$7) returning created_at`,
		a.ID, a.DepartmentID, a.Year, a.Month, a.Text, a.Author, a.AuthorID,
	).Scan(&a.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Annotation{}, ErrUnknownDepartment
		}
		return Annotation{}, fmt.Errorf("insert annotation: %w", err)
	}
	return a, nil
}

func (s *Store) DeleteAnnotation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from annotations where id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete annotation: %w", err)
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
