package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"forecast.kathykuohome.com/internal/ids"
)

var _ UserStore = (*PGUserStore)(nil)

const userColumns = `id, email, name, role, password_hash, department_id, created_at`

// PGUserStore implements UserStore using PostgreSQL.
type PGUserStore struct {
	db *sql.DB
}

func NewPGUserStore(db *sql.DB) *PGUserStore {
	return &PGUserStore{db: db}
}

func (s *PGUserStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = DefaultRole
	}
	err := s.db.QueryRowContext(ctx,
		`insert into users(id, email, name, role, password_hash, department_id)
		 values($1,$2,$3,$4,$5,$6) returning created_at`,
		u.ID, u.Email, u.Name, string(u.Role), u.PasswordHash, u.DepartmentID,
	).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PGUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, `select `+userColumns+` from users where id=$1`, id)
}

func (s *PGUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, `select `+userColumns+` from users where email=$1`, NormalizeEmail(email))
}

func (s *PGUserStore) List(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `select `+userColumns+` from users order by name asc`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *PGUserStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash=$2, password_changed_at=now() where id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectOneRow(res)
}

func (s *PGUserStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectOneRow(res)
}

func (s *PGUserStore) findOne(ctx context.Context, query string, arg any) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u    User
		role string
		dept sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &dept, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = ParseRole(role)
	if dept.Valid {
		u.DepartmentID = &dept.String
	}
	return &u, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
