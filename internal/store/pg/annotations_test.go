package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestListAnnotations(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("from annotations where year=$1")).
		WithArgs(2025).
		WillReturnRows(sqlmock.NewRows([]string{"id", "department_id", "year", "month", "text", "author", "author_id", "created_at"}).
			AddRow("a2", "d1", 2025, 4, "promo moved", "Ed Editor", "editor-1", now).
			AddRow("a1", "d1", 2025, 3, "late receipts", "Ada Admin", "admin-1", now.Add(-time.Hour)))

	got, err := store.ListAnnotations(context.Background(), Filter{Year: 2025})
	if err != nil {
		t.Fatalf("ListAnnotations: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a2" || got[1].Author != "Ada Admin" {
		t.Fatalf("unexpected annotations %+v", got)
	}
}

func TestCreateAnnotation(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("insert into annotations(id, department_id, year, month, text, author, author_id)")).
		WithArgs(sqlmock.AnyArg(), "d1", 2025, 3, "late receipts", "Ed Editor", "editor-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectQuery("insert into annotations").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})

	a, err := store.CreateAnnotation(context.Background(), Annotation{
		DepartmentID: "d1", Year: 2025, Month: 3, Text: "  late receipts ", Author: "Ed Editor", AuthorID: "editor-1",
	})
	if err != nil {
		t.Fatalf("CreateAnnotation: %v", err)
	}
	if a.ID == "" || a.Text != "late receipts" || a.CreatedAt.IsZero() {
		t.Fatalf("unexpected annotation %+v", a)
	}

	_, err = store.CreateAnnotation(context.Background(), Annotation{DepartmentID: "gone", Year: 2025, Month: 1, Text: "x"})
	if !errors.Is(err, ErrUnknownDepartment) {
		t.Fatalf("expected ErrUnknownDepartment, got %v", err)
	}
}

func TestDeleteAnnotation(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("delete from annotations where id=$1")).
		WithArgs("a1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("delete from annotations where id=$1")).
		WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteAnnotation(context.Background(), "a1"); err != nil {
		t.Fatalf("DeleteAnnotation: %v", err)
	}
	if err := store.DeleteAnnotation(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
