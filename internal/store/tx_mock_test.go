package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/nao1215/repocrawl/internal/model"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "sqlite3")), mock
}

func TestTx_CommitFailure(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)
	ctx := context.Background()
	diskErr := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO repositories").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM contributors").WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO contributors").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO processed_repos").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(diskErr)

	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if err := tx.UpsertRepository(ctx, testRepo(1, "a")); err != nil {
		t.Fatalf("UpsertRepository() error: %v", err)
	}
	if err := tx.ReplaceContributors(ctx, 1, []model.Contributor{{Login: "x", Contributions: 1}}); err != nil {
		t.Fatalf("ReplaceContributors() error: %v", err)
	}
	if err := tx.MarkProcessed(ctx, model.Marker{RepoID: 1, Category: "go", Sort: "stars"}); err != nil {
		t.Fatalf("MarkProcessed() error: %v", err)
	}

	err = tx.Commit()
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if perr.Op != "commit" || !errors.Is(err, diskErr) {
		t.Errorf("unexpected error %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Errorf("Rollback after failed Commit should be a no-op, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTx_WriteFailure(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO repositories").WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	err = tx.UpsertRepository(ctx, testRepo(1, "a"))
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Op != "upsert repository" {
		t.Fatalf("expected upsert PersistenceError, got %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStore_BeginFailure(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err := st.Begin(context.Background())
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.Op != "begin" {
		t.Errorf("expected begin PersistenceError, got %v", err)
	}
}
