package events

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"eventcal-backend/internal/common"
	"eventcal-backend/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func ts(h, m int) time.Time {
	return time.Date(2025, 6, 1, h, m, 0, 0, time.UTC)
}

func TestAnyOverlapping_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS \(\s*SELECT 1 FROM events\s*WHERE owner_id = \$1 AND start_time < \$3 AND end_time > \$2\s*\)`).
		WithArgs("u1", ts(10, 0), ts(11, 0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	overlaps, err := repo.AnyOverlapping(context.Background(), "u1", ts(10, 0), ts(11, 0), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !overlaps {
		t.Fatal("expected overlap to be reported")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAnyOverlapping_ExcludesEventID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS \(\s*SELECT 1 FROM events\s*WHERE owner_id = \$1 AND id <> \$4 AND start_time < \$3 AND end_time > \$2\s*\)`).
		WithArgs("u1", ts(10, 0), ts(11, 0), "e1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	overlaps, err := repo.AnyOverlapping(context.Background(), "u1", ts(10, 0), ts(11, 0), "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overlaps {
		t.Fatal("expected no overlap")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM events WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetByIDForUpdate_LocksRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "title", "description", "start_time", "end_time", "location", "is_recurring", "recurrence_pattern", "owner_id",
	}).AddRow("e1", "Standup", "", ts(10, 0), ts(11, 0), "", false, "", "u1")

	mock.ExpectQuery(`SELECT .* FROM events WHERE id = \$1 FOR UPDATE`).
		WithArgs("e1").
		WillReturnRows(rows)

	e, err := repo.GetByIDForUpdate(context.Background(), "e1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Title != "Standup" || e.OwnerID != "u1" {
		t.Fatalf("unexpected event: %+v", e)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM events WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDelete_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM events WHERE id = \$1`).
		WithArgs("e1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "e1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreate_AssignsID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO events`).
		WithArgs(sqlmock.AnyArg(), "Standup", "", ts(10, 0), ts(11, 0), "", false, "", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	e, err := repo.Create(context.Background(), &models.Event{
		Title:     "Standup",
		StartTime: ts(10, 0),
		EndTime:   ts(11, 0),
		OwnerID:   "u1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID == "" {
		t.Fatal("expected generated event id")
	}
}

func TestListForUser_OrderAndPaging(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "title", "description", "start_time", "end_time", "location", "is_recurring", "recurrence_pattern", "owner_id",
	}).
		AddRow("e1", "a", "", ts(9, 0), ts(10, 0), "", false, "", "u1").
		AddRow("e2", "b", "", ts(10, 0), ts(11, 0), "", false, "", "u2")

	mock.ExpectQuery(`JOIN permissions p ON p\.event_id = e\.id\s*WHERE p\.user_id = \$1\s*ORDER BY e\.start_time\s*OFFSET \$2 LIMIT \$3`).
		WithArgs("u1", 0, 20).
		WillReturnRows(rows)

	list, err := repo.ListForUser(context.Background(), "u1", 0, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].ID != "e1" || list[1].ID != "e2" {
		t.Fatalf("unexpected result: %+v", list)
	}
}

func TestListForUser_RowErrorWrapped(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "title", "description", "start_time", "end_time", "location", "is_recurring", "recurrence_pattern", "owner_id",
	}).
		AddRow("e1", "a", "", ts(9, 0), ts(10, 0), "", false, "", "u1").
		RowError(0, errors.New("conn reset"))

	mock.ExpectQuery(`WHERE p\.user_id = \$1`).
		WithArgs("u1", 0, 20).
		WillReturnRows(rows)

	_, err := repo.ListForUser(context.Background(), "u1", 0, 20)
	if err == nil || !regexp.MustCompile(`db error: .*conn reset`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE events`).
		WillReturnError(errors.New("db is down"))

	err := repo.Update(context.Background(), &models.Event{ID: "e1", StartTime: ts(10, 0), EndTime: ts(11, 0)})
	if err == nil || !regexp.MustCompile(`db error: .*db is down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
