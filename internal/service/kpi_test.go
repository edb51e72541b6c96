package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"equilibra/internal/snowflake"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		DriverName:           "postgres",
		Conn:                 db,
		PreferSimpleProtocol: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	return gormDB, mock
}

func newTestKPI(t *testing.T) (*KPI, sqlmock.Sqlmock) {
	gormDB, mock := newMockDB(t)
	ids, err := snowflake.New(1)
	require.NoError(t, err)
	return NewKPI(gormDB, ids), mock
}

func TestKPI_ApplyCompletionScore(t *testing.T) {
	kpi, mock := newTestKPI(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "tasks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "bucket_id", "lead_assignee_id", "weight"}).
			AddRow(int64(10), int64(1), int64(20), int64(500), 3))
	mock.ExpectQuery(`INSERT INTO "score_events"`).
		WithArgs(sqlmock.AnyArg(), int64(10), "COMPLETION", "delivery-1", int64(500), 3.0, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT \* FROM "buckets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "state"}).
			AddRow(int64(22), int64(1), "COMPLETED"))
	mock.ExpectExec(`UPDATE "tasks" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "project_member" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := kpi.ApplyCompletionScore(context.Background(), 10, "delivery-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKPI_ApplyCompletionScore_DuplicateDelivery(t *testing.T) {
	kpi, mock := newTestKPI(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "tasks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "bucket_id", "lead_assignee_id", "weight"}).
			AddRow(int64(10), int64(1), int64(20), int64(500), 3))
	mock.ExpectQuery(`INSERT INTO "score_events"`).
		WillReturnError(gorm.ErrDuplicatedKey)
	mock.ExpectRollback()

	err := kpi.ApplyCompletionScore(context.Background(), 10, "delivery-1")

	assert.NoError(t, err, "a redelivered event must be a silent no-op")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKPI_ApplyCompletionScore_NoAssignee(t *testing.T) {
	kpi, mock := newTestKPI(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "tasks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "bucket_id", "lead_assignee_id", "weight"}).
			AddRow(int64(10), int64(1), int64(20), nil, 3))
	mock.ExpectQuery(`INSERT INTO "score_events"`).
		WithArgs(sqlmock.AnyArg(), int64(10), "COMPLETION", "delivery-2", nil, 0.0, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT \* FROM "buckets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "state"}).
			AddRow(int64(22), int64(1), "COMPLETED"))
	mock.ExpectExec(`UPDATE "tasks" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := kpi.ApplyCompletionScore(context.Background(), 10, "delivery-2")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKPI_ApplyReviewScore(t *testing.T) {
	kpi, mock := newTestKPI(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "gh_username"}).
			AddRow(int64(600), "bob"))
	mock.ExpectQuery(`SELECT \* FROM "tasks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "weight"}).
			AddRow(int64(10), int64(1), 5))
	mock.ExpectQuery(`INSERT INTO "score_events"`).
		WithArgs(sqlmock.AnyArg(), int64(10), "REVIEW", "delivery-3", int64(600), 1.0, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec(`UPDATE "project_member" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := kpi.ApplyReviewScore(context.Background(), 10, "bob", "alice", "delivery-3")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKPI_ApplyReviewScore_SelfReview(t *testing.T) {
	kpi, mock := newTestKPI(t)

	err := kpi.ApplyReviewScore(context.Background(), 10, "alice", "alice", "delivery-4")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "self-review must not touch the database")
}

func TestKPI_ApplyReviewScore_UnknownReviewer(t *testing.T) {
	kpi, mock := newTestKPI(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "gh_username"}))
	mock.ExpectRollback()

	err := kpi.ApplyReviewScore(context.Background(), 10, "ghost", "alice", "delivery-5")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKPI_ApplyReviewScore_NotAMember(t *testing.T) {
	kpi, mock := newTestKPI(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "gh_username"}).
			AddRow(int64(600), "bob"))
	mock.ExpectQuery(`SELECT \* FROM "tasks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "weight"}).
			AddRow(int64(10), int64(1), 5))
	mock.ExpectQuery(`INSERT INTO "score_events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec(`UPDATE "project_member" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := kpi.ApplyReviewScore(context.Background(), 10, "bob", "alice", "delivery-6")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
