package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadops/timetable-api/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleRepositoryReplaceForConfig(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_schedules WHERE config_id = $1")).
		WithArgs("cfg-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO class_schedules").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO class_schedules").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	schedules := []models.ClassSchedule{
		{SubjectID: "sub-1", StaffID: "st-1", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", Year: 2, Semester: 3, Section: models.DefaultSection},
		{SubjectID: "sub-2", StaffID: "st-2", DayOfWeek: "Monday", StartTime: "10:00", EndTime: "11:00", Year: 2, Semester: 3, Section: models.DefaultSection},
	}
	require.NoError(t, repo.ReplaceForConfig(context.Background(), "cfg-1", schedules))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceForConfigEmpty(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_schedules WHERE config_id = $1")).
		WithArgs("cfg-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceForConfig(context.Background(), "cfg-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListEntries(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "config_id", "subject_id", "staff_id", "day_of_week", "start_time", "end_time",
		"year", "semester", "section", "room", "created_at",
		"subject_code", "subject_name", "staff_name",
	}).AddRow("p1", "cfg-1", "sub-1", "st-1", "Monday", "09:00", "10:00", 2, 3, "A", nil, time.Now(), "CS101", "Data Structures", "Dr. Rao")

	mock.ExpectQuery("FROM class_schedules cs").
		WithArgs("cfg-1", 2).
		WillReturnRows(rows)

	entries, err := repo.ListEntries(context.Background(), models.ScheduleFilter{ConfigID: "cfg-1", Year: 2})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "CS101", entries[0].SubjectCode)
	assert.Equal(t, "Dr. Rao", entries[0].StaffName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListForConfig(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "config_id", "subject_id", "staff_id", "day_of_week", "start_time", "end_time", "year", "semester", "section", "room", "created_at"}).
		AddRow("p1", "cfg-1", "sub-1", "st-1", "Monday", "09:00", "10:00", 2, 3, "A", nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM class_schedules WHERE config_id = $1")).
		WithArgs("cfg-1").
		WillReturnRows(rows)

	list, err := repo.ListForConfig(context.Background(), "cfg-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Monday", list[0].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}
