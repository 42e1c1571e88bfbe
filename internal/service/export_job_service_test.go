package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadops/timetable-api/internal/dto"
	"github.com/acadops/timetable-api/internal/models"
	"github.com/acadops/timetable-api/internal/repository"
	appErrors "github.com/acadops/timetable-api/pkg/errors"
	"github.com/acadops/timetable-api/pkg/jobs"
)

type mockExportStore struct {
	jobs    map[string]*models.ExportJob
	updates []repository.UpdateExportJobParams
}

func newMockExportStore() *mockExportStore {
	return &mockExportStore{jobs: make(map[string]*models.ExportJob)}
}

func (m *mockExportStore) Create(_ context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *mockExportStore) GetByID(_ context.Context, id string) (*models.ExportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (m *mockExportStore) Update(_ context.Context, id string, params repository.UpdateExportJobParams) error {
	m.updates = append(m.updates, params)
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	return nil
}

func (m *mockExportStore) ListQueued(_ context.Context, limit int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range m.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (m *mockExportStore) ListFinishedBefore(context.Context, time.Time, int) ([]models.ExportJob, error) {
	return nil, nil
}

type mockDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockExportGenerator struct {
	result *ExportResult
	err    error
}

func (m *mockExportGenerator) Generate(context.Context, *models.ExportJob) (*ExportResult, error) {
	return m.result, m.err
}

func TestExportJobServiceCreateJobQueues(t *testing.T) {
	store := newMockExportStore()
	dispatcher := &mockDispatcher{}
	svc := NewExportJobService(store, dispatcher, nil, nil, ExportJobServiceConfig{})

	resp, err := svc.CreateJob(context.Background(), dto.ExportRequest{Format: "csv", Year: 2}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, string(models.ExportStatusQueued), resp.Status)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, resp.ID, dispatcher.enqueued[0].ID)

	stored := store.jobs[resp.ID]
	require.NotNil(t, stored)
	assert.Equal(t, models.ExportFormatCSV, stored.Params.Format)
	assert.Equal(t, 2, stored.Params.Year)
	assert.Equal(t, "admin-1", stored.CreatedBy)
}

func TestExportJobServiceCreateJobRejectsFormat(t *testing.T) {
	svc := NewExportJobService(newMockExportStore(), &mockDispatcher{}, nil, nil, ExportJobServiceConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ExportRequest{Format: "xlsx"}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportJobServiceCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	store := newMockExportStore()
	dispatcher := &mockDispatcher{err: errors.New("queue stopped")}
	svc := NewExportJobService(store, dispatcher, nil, nil, ExportJobServiceConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ExportRequest{Format: "pdf"}, "")
	require.Error(t, err)
	require.Len(t, store.jobs, 1)
	for _, job := range store.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestExportJobServiceGetStatusMissing(t *testing.T) {
	svc := NewExportJobService(newMockExportStore(), &mockDispatcher{}, nil, nil, ExportJobServiceConfig{})

	_, err := svc.GetStatus(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportWorkerHandleSuccess(t *testing.T) {
	store := newMockExportStore()
	store.jobs["job-1"] = &models.ExportJob{
		ID:     "job-1",
		Status: models.ExportStatusQueued,
		Params: models.ExportJobParams{Format: models.ExportFormatCSV},
	}
	worker := NewExportWorker(store, &mockExportGenerator{result: &ExportResult{URL: "/api/v1/export/tok"}}, 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)

	job := store.jobs["job-1"]
	assert.Equal(t, models.ExportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/v1/export/tok", *job.ResultURL)
}

func TestExportWorkerHandleRetriesBeforeFailing(t *testing.T) {
	store := newMockExportStore()
	store.jobs["job-1"] = &models.ExportJob{
		ID:     "job-1",
		Status: models.ExportStatusQueued,
		Params: models.ExportJobParams{Format: models.ExportFormatPDF},
	}
	worker := NewExportWorker(store, &mockExportGenerator{err: errors.New("render failed")}, 2, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 0})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusQueued, store.jobs["job-1"].Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusFailed, store.jobs["job-1"].Status)
}

func TestExportJobServiceRecoverPendingJobs(t *testing.T) {
	store := newMockExportStore()
	store.jobs["job-1"] = &models.ExportJob{ID: "job-1", Status: models.ExportStatusQueued}
	store.jobs["job-2"] = &models.ExportJob{ID: "job-2", Status: models.ExportStatusFinished}
	dispatcher := &mockDispatcher{}
	svc := NewExportJobService(store, dispatcher, nil, nil, ExportJobServiceConfig{})

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, "job-1", dispatcher.enqueued[0].ID)
}
