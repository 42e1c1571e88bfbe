package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/acadops/timetable-api/internal/models"
	"github.com/acadops/timetable-api/pkg/export"
	"github.com/acadops/timetable-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type exportScheduleSource interface {
	ListEntries(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, error)
}

type exportConfigSource interface {
	FindActive(ctx context.Context) (*models.TimetableConfig, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type gridRenderer interface {
	RenderGrid(doc export.GridDocument) ([]byte, error)
}

// ExportService renders stored timetables to CSV and PDF files and signs
// download URLs for them. CSV is the flat placement list; PDF is the
// weekly grid.
type ExportService struct {
	schedules exportScheduleSource
	configs   exportConfigSource
	storage   fileStorage
	csv       csvRenderer
	pdf       gridRenderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(schedules exportScheduleSource, configs exportConfigSource, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf gridRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		schedules: schedules,
		configs:   configs,
		storage:   storage,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate renders the stored timetable for the job's cohort filter and
// persists the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}

	cfg, err := s.configs.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	entries, err := s.schedules.ListEntries(ctx, models.ScheduleFilter{
		ConfigID: cfg.ID,
		Year:     job.Params.Year,
		Semester: job.Params.Semester,
	})
	if err != nil {
		return nil, fmt.Errorf("load timetable: %w", err)
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(buildTimetableDataset(entries))
	case models.ExportFormatPDF:
		payload, err = s.pdf.RenderGrid(buildGridDocument(cfg, entries, job.Params))
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job, cfg.AcademicYear)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob, academicYear string) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	yearPart := sanitizeFilename(academicYear)
	return fmt.Sprintf("timetable_%s_%s.%s", yearPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func buildTimetableDataset(entries []models.ScheduleEntry) export.Dataset {
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, map[string]string{
			"Day":      entry.DayOfWeek,
			"Start":    entry.StartTime,
			"End":      entry.EndTime,
			"Subject":  entry.SubjectName,
			"Code":     entry.SubjectCode,
			"Staff":    entry.StaffName,
			"Year":     fmt.Sprintf("%d", entry.Year),
			"Semester": fmt.Sprintf("%d", entry.Semester),
			"Section":  entry.Section,
		})
	}
	return export.Dataset{
		Headers: []string{"Day", "Start", "End", "Subject", "Code", "Staff", "Year", "Semester", "Section"},
		Rows:    rows,
	}
}

func buildGridDocument(cfg *models.TimetableConfig, entries []models.ScheduleEntry, params models.ExportJobParams) export.GridDocument {
	grid := BuildGrid(cfg, entries)

	cells := make(map[string]map[string]string, len(grid.SlotLabels))
	for slot, row := range grid.Cells {
		rendered := make(map[string]string, len(row))
		for day, cell := range row {
			rendered[day] = fmt.Sprintf("%s\n%s\n%s", cell.SubjectName, cell.SubjectCode, cell.StaffName)
		}
		cells[slot] = rendered
	}

	subtitle := "All cohorts"
	if params.Year > 0 {
		subtitle = fmt.Sprintf("Year %d", params.Year)
		if params.Semester > 0 {
			subtitle = fmt.Sprintf("Year %d, Semester %d", params.Year, params.Semester)
		}
	}

	return export.GridDocument{
		Title:      fmt.Sprintf("Class Timetable %s", cfg.AcademicYear),
		Subtitle:   subtitle,
		Days:       grid.Days,
		SlotLabels: grid.SlotLabels,
		Cells:      cells,
	}
}
