package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/echolabs/twinsight-backend/internal/insight/features"
	"github.com/echolabs/twinsight-backend/internal/types"
)

type fakeSource struct {
	records map[string][]map[string]any
	errs    map[string]error
}

func (f *fakeSource) FetchRecentRecords(ctx context.Context, userID uuid.UUID, platform, dataType string, since time.Time) ([]map[string]any, error) {
	if err := f.errs[platform]; err != nil {
		return nil, err
	}
	return f.records[platform], nil
}

type memJobRepo struct {
	jobs map[uuid.UUID]*types.ExtractionJob
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: map[uuid.UUID]*types.ExtractionJob{}}
}

func (m *memJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.ExtractionJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = types.ExtractionPending
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ExtractionJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (m *memJobRepo) MarkRunning(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if job, ok := m.jobs[id]; ok {
		job.Status = types.ExtractionRunning
	}
	return nil
}

func (m *memJobRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, itemsExtracted int) error {
	if job, ok := m.jobs[id]; ok {
		job.Status = types.ExtractionCompleted
		job.ItemsExtracted = itemsExtracted
	}
	return nil
}

func (m *memJobRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, errorMessage string) error {
	if job, ok := m.jobs[id]; ok {
		job.Status = types.ExtractionFailed
		job.ErrorMessage = errorMessage
	}
	return nil
}

func (m *memJobRepo) GetRecentByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.ExtractionJob, error) {
	var out []*types.ExtractionJob
	for _, job := range m.jobs {
		if job.UserID == userID {
			cp := *job
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memJobRepo) byPlatform(platform string) *types.ExtractionJob {
	for _, job := range m.jobs {
		if job.Platform == platform {
			return job
		}
	}
	return nil
}

func TestIngestAllContainsPlatformFailures(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	jobRepo := newMemJobRepo()

	source := &fakeSource{
		records: map[string][]map[string]any{},
		errs:    map[string]error{"spotify": errors.New("rate limited")},
	}

	svc := NewSignalIngestionService(
		nil,
		testLogger(t),
		features.DefaultRegistry(),
		nil,
		nil,
		source,
		nil,
		nil,
		jobRepo,
		&fakeNotifier{},
	)

	result, err := svc.IngestAll(ctx, userID, time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("IngestAll: %v", err)
	}

	if len(result.Failed) != 1 || result.Failed[0] != "spotify" {
		t.Fatalf("expected spotify to fail: %+v", result.Failed)
	}
	if _, ok := result.Errors["spotify"]; !ok {
		t.Fatalf("missing failure reason: %+v", result.Errors)
	}
	if len(result.Succeeded) != 4 {
		t.Fatalf("expected 4 platforms to succeed, got %d", len(result.Succeeded))
	}
	for _, res := range result.Succeeded {
		if res.RecordCount != 0 || res.FeatureCount != 0 {
			t.Fatalf("empty platforms should ingest nothing: %+v", res)
		}
	}

	// Every attempt lands in the job ledger with a terminal status.
	if job := jobRepo.byPlatform("spotify"); job == nil || job.Status != types.ExtractionFailed || job.ErrorMessage == "" {
		t.Fatalf("spotify job not marked failed: %+v", job)
	}
	if job := jobRepo.byPlatform("github"); job == nil || job.Status != types.ExtractionCompleted {
		t.Fatalf("github job not marked completed: %+v", job)
	}

	jobs, err := svc.ListRecentJobs(ctx, userID, 10)
	if err != nil {
		t.Fatalf("ListRecentJobs: %v", err)
	}
	if len(jobs) != 5 {
		t.Fatalf("expected 5 job rows, got %d", len(jobs))
	}
}
