package export

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"revdash/internal/dashboard"
	"revdash/internal/jobs"
	"revdash/internal/jobs/inmemory"
	"revdash/internal/rowstore"
	"revdash/internal/schema"
)

type memoryUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newMemoryUploader() *memoryUploader {
	return &memoryUploader{objects: make(map[string][]byte)}
}

func (m *memoryUploader) Upload(ctx context.Context, objectName string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.objects[objectName] = data
	return "gs://test-bucket/" + objectName, nil
}

func waitForJob(t *testing.T, store jobs.JobStore, id string, want jobs.JobStatus) *jobs.ExportJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), id)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", id, want)
	return nil
}

func TestExportJobEndToEnd(t *testing.T) {
	rows := rowstore.NewMemoryStore()
	rows.AddTable("transaction", []rowstore.Row{
		{"date": "2024-12-05", "product_name": "Lab", "amount": float64(100)},
	})
	loader := dashboard.NewLoader(rows, schema.DefaultConfig(), zerolog.Nop())
	uploader := newMemoryUploader()

	store := inmemory.NewStore()
	queue := inmemory.NewQueue(4, 1, store)
	defer queue.Close()

	if err := queue.Start(context.Background(), NewJobHandler(loader, uploader, zerolog.Nop())); err != nil {
		t.Fatalf("queue start failed: %v", err)
	}

	job := &jobs.ExportJob{
		Start: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	if err := queue.PublishExport(context.Background(), job); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	done := waitForJob(t, store, job.JobID, jobs.JobStatusCompleted)

	if len(done.ResultURIs) != 3 {
		t.Fatalf("expected 3 uploaded documents, got %v", done.ResultURIs)
	}
	for _, uri := range done.ResultURIs {
		if !strings.HasPrefix(uri, "gs://test-bucket/exports/2024-12-01_2024-12-31/") {
			t.Errorf("unexpected uri: %s", uri)
		}
	}

	uploader.mu.Lock()
	defer uploader.mu.Unlock()
	if len(uploader.objects) != 3 {
		t.Errorf("expected 3 objects uploaded, got %d", len(uploader.objects))
	}
	for name, data := range uploader.objects {
		if len(data) == 0 {
			t.Errorf("object %s is empty", name)
		}
	}
}

func TestExportJobFailsAfterRetries(t *testing.T) {
	rows := rowstore.NewMemoryStore()
	rows.FailTable("transaction", errors.New("down"))
	rows.FailTable("transactions", errors.New("down"))
	loader := dashboard.NewLoader(rows, schema.DefaultConfig(), zerolog.Nop())

	store := inmemory.NewStore()
	queue := inmemory.NewQueue(4, 1, store)
	defer queue.Close()

	if err := queue.Start(context.Background(), NewJobHandler(loader, newMemoryUploader(), zerolog.Nop())); err != nil {
		t.Fatalf("queue start failed: %v", err)
	}

	job := &jobs.ExportJob{
		Start:      time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		MaxRetries: 1,
	}
	if err := queue.PublishExport(context.Background(), job); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	failed := waitForJob(t, store, job.JobID, jobs.JobStatusFailed)
	if failed.Error == "" {
		t.Error("failed job should carry an error message")
	}
	if failed.RetryCount != 1 {
		t.Errorf("expected 1 retry, got %d", failed.RetryCount)
	}
}
