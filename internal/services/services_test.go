package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Lllllllleong/pdftoolbox/internal/compress"
	"github.com/Lllllllleong/pdftoolbox/internal/gcp"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/pdftest"
	"github.com/Lllllllleong/pdftoolbox/internal/raster/rastertest"
	"github.com/Lllllllleong/pdftoolbox/internal/task"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Read(_ context.Context, bucket, object string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[gcp.URI(bucket, object)]
	if !ok {
		return nil, fmt.Errorf("object %s not found", gcp.URI(bucket, object))
	}
	return data, nil
}

func (s *memStore) Write(_ context.Context, bucket, object string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[gcp.URI(bucket, object)] = data
	return nil
}

type memJobs struct {
	mu   sync.Mutex
	jobs map[string]map[string]any
	hash map[string]string
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: map[string]map[string]any{}, hash: map[string]string{}}
}

func (j *memJobs) FindByHash(_ context.Context, h string) (string, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	id, ok := j.hash[h]
	return id, ok, nil
}

func (j *memJobs) Create(_ context.Context, job models.Job) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	id := fmt.Sprintf("job%d", len(j.jobs)+1)
	j.jobs[id] = map[string]any{"status": job.Status, "operation": job.Operation}
	j.hash[job.FileHash] = id
	return id, nil
}

func (j *memJobs) Update(_ context.Context, id string, fields map[string]any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec, ok := j.jobs[id]
	if !ok {
		return fmt.Errorf("no job %s", id)
	}
	for k, v := range fields {
		rec[k] = v
	}
	return nil
}

func (j *memJobs) field(id, key string) any {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jobs[id][key]
}

type recordingWorkflow struct {
	payloads []any
}

func (w *recordingWorkflow) Trigger(_ context.Context, payload any) (string, error) {
	w.payloads = append(w.payloads, payload)
	return "executions/1", nil
}

func newProcessor(op task.Kind) (*Processor, *memStore, *memJobs, *recordingWorkflow) {
	store, jobs, wf := newMemStore(), newMemJobs(), &recordingWorkflow{}
	cfg := ProcessorConfig{
		OutputBucket:      "out",
		Operation:         op,
		Level:             compress.DefaultLevel,
		UploadConcurrency: 2,
	}
	return NewProcessorWith(cfg, store, jobs, wf, task.NewRunner(&rastertest.Fake{})), store, jobs, wf
}

func TestProcess_Compress(t *testing.T) {
	t.Parallel()

	p, store, jobs, wf := newProcessor(task.KindCompress)
	_ = store.Write(context.Background(), "in", "uploads/report.pdf", pdftest.Simple(3))

	if err := p.Process(context.Background(), GCSEvent{Bucket: "in", Name: "uploads/report.pdf"}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if got := jobs.field("job1", "status"); got != models.StatusDone {
		t.Errorf("status = %v, want %s", got, models.StatusDone)
	}
	if got := jobs.field("job1", "pageCount"); got != 3 {
		t.Errorf("pageCount = %v, want 3", got)
	}
	want := []string{"gs://out/job1/report-compressed.pdf"}
	if diff := cmp.Diff(want, jobs.field("job1", "outputs")); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
	if _, err := store.Read(context.Background(), "out", "job1/report-compressed.pdf"); err != nil {
		t.Errorf("output not uploaded: %v", err)
	}
	if len(wf.payloads) != 1 {
		t.Fatalf("workflow triggered %d times, want 1", len(wf.payloads))
	}
	wantPayload := models.WorkflowPayload{JobID: "job1", Operation: "compress", PageCount: 3, Outputs: want}
	if diff := cmp.Diff(wantPayload, wf.payloads[0]); diff != "" {
		t.Errorf("workflow payload mismatch (-want +got):\n%s", diff)
	}
	if got := jobs.field("job1", "workflowExecutionId"); got != "executions/1" {
		t.Errorf("workflowExecutionId = %v", got)
	}
}

func TestProcess_Split(t *testing.T) {
	t.Parallel()

	p, store, jobs, _ := newProcessor(task.KindSplit)
	_ = store.Write(context.Background(), "in", "report.pdf", pdftest.Simple(3))

	if err := p.Process(context.Background(), GCSEvent{Bucket: "in", Name: "report.pdf"}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	want := []string{
		"gs://out/job1/report-page-1.pdf",
		"gs://out/job1/report-page-2.pdf",
		"gs://out/job1/report-page-3.pdf",
	}
	if diff := cmp.Diff(want, jobs.field("job1", "outputs")); diff != "" {
		t.Errorf("outputs mismatch (-want +got):\n%s", diff)
	}
}

func TestProcess_Duplicate(t *testing.T) {
	t.Parallel()

	p, store, jobs, wf := newProcessor(task.KindCompress)
	data := pdftest.Simple(2)
	_ = store.Write(context.Background(), "in", "a.pdf", data)
	_ = store.Write(context.Background(), "in", "b.pdf", data)

	for _, name := range []string{"a.pdf", "b.pdf"} {
		if err := p.Process(context.Background(), GCSEvent{Bucket: "in", Name: name}); err != nil {
			t.Fatalf("Process(%s) error = %v", name, err)
		}
	}
	if len(jobs.jobs) != 1 {
		t.Errorf("created %d jobs, want 1", len(jobs.jobs))
	}
	if len(wf.payloads) != 1 {
		t.Errorf("workflow triggered %d times, want 1", len(wf.payloads))
	}
}

func TestProcess_Unreadable(t *testing.T) {
	t.Parallel()

	p, store, jobs, wf := newProcessor(task.KindCompress)
	_ = store.Write(context.Background(), "in", "broken.pdf", []byte("not a pdf"))

	err := p.Process(context.Background(), GCSEvent{Bucket: "in", Name: "broken.pdf"})
	if !errors.Is(err, models.ErrDocumentUnreadable) {
		t.Fatalf("Process() error = %v, want ErrDocumentUnreadable", err)
	}
	if got := jobs.field("job1", "status"); got != models.StatusFailed {
		t.Errorf("status = %v, want %s", got, models.StatusFailed)
	}
	if got, _ := jobs.field("job1", "errorDetails").(string); got == "" {
		t.Error("errorDetails not recorded")
	}
	if len(wf.payloads) != 0 {
		t.Error("workflow triggered for a failed job")
	}
}

func TestProcess_SkipsNonPDF(t *testing.T) {
	t.Parallel()

	p, _, jobs, _ := newProcessor(task.KindCompress)
	if err := p.Process(context.Background(), GCSEvent{Bucket: "in", Name: "notes.txt"}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(jobs.jobs) != 0 {
		t.Errorf("created %d jobs for a non-PDF object", len(jobs.jobs))
	}
}

func TestLoadProcessorConfig(t *testing.T) {
	t.Setenv("PROJECT_ID", "p")
	t.Setenv("OUTPUT_BUCKET", "out")
	t.Setenv("UPLOAD_OPERATION", "split")
	t.Setenv("COMPRESSION_LEVEL", "screen")
	t.Setenv("UPLOAD_CONCURRENCY", "4")

	cfg, err := LoadProcessorConfig()
	if err != nil {
		t.Fatalf("LoadProcessorConfig() error = %v", err)
	}
	want := ProcessorConfig{
		ProjectID:         "p",
		OutputBucket:      "out",
		CollectionName:    "jobs",
		Operation:         task.KindSplit,
		Level:             compress.Screen,
		WorkflowLocation:  "us-central1",
		UploadConcurrency: 4,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	t.Setenv("UPLOAD_OPERATION", "watermark")
	if _, err := LoadProcessorConfig(); err == nil {
		t.Error("watermark accepted as upload operation")
	}
}

func newToolService() (*ToolService, *memStore) {
	store := newMemStore()
	cfg := ToolConfig{OutputBucket: "out", UploadConcurrency: 2}
	return NewToolServiceWith(cfg, store, task.NewRunner(&rastertest.Fake{})), store
}

func TestHandle_Merge(t *testing.T) {
	t.Parallel()

	s, store := newToolService()
	_ = store.Write(context.Background(), "in", "a.pdf", pdftest.Simple(2))
	_ = store.Write(context.Background(), "in", "b.pdf", pdftest.Simple(1))

	resp, err := s.Handle(context.Background(), models.ToolRequest{
		JobID:     "j1",
		Operation: "merge",
		Inputs:    []string{"gs://in/a.pdf", "gs://in/b.pdf"},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	want := &models.ToolResponse{
		Status:  StatusSuccess,
		Outputs: []string{"gs://out/j1/merged.pdf"},
		Message: "Produced 1 file(s).",
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestHandle_Compress(t *testing.T) {
	t.Parallel()

	s, store := newToolService()
	_ = store.Write(context.Background(), "in", "a.pdf", pdftest.Simple(2))

	resp, err := s.Handle(context.Background(), models.ToolRequest{
		JobID:     "j2",
		Operation: "compress",
		Inputs:    []string{"gs://in/a.pdf"},
		Params:    []byte(`{"level":"screen"}`),
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.SavingsPercent == nil {
		t.Fatal("SavingsPercent not set for compress")
	}
	if *resp.SavingsPercent < 0 {
		t.Errorf("SavingsPercent = %d, output grew", *resp.SavingsPercent)
	}
}

func TestHandle_Errors(t *testing.T) {
	t.Parallel()

	s, store := newToolService()
	_ = store.Write(context.Background(), "in", "bad.pdf", []byte("garbage"))
	_ = store.Write(context.Background(), "in", "a.pdf", pdftest.Simple(1))

	tests := []struct {
		name string
		req  models.ToolRequest
		want error
	}{
		{"missing job", models.ToolRequest{Operation: "compress", Inputs: []string{"gs://in/a.pdf"}}, models.ErrInvalidSelection},
		{"no inputs", models.ToolRequest{JobID: "j", Operation: "compress"}, models.ErrInvalidSelection},
		{"bad uri", models.ToolRequest{JobID: "j", Operation: "compress", Inputs: []string{"in/a.pdf"}}, models.ErrInvalidSelection},
		{"unknown operation", models.ToolRequest{JobID: "j", Operation: "rotate", Inputs: []string{"gs://in/a.pdf"}}, models.ErrInvalidSelection},
		{"single merge input", models.ToolRequest{JobID: "j", Operation: "merge", Inputs: []string{"gs://in/a.pdf"}}, models.ErrInvalidSelection},
		{"unreadable", models.ToolRequest{JobID: "j", Operation: "compress", Inputs: []string{"gs://in/bad.pdf"}}, models.ErrDocumentUnreadable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := s.Handle(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Handle() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{nil, 200},
		{models.Invalidf("no pages"), 400},
		{fmt.Errorf("open: %w", models.ErrDocumentUnreadable), 422},
		{&models.PageError{Page: 2, Err: errors.New("boom")}, 422},
		{errors.New("storage down"), 500},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
