package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/Lllllllleong/pdftoolbox/internal/compress"
	"github.com/Lllllllleong/pdftoolbox/internal/gcp"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/raster"
	"github.com/Lllllllleong/pdftoolbox/internal/task"
	"github.com/Lllllllleong/pdftoolbox/internal/tools"
)

type ProcessorConfig struct {
	ProjectID         string
	OutputBucket      string
	CollectionName    string
	Operation         task.Kind
	Level             compress.Level
	WorkflowID        string
	WorkflowLocation  string
	UploadConcurrency int
}

// Processor compresses or splits every PDF uploaded to the watched bucket.
type Processor struct {
	objects  ObjectStore
	jobs     JobStore
	workflow WorkflowTrigger
	runner   *task.Runner
	config   ProcessorConfig
}

type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// LoadProcessorConfig reads the processor settings from the environment.
func LoadProcessorConfig() (ProcessorConfig, error) {
	config := ProcessorConfig{
		ProjectID:         gcp.GetEnv("PROJECT_ID", ""),
		OutputBucket:      gcp.GetEnv("OUTPUT_BUCKET", ""),
		CollectionName:    gcp.GetEnv("FIRESTORE_COLLECTION", "jobs"),
		WorkflowID:        gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation:  gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		UploadConcurrency: gcp.GetEnvInt("UPLOAD_CONCURRENCY", DefaultUploadConcurrency),
	}
	if config.ProjectID == "" {
		return config, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if config.OutputBucket == "" {
		return config, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}

	op, err := task.ParseKind(gcp.GetEnv("UPLOAD_OPERATION", task.KindCompress.String()))
	if err != nil {
		return config, fmt.Errorf("UPLOAD_OPERATION: %w", err)
	}
	if op != task.KindCompress && op != task.KindSplit {
		return config, fmt.Errorf("UPLOAD_OPERATION must be %s or %s, got %s", task.KindCompress, task.KindSplit, op)
	}
	config.Operation = op

	level, err := compress.ParseLevel(gcp.GetEnv("COMPRESSION_LEVEL", ""))
	if err != nil {
		return config, fmt.Errorf("COMPRESSION_LEVEL: %w", err)
	}
	config.Level = level
	return config, nil
}

// NewProcessor creates the Cloud clients named by the environment.
func NewProcessor(ctx context.Context) (*Processor, error) {
	config, err := LoadProcessorConfig()
	if err != nil {
		return nil, err
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	objects, err := gcp.NewStorage(ctx)
	if err != nil {
		return nil, err
	}
	var workflow WorkflowTrigger
	if config.WorkflowID != "" {
		w, err := gcp.NewWorkflows(ctx, config.ProjectID, config.WorkflowLocation, config.WorkflowID)
		if err != nil {
			return nil, err
		}
		workflow = w
	}

	p := NewProcessorWith(config, objects, gcp.NewJobStore(firestoreClient, config.CollectionName), workflow, task.NewRunner(raster.NewFitz()))
	slog.Info("PDF processor logic initialized.", "operation", config.Operation.String(), "workflowId", config.WorkflowID)
	return p, nil
}

// NewProcessorWith assembles a Processor from its parts. workflow may be nil.
func NewProcessorWith(config ProcessorConfig, objects ObjectStore, jobs JobStore, workflow WorkflowTrigger, runner *task.Runner) *Processor {
	return &Processor{
		objects:  objects,
		jobs:     jobs,
		workflow: workflow,
		runner:   runner,
		config:   config,
	}
}

func (p *Processor) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name, "operation", p.config.Operation.String())
	if !strings.EqualFold(path.Ext(e.Name), ".pdf") {
		logCtx.Info("Object is not a PDF. Skipping.")
		return nil
	}
	logCtx.Info("Processing new GCS object.")

	data, err := p.objects.Read(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	hash := fileHash(data)
	logCtx = logCtx.With("fileHash", hash)

	existing, dup, err := p.jobs.FindByHash(ctx, hash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if dup {
		logCtx.Info("Duplicate file detected. Skipping.", "existingJobId", existing)
		return nil
	}

	jobID, err := p.jobs.Create(ctx, models.Job{
		FileHash:         hash,
		OriginalFilename: e.Name,
		Operation:        p.config.Operation.String(),
		Status:           models.StatusValidating,
		OriginalSize:     int64(len(data)),
		CreatedAt:        time.Now(),
	})
	if err != nil {
		logCtx.Error("Failed to create initial Firestore document", "error", err)
		return err
	}
	logCtx = logCtx.With("jobId", jobID)
	logCtx.Info("Created job document in Firestore.")

	outcome, err := p.run(ctx, logCtx, jobID, models.File{Name: path.Base(e.Name), Data: data})
	if err != nil {
		// Error is already logged and handled in run
		return err
	}

	uris, err := uploadOutputs(ctx, logCtx, p.objects, p.config.OutputBucket, jobID, outcome.Files, p.config.UploadConcurrency)
	if err != nil {
		return p.handleError(ctx, logCtx, jobID, "one or more outputs failed to upload", err)
	}

	fields := map[string]any{"outputs": uris}
	if p.workflow != nil {
		executionID, err := p.triggerWorkflow(ctx, logCtx, jobID, outcome, uris)
		if err != nil {
			// Error is already logged and handled in triggerWorkflow
			return err
		}
		fields["workflowExecutionId"] = executionID
	}
	fields["status"] = models.StatusDone
	if err := p.jobs.Update(ctx, jobID, fields); err != nil {
		return p.handleError(ctx, logCtx, jobID, "failed to update status to DONE", err)
	}

	logCtx.Info("Job complete.", "outputs", len(uris))
	return nil
}

func (p *Processor) run(ctx context.Context, logCtx *slog.Logger, jobID string, src models.File) (*task.Outcome, error) {
	if err := p.jobs.Update(ctx, jobID, map[string]any{"status": models.StatusProcessing}); err != nil {
		return nil, p.handleError(ctx, logCtx, jobID, "failed to update status to PROCESSING", err)
	}

	var params task.Params
	switch p.config.Operation {
	case task.KindSplit:
		params = task.SplitParams{File: src, SplitParams: tools.SplitParams{Mode: tools.SplitEach}}
	default:
		params = task.CompressParams{File: src, Level: p.config.Level}
	}

	outcome, err := p.runner.Run(ctx, params, func(percent int) {
		logCtx.Debug("Progress.", "percent", percent)
	})
	if err != nil {
		return nil, p.handleError(ctx, logCtx, jobID, "failed to process PDF", err)
	}

	var outputSize int64
	for _, f := range outcome.Files {
		outputSize += int64(len(f.Data))
	}
	fields := map[string]any{
		"status":     models.StatusUploading,
		"outputSize": outputSize,
	}
	if res := outcome.Compression; res != nil {
		fields["pageCount"] = res.PageCount
		fields["encrypted"] = res.Encrypted
		fields["savingsPercent"] = res.SavingsPercent()
		logCtx.Info("PDF compressed.", "strategy", res.Strategy, "savingsPercent", res.SavingsPercent())
	} else {
		fields["pageCount"] = len(outcome.Files)
		logCtx.Info("PDF split.", "pageCount", len(outcome.Files))
	}
	if err := p.jobs.Update(ctx, jobID, fields); err != nil {
		return nil, p.handleError(ctx, logCtx, jobID, "failed to update status to UPLOADING", err)
	}
	return outcome, nil
}

func (p *Processor) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, jobID string, outcome *task.Outcome, uris []string) (string, error) {
	logCtx.Info("Triggering workflow.")
	pageCount := len(outcome.Files)
	if outcome.Compression != nil {
		pageCount = outcome.Compression.PageCount
	}
	executionID, err := p.workflow.Trigger(ctx, models.WorkflowPayload{
		JobID:     jobID,
		Operation: p.config.Operation.String(),
		PageCount: pageCount,
		Outputs:   uris,
	})
	if err != nil {
		return "", p.handleError(ctx, logCtx, jobID, "failed to trigger workflow execution", err)
	}
	return executionID, nil
}

func (p *Processor) handleError(ctx context.Context, logCtx *slog.Logger, jobID, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	fields := map[string]any{
		"status":       models.StatusFailed,
		"errorDetails": fullError,
	}
	if err := p.jobs.Update(ctx, jobID, fields); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}
