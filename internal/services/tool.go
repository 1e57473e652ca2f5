package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/pdftoolbox/internal/gcp"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/raster"
	"github.com/Lllllllleong/pdftoolbox/internal/task"
)

// Response statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

type ToolConfig struct {
	OutputBucket      string
	UploadConcurrency int
}

// ToolService runs one operation per request over objects in Cloud Storage.
type ToolService struct {
	objects ObjectStore
	runner  *task.Runner
	config  ToolConfig
}

// NewToolService creates the Storage client and reads OUTPUT_BUCKET.
func NewToolService(ctx context.Context) (*ToolService, error) {
	config := ToolConfig{
		OutputBucket:      gcp.GetEnv("OUTPUT_BUCKET", ""),
		UploadConcurrency: gcp.GetEnvInt("UPLOAD_CONCURRENCY", DefaultUploadConcurrency),
	}
	if config.OutputBucket == "" {
		return nil, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}
	objects, err := gcp.NewStorage(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("PDF tool logic initialized.", "outputBucket", config.OutputBucket)
	return NewToolServiceWith(config, objects, task.NewRunner(raster.NewFitz())), nil
}

func NewToolServiceWith(config ToolConfig, objects ObjectStore, runner *task.Runner) *ToolService {
	return &ToolService{objects: objects, runner: runner, config: config}
}

// Handle downloads the request inputs, runs the operation and uploads the
// outputs under <jobId>/ in the output bucket.
func (s *ToolService) Handle(ctx context.Context, req models.ToolRequest) (*models.ToolResponse, error) {
	if req.JobID == "" {
		return nil, models.Invalidf("jobId is required")
	}
	if len(req.Inputs) == 0 {
		return nil, models.Invalidf("no input files")
	}
	logCtx := slog.With("jobId", req.JobID, "operation", req.Operation, "executionId", req.ExecutionID)
	logCtx.Info("Processing tool request.", "inputs", len(req.Inputs), "assets", len(req.Assets))

	inputs, err := downloadAll(ctx, s.objects, req.Inputs, s.config.UploadConcurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to download inputs: %w", err)
	}
	assets, err := downloadAll(ctx, s.objects, req.Assets, s.config.UploadConcurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to download assets: %w", err)
	}

	params, err := task.Decode(req.Operation, req.Params, inputs, assets)
	if err != nil {
		return nil, err
	}
	outcome, err := s.runner.Run(ctx, params, func(percent int) {
		logCtx.Debug("Progress.", "percent", percent)
	})
	if err != nil {
		return nil, err
	}

	uris, err := uploadOutputs(ctx, logCtx, s.objects, s.config.OutputBucket, req.JobID, outcome.Files, s.config.UploadConcurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to upload outputs: %w", err)
	}

	resp := &models.ToolResponse{
		Status:   StatusSuccess,
		Outputs:  uris,
		Warnings: outcome.Warnings,
		Message:  fmt.Sprintf("Produced %d file(s).", len(uris)),
	}
	if res := outcome.Compression; res != nil {
		savings := res.SavingsPercent()
		resp.SavingsPercent = &savings
		resp.Message = res.Summary()
	}
	logCtx.Info("Tool request complete.", "outputs", len(uris))
	return resp, nil
}

// HTTPStatus maps an operation error to the response code of the tool
// endpoint.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, models.ErrInvalidSelection):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrDocumentUnreadable), errors.Is(err, models.ErrPageRenderFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
