package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/services"
)

var (
	toolInstance *services.ToolService
	once         sync.Once
	initErr      error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleTool", handleTool)
}

// main is required by the Go Functions Framework.
func main() {}

func handleTool(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		toolInstance, initErr = services.NewToolService(context.Background())
	})
	if initErr != nil {
		slog.Error("Tool service initialization failed.", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	// Decode the request body into the operation payload.
	var req models.ToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body.", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := toolInstance.Handle(r.Context(), req)
	if err != nil {
		slog.Error("Tool request failed.", "jobId", req.JobID, "operation", req.Operation, "error", err)
		writeJSON(w, services.HTTPStatus(err), &models.ToolResponse{
			Status:  services.StatusFailure,
			Message: models.UserMessage(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response.", "error", err)
	}
}
