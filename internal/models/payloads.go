package models

import "encoding/json"

// These structs define the JSON payloads for HTTP requests and responses
// between a caller (or the Cloud Workflow) and the pdf-tool function.

// ToolRequest is the input for the pdf-tool function. Inputs and Assets are
// gs:// URIs; their bytes are attached to the decoded operation parameters in
// the order given.
type ToolRequest struct {
	JobID       string          `json:"jobId"`
	Operation   string          `json:"operation"`
	Inputs      []string        `json:"inputs"`
	Assets      []string        `json:"assets,omitempty"`
	Params      json.RawMessage `json:"params,omitempty"`
	ExecutionID string          `json:"executionId,omitempty"`
}

// ToolResponse is the output of the pdf-tool function.
type ToolResponse struct {
	Status         string   `json:"status"`
	Outputs        []string `json:"outputs"`
	SavingsPercent *int     `json:"savingsPercent,omitempty"`
	Message        string   `json:"message,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// WorkflowPayload is the argument handed to the follow-up workflow once an
// uploaded document has been processed.
type WorkflowPayload struct {
	JobID     string   `json:"jobId"`
	Operation string   `json:"operation"`
	PageCount int      `json:"pageCount"`
	Outputs   []string `json:"outputs"`
}
