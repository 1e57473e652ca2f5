package models

import "time"

// Job represents the record of one processing run in Firestore.
// It tracks the overall status and the produced outputs.
type Job struct {
	FileHash            string    `firestore:"fileHash,omitempty"`
	OriginalFilename    string    `firestore:"originalFilename,omitempty"`
	Operation           string    `firestore:"operation,omitempty"`
	Status              string    `firestore:"status,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	PageCount           int       `firestore:"pageCount,omitempty"`
	Encrypted           bool      `firestore:"encrypted,omitempty"`
	OriginalSize        int64     `firestore:"originalSize,omitempty"`
	OutputSize          int64     `firestore:"outputSize,omitempty"`
	SavingsPercent      int       `firestore:"savingsPercent,omitempty"`
	Outputs             []string  `firestore:"outputs,omitempty"`
	WorkflowExecutionID string    `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
}

// Job statuses.
const (
	StatusValidating = "VALIDATING"
	StatusProcessing = "PROCESSING"
	StatusUploading  = "UPLOADING"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// File is a named document or image held in memory. Outputs carry the name
// they are offered for download under.
type File struct {
	Name string
	Data []byte
}

// ProgressFunc receives a percentage in [0,100]. Values never decrease.
type ProgressFunc func(percent int)

// Monotonic wraps fn so that it only sees increasing values clamped to
// [0,100]. The result is safe to call when fn is nil.
func (fn ProgressFunc) Monotonic() ProgressFunc {
	last := -1
	return func(v int) {
		v = min(max(v, 0), 100)
		if fn == nil || v <= last {
			return
		}
		last = v
		fn(v)
	}
}
