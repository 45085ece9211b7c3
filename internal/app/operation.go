package app

import "time"

// Operation tracks one CLI invocation. ID tags every log line of the run.
// Only operations that changed the catalog trigger a snapshot on Close.
type Operation struct {
	ID        string
	Name      string
	StartedAt time.Time
	Status    string // "success" or "error"
	mutated   bool
}

// NewOperation creates an operation started at now.
func NewOperation(name string, now time.Time) *Operation {
	return &Operation{
		ID:        now.UTC().Format("20060102T150405Z"),
		Name:      name,
		StartedAt: now,
		Status:    "success",
	}
}

// MarkMutated records that the catalog was written.
func (op *Operation) MarkMutated() { op.mutated = true }

// Mutated returns true if the catalog was written during this operation.
func (op *Operation) Mutated() bool { return op.mutated }

// Fail marks the operation as failed.
func (op *Operation) Fail() { op.Status = "error" }
