package model

import "time"

// Submission is the audit record of one code execution: who ran what, and how
// it ended. Records are immutable — executions are never edited after the
// fact. Only a bounded head of stdout is retained; full output goes back to
// the caller but is not stored.
type Submission struct {
	ID             string    `json:"id"             db:"id"`
	UserID         string    `json:"userId"         db:"user_id"` // empty for anonymous runs
	Language       string    `json:"language"       db:"language"`
	Framework      string    `json:"framework"      db:"framework"`
	Status         string    `json:"status"         db:"status"`
	DurationMillis int64     `json:"durationMillis" db:"duration_millis"`
	ExitCode       *int      `json:"exitCode"       db:"exit_code"`
	StdoutHead     string    `json:"stdoutHead"     db:"stdout_head"`
	CreatedAt      time.Time `json:"createdAt"      db:"created_at"`
}
