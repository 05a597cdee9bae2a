package model

import "time"

// Severity classifies error log entries.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ErrorLogEntry is an append-only diagnostic record for one user.
type ErrorLogEntry struct {
	ID        string
	Timestamp time.Time
	UserID    string
	Message   string
	Context   string
	Severity  Severity
}
