package model

import "time"

// ReportStatus is the lifecycle state of a generated report.
type ReportStatus string

// Report statuses.
const (
	ReportCompleted ReportStatus = "completed"
	ReportPending   ReportStatus = "pending"
	ReportFailed    ReportStatus = "failed"
)

// DefaultReportSize is the display size assigned when none is known.
const DefaultReportSize = "1.2 KB"

// Report is a generated report kept in local history.
type Report struct {
	CreatedAt time.Time    `json:"createdAt"`
	ID        string       `json:"id"`
	Status    ReportStatus `json:"status"`
	Size      string       `json:"size"`
	Type      string       `json:"type"`
	Name      string       `json:"name"`
	Content   string       `json:"content"`
}

// MessageEntry is one outbound notification in the local history.
type MessageEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
}
