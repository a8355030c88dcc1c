package recapi

import (
	"encoding/json"
	"time"
)

// Pagination describes a page of a list response.
type Pagination struct {
	Page  int `json:"page"  yaml:"page"  validate:"gte=1"`
	Limit int `json:"limit" yaml:"limit" validate:"gte=1"`
	Total int `json:"total" yaml:"total" validate:"gte=0"`
	Pages int `json:"pages" yaml:"pages" validate:"gte=0"`
}

// HasNext reports whether a page follows this one.
func (p Pagination) HasNext() bool {
	return p.Page < p.Pages
}

// Page is a validated list response.
type Page[T any] struct {
	Items      []T        `json:"items"      yaml:"items"`
	Pagination Pagination `json:"pagination" yaml:"pagination"`
}

// Envelope is the wrapper every backend response is delivered in.
type Envelope struct {
	Data       json.RawMessage `json:"data,omitempty"       yaml:"-"`
	Message    string          `json:"message,omitempty"    yaml:"message,omitempty"`
	Success    bool            `json:"success"              yaml:"success"`
	Timestamp  time.Time       `json:"timestamp"            yaml:"timestamp"`
	Pagination *Pagination     `json:"pagination,omitempty" yaml:"pagination,omitempty"`
}

// JobState is the lifecycle state of a processing job.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateCancelled JobState = "cancelled"
)

// Terminal reports whether the job will not change state again.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed || s == JobStateCancelled
}

// Job is a server-side processing job.
type Job struct {
	ID               string            `json:"id"                   yaml:"id"                   validate:"required"`
	Name             string            `json:"name"                 yaml:"name"                 validate:"required"`
	State            JobState          `json:"state"                yaml:"state"                validate:"required,oneof=queued running completed failed cancelled"`
	Progress         int               `json:"progress"             yaml:"progress"             validate:"gte=0,lte=100"`
	RecordsProcessed int               `json:"recordsProcessed"     yaml:"records_processed"    validate:"gte=0"`
	Parameters       map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Errors           []string          `json:"errors,omitempty"     yaml:"errors,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"            yaml:"created_at"`
	StartedAt        *time.Time        `json:"startedAt,omitempty"  yaml:"started_at,omitempty"`
	FinishedAt       *time.Time        `json:"finishedAt,omitempty" yaml:"finished_at,omitempty"`
}

// JobTriggerRequest starts a new job.
type JobTriggerRequest struct {
	Name       string            `json:"name"                 yaml:"name"`
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// RecordStatus is the review status of a record.
type RecordStatus string

const (
	RecordStatusPending  RecordStatus = "pending"
	RecordStatusActive   RecordStatus = "active"
	RecordStatusArchived RecordStatus = "archived"
	RecordStatusRejected RecordStatus = "rejected"
)

// Record is a single data record.
type Record struct {
	ID         string            `json:"id"                   yaml:"id"                   validate:"required"`
	Title      string            `json:"title"                yaml:"title"                validate:"required"`
	Status     RecordStatus      `json:"status"               yaml:"status"               validate:"required,oneof=pending active archived rejected"`
	Source     string            `json:"source,omitempty"     yaml:"source,omitempty"`
	Tags       []string          `json:"tags,omitempty"       yaml:"tags,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"            yaml:"created_at"`
	UpdatedAt  time.Time         `json:"updatedAt"            yaml:"updated_at"`
}

// StatusUpdateRequest changes the status of a record.
type StatusUpdateRequest struct {
	Status RecordStatus `json:"status"           yaml:"status"`
	Reason string       `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// ImportRequest is a file upload.
type ImportRequest struct {
	FileName string
	Content  []byte
	// Format is sent alongside the file ("csv" or "json"); empty lets the
	// server sniff it.
	Format string
}

// ImportRowError describes a row the server could not import.
type ImportRowError struct {
	Row     int    `json:"row"     yaml:"row"     validate:"gte=0"`
	Message string `json:"message" yaml:"message" validate:"required"`
}

// ImportResult is the outcome of an upload.
type ImportResult struct {
	ID        string           `json:"id"               yaml:"id"               validate:"required"`
	FileName  string           `json:"fileName"         yaml:"file_name"        validate:"required"`
	Status    string           `json:"status"           yaml:"status"           validate:"required,oneof=pending processing completed failed"`
	Imported  int              `json:"imported"         yaml:"imported"         validate:"gte=0"`
	Skipped   int              `json:"skipped"          yaml:"skipped"          validate:"gte=0"`
	Failed    int              `json:"failed"           yaml:"failed"           validate:"gte=0"`
	Errors    []ImportRowError `json:"errors,omitempty" yaml:"errors,omitempty" validate:"dive"`
	JobID     string           `json:"jobId,omitempty"  yaml:"job_id,omitempty"`
	CreatedAt time.Time        `json:"createdAt"        yaml:"created_at"`
}

// Health is the backend health report.
type Health struct {
	Status        string            `json:"status"           yaml:"status"         validate:"required,oneof=ok degraded down"`
	Version       string            `json:"version"          yaml:"version"`
	UptimeSeconds float64           `json:"uptime"           yaml:"uptime_seconds" validate:"gte=0"`
	Checks        map[string]string `json:"checks,omitempty" yaml:"checks,omitempty"`
}

// SystemMetrics is the backend's aggregate counters.
type SystemMetrics struct {
	Records     RecordMetrics `json:"records"     yaml:"records"`
	Jobs        JobMetrics    `json:"jobs"        yaml:"jobs"`
	Imports     ImportMetrics `json:"imports"     yaml:"imports"`
	GeneratedAt time.Time     `json:"generatedAt" yaml:"generated_at"`
}

// RecordMetrics counts records by status.
type RecordMetrics struct {
	Total    int `json:"total"    yaml:"total"    validate:"gte=0"`
	Pending  int `json:"pending"  yaml:"pending"  validate:"gte=0"`
	Active   int `json:"active"   yaml:"active"   validate:"gte=0"`
	Archived int `json:"archived" yaml:"archived" validate:"gte=0"`
}

// JobMetrics counts jobs by state.
type JobMetrics struct {
	Total     int `json:"total"     yaml:"total"     validate:"gte=0"`
	Running   int `json:"running"   yaml:"running"   validate:"gte=0"`
	Completed int `json:"completed" yaml:"completed" validate:"gte=0"`
	Failed    int `json:"failed"    yaml:"failed"    validate:"gte=0"`
}

// ImportMetrics counts imports.
type ImportMetrics struct {
	Total        int `json:"total"        yaml:"total"         validate:"gte=0"`
	RowsImported int `json:"rowsImported" yaml:"rows_imported" validate:"gte=0"`
}
