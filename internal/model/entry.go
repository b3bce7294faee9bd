package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Entry is the immutable record of one request/response exchange. It is
// built once per request and handed by reference to the sinks and the
// console renderer; nothing mutates it afterwards.
type Entry struct {
	Timestamp       time.Time         `json:"timestamp" db:"timestamp"`
	Method          string            `json:"method" db:"method"`
	Path            string            `json:"path" db:"path"`
	Query           map[string]string `json:"query" db:"query"`
	RequestHeaders  map[string]string `json:"request_headers" db:"request_headers"`
	RequestBody     string            `json:"request_body" db:"request_body"`
	ResponseStatus  int               `json:"response_status" db:"response_status"`
	ResponseHeaders map[string]string `json:"response_headers" db:"response_headers"`
	ResponseBody    string            `json:"response_body" db:"response_body"`
	DurationMS      float64           `json:"duration_ms" db:"duration_ms"`
	RowHash         string            `json:"row_hash" db:"row_hash"`

	// Enrichment fields, each independently optional.
	Authorization    string     `json:"authorization,omitempty" db:"authorization"`
	ClientIP         string     `json:"client_ip,omitempty" db:"client_ip"`
	UserAgent        string     `json:"user_agent,omitempty" db:"user_agent"`
	WindowsUsername  string     `json:"windows_username,omitempty" db:"windows_username"`
	FileExtension    string     `json:"file_extension,omitempty" db:"file_extension"`
	OperationType    string     `json:"operation_type,omitempty" db:"operation_type"`
	GitBranch        string     `json:"git_branch,omitempty" db:"git_branch"`
	Project          string     `json:"project,omitempty" db:"project"`
	Editor           string     `json:"editor,omitempty" db:"editor"`
	Platform         string     `json:"platform,omitempty" db:"platform"`
	EventTime        *time.Time `json:"event_time,omitempty" db:"event_time"`
	AbsoluteFilepath string     `json:"absolute_filepath,omitempty" db:"absolute_filepath"`
	EventType        string     `json:"event_type,omitempty" db:"event_type"`
	Language         string     `json:"language,omitempty" db:"language"`
}

// Exchange carries the outcome of one forwarded request as observed by the
// proxy handler.
type Exchange struct {
	Method          string
	Path            string
	Query           map[string]string
	RequestHeaders  map[string]string
	RequestBody     string
	ResponseStatus  int
	ResponseHeaders map[string]string
	ResponseBody    string
	Duration        time.Duration
}

// Metadata holds the fields derived from the request body and headers.
type Metadata struct {
	Authorization    string
	ClientIP         string
	UserAgent        string
	WindowsUsername  string
	FileExtension    string
	OperationType    string
	GitBranch        string
	Project          string
	Editor           string
	Platform         string
	EventTime        *time.Time
	AbsoluteFilepath string
	EventType        string
	Language         string
}

// NewEntry assembles the canonical audit record. The timestamp is assigned
// here, at construction time, not at request arrival.
func NewEntry(ex Exchange, meta Metadata) *Entry {
	return &Entry{
		Timestamp:       time.Now().UTC(),
		Method:          ex.Method,
		Path:            ex.Path,
		Query:           ex.Query,
		RequestHeaders:  ex.RequestHeaders,
		RequestBody:     ex.RequestBody,
		ResponseStatus:  ex.ResponseStatus,
		ResponseHeaders: ex.ResponseHeaders,
		ResponseBody:    ex.ResponseBody,
		DurationMS:      float64(ex.Duration.Microseconds()) / 1000.0,
		RowHash:         RowHash(ex.Method, ex.Path, ex.Query, ex.RequestBody, ex.ResponseStatus),

		Authorization:    meta.Authorization,
		ClientIP:         meta.ClientIP,
		UserAgent:        meta.UserAgent,
		WindowsUsername:  meta.WindowsUsername,
		FileExtension:    meta.FileExtension,
		OperationType:    meta.OperationType,
		GitBranch:        meta.GitBranch,
		Project:          meta.Project,
		Editor:           meta.Editor,
		Platform:         meta.Platform,
		EventTime:        meta.EventTime,
		AbsoluteFilepath: meta.AbsoluteFilepath,
		EventType:        meta.EventType,
		Language:         meta.Language,
	}
}

// RowHash is the content fingerprint used for deduplication at the
// relational sink. It covers exactly method, path, query, request body and
// response status; headers, duration and enrichment fields are excluded so
// that two deliveries of the same logical event hash identically.
func RowHash(method, path string, query map[string]string, requestBody string, responseStatus int) string {
	// encoding/json emits map keys in sorted order, which makes the
	// serialization canonical.
	canonical, _ := json.Marshal(map[string]interface{}{
		"method":          method,
		"path":            path,
		"query":           query,
		"request_body":    requestBody,
		"response_status": responseStatus,
	})
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
