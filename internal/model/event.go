package model

import (
	"database/sql"
	"time"
)

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryRequest   = "request"
	EventCategoryAllocator = "allocator"
	EventCategoryMapping   = "mapping"
	EventCategorySync      = "sync"
	EventCategoryProvider  = "provider"
	EventCategorySystem    = "system"
)

// Event represents a system event log entry.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string // JSON string
	CreatedAt time.Time
}

// Request log entry types
const (
	LogTypeInfo    = "info"
	LogTypeWarning = "warning"
	LogTypeError   = "error"
)

// LogEntry is one row of a request's append-only audit trail. Entries are
// written once and never updated or deleted.
type LogEntry struct {
	ID        int64     `json:"id"`
	RequestID string    `json:"request_id"`
	Type      string    `json:"type"`
	Actor     string    `json:"actor"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
