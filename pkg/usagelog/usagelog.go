// Package usagelog records AI backend usage for analytics. Recording is
// append-only and strictly best-effort: a failed write is logged and
// swallowed, never surfaced to the caller, so accounting can never break a
// user-facing request.
package usagelog

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schema string

// promptSummaryLimit caps the stored prompt excerpt.
const promptSummaryLimit = 200

// Request statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Entry is one recorded AI call.
type Entry struct {
	ID               string
	ServiceType      string
	Provider         string
	ModelName        string
	Status           string
	InputTokens      int
	OutputTokens     int
	TotalTokens      int
	ProcessingTimeMs int64
	PromptSummary    string
	Metadata         string // free-form JSON, opaque to the recorder
	CreatedAt        time.Time
}

// Recorder accepts usage entries. Implementations must not return errors to
// the caller; Record is fire-and-forget.
type Recorder interface {
	Record(e Entry)
}

// SQLiteRecorder persists entries to a local SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewSQLite opens (creating if needed) the usage database at dbPath.
func NewSQLite(dbPath string, log *logrus.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open usage database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init usage schema: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SQLiteRecorder{db: db, log: log}, nil
}

// Close closes the database connection.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

// Record inserts one entry. Failures are logged at warn level and dropped.
func (r *SQLiteRecorder) Record(e Entry) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.PromptSummary = Truncate(e.PromptSummary)
	if e.TotalTokens == 0 {
		e.TotalTokens = e.InputTokens + e.OutputTokens
	}

	_, err := r.db.Exec(
		`INSERT INTO ai_usage
		 (id, service_type, provider, model_name, status,
		  input_tokens, output_tokens, total_tokens, processing_time_ms,
		  prompt_summary, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ServiceType, e.Provider, e.ModelName, e.Status,
		e.InputTokens, e.OutputTokens, e.TotalTokens, e.ProcessingTimeMs,
		e.PromptSummary, e.Metadata, e.CreatedAt,
	)
	if err != nil {
		r.log.WithError(err).Warn("usage record dropped")
	}
}

// Recent returns the n most recent entries, newest first.
func (r *SQLiteRecorder) Recent(n int) ([]Entry, error) {
	rows, err := r.db.Query(
		`SELECT id, service_type, provider, model_name, status,
		        input_tokens, output_tokens, total_tokens, processing_time_ms,
		        prompt_summary, metadata, created_at
		 FROM ai_usage ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ServiceType, &e.Provider, &e.ModelName, &e.Status,
			&e.InputTokens, &e.OutputTokens, &e.TotalTokens, &e.ProcessingTimeMs,
			&e.PromptSummary, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Truncate caps a prompt excerpt at the storage limit.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= promptSummaryLimit {
		return s
	}
	return string(runes[:promptSummaryLimit])
}

// Nop discards every entry. Used in tests and when no database is configured.
type Nop struct{}

func (Nop) Record(Entry) {}
