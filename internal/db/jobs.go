package db

import (
	"context"
	"fmt"
	"time"
)

// ConversionJob records one completed (or failed) conversion request.
// History is best effort: rows are written only when a database is
// configured and a failed insert never fails the request.
type ConversionJob struct {
	ID          string    `json:"id"`
	Endpoint    string    `json:"endpoint"`
	Filename    string    `json:"filename,omitempty"`
	Language    string    `json:"language,omitempty"`
	PageCount   int       `json:"pageCount"`
	LineCount   int       `json:"lineCount"`
	Duration    float64   `json:"duration"` // seconds
	Status      string    `json:"status"`   // "ok" or "error"
	Error       string    `json:"error,omitempty"`
	DocumentURL string    `json:"documentUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EnsureSchema creates the history table when it is missing.
func EnsureSchema(ctx context.Context) error {
	if Pool == nil {
		return fmt.Errorf("database not available")
	}
	_, err := Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversion_jobs (
			id           UUID PRIMARY KEY,
			endpoint     TEXT NOT NULL,
			filename     TEXT NOT NULL DEFAULT '',
			language     TEXT NOT NULL DEFAULT '',
			page_count   INT NOT NULL DEFAULT 0,
			line_count   INT NOT NULL DEFAULT 0,
			duration     DOUBLE PRECISION NOT NULL DEFAULT 0,
			status       TEXT NOT NULL,
			error        TEXT NOT NULL DEFAULT '',
			document_url TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create conversion_jobs table: %w", err)
	}
	return nil
}

// SaveJob inserts one history row.
func SaveJob(ctx context.Context, job *ConversionJob) error {
	if Pool == nil {
		return fmt.Errorf("database not available")
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	_, err := Pool.Exec(ctx, `
		INSERT INTO conversion_jobs
			(id, endpoint, filename, language, page_count, line_count,
			 duration, status, error, document_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		job.ID, job.Endpoint, job.Filename, job.Language, job.PageCount,
		job.LineCount, job.Duration, job.Status, job.Error, job.DocumentURL,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save conversion job: %w", err)
	}
	return nil
}

// GetRecentJobs returns up to limit rows, newest first.
func GetRecentJobs(ctx context.Context, limit int) ([]ConversionJob, error) {
	if Pool == nil {
		return nil, fmt.Errorf("database not available")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := Pool.Query(ctx, `
		SELECT id, endpoint, filename, language, page_count, line_count,
		       duration, status, error, document_url, created_at
		FROM conversion_jobs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversion jobs: %w", err)
	}
	defer rows.Close()

	var jobs []ConversionJob
	for rows.Next() {
		var j ConversionJob
		if err := rows.Scan(&j.ID, &j.Endpoint, &j.Filename, &j.Language,
			&j.PageCount, &j.LineCount, &j.Duration, &j.Status, &j.Error,
			&j.DocumentURL, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversion job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
