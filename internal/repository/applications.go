// Package repository persists submitted applications in PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"assistance-portal/internal/common/logger"
	"assistance-portal/internal/models"
)

var (
	ErrDatabaseInsertFailed = errors.New("DATABASE_INSERT_FAILED")
	ErrDuplicateApplication = errors.New("DUPLICATE_APPLICATION")
	ErrApplicationNotFound  = errors.New("APPLICATION_NOT_FOUND")
)

// Schema creates the tables used by the repository. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS applications (
	reference    TEXT PRIMARY KEY,
	document     JSONB NOT NULL,
	language     TEXT NOT NULL,
	status       TEXT NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS audit_log (
	id            BIGSERIAL PRIMARY KEY,
	event_type    TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	resource_id   TEXT NOT NULL,
	details       JSONB,
	created_at    TIMESTAMPTZ NOT NULL
);`

// Applications reads and writes application rows.
type Applications struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewApplications(db *sql.DB, log logger.Logger) *Applications {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Applications{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "applications-repository"}),
		now:    time.Now,
	}
}

// Migrate applies Schema.
func (r *Applications) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate applications schema: %w", err)
	}
	return nil
}

// Insert records app. A second insert with the same reference returns
// ErrDuplicateApplication and leaves the first row untouched.
func (r *Applications) Insert(ctx context.Context, app *models.Application) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM applications WHERE reference = $1
		)`, app.Reference).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: duplicate check failed: %v", ErrDatabaseInsertFailed, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateApplication, app.Reference)
	}

	documentJSON, err := json.Marshal(app.Document)
	if err != nil {
		return fmt.Errorf("%w: marshal document: %v", ErrDatabaseInsertFailed, err)
	}

	status := app.Status
	if status == "" {
		status = models.ApplicationStatusSubmitted
	}
	createdAt := r.now().UTC()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO applications (
			reference, document, language, status, submitted_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		app.Reference,
		documentJSON,
		app.Language,
		status,
		app.SubmittedAt.UTC(),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert failed: %v", ErrDatabaseInsertFailed, err)
	}

	// Audit entry is best-effort.
	details, _ := json.Marshal(map[string]interface{}{
		"country":  app.Document.Country,
		"language": app.Language,
	})
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"application_submitted", "application", app.Reference, details, createdAt,
	); err != nil {
		r.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":     err,
			"reference": app.Reference,
		})
	}

	r.logger.Info("application recorded", map[string]interface{}{
		"reference": app.Reference,
		"country":   app.Document.Country,
	})
	return nil
}

// Get loads an application by reference.
func (r *Applications) Get(ctx context.Context, reference string) (*models.Application, error) {
	var (
		app          models.Application
		documentJSON []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT reference, document, language, status, submitted_at
		FROM applications WHERE reference = $1`, reference).
		Scan(&app.Reference, &documentJSON, &app.Language, &app.Status, &app.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, reference)
	}
	if err != nil {
		return nil, fmt.Errorf("query application %s: %w", reference, err)
	}
	if err := json.Unmarshal(documentJSON, &app.Document); err != nil {
		return nil, fmt.Errorf("decode application %s: %w", reference, err)
	}
	return &app, nil
}

// UpdateStatus moves an application to status.
func (r *Applications) UpdateStatus(ctx context.Context, reference, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE applications SET status = $2, updated_at = $3 WHERE reference = $1`,
		reference, status, r.now().UTC())
	if err != nil {
		return fmt.Errorf("update application %s: %w", reference, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrApplicationNotFound, reference)
	}
	return nil
}
