package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nijaru/vidsight/errors"
	"github.com/nijaru/vidsight/models"
	"github.com/sirupsen/logrus"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id TEXT PRIMARY KEY,
    filename TEXT NOT NULL,
    media_type TEXT NOT NULL,
    prompt TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    state TEXT NOT NULL,
    asset_name TEXT NOT NULL DEFAULT '',
    asset_uri TEXT NOT NULL DEFAULT '',
    result TEXT NOT NULL DEFAULT '',
    error_kind TEXT NOT NULL DEFAULT '',
    message TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

const (
	upsertJobQuery = `
        INSERT INTO jobs (
            id, filename, media_type, prompt, model, state,
            asset_name, asset_uri, result, error_kind, message,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            state = excluded.state,
            asset_name = excluded.asset_name,
            asset_uri = excluded.asset_uri,
            result = excluded.result,
            error_kind = excluded.error_kind,
            message = excluded.message,
            updated_at = excluded.updated_at
    `

	getJobQuery = `
        SELECT id, filename, media_type, prompt, model, state,
               asset_name, asset_uri, result, error_kind, message,
               created_at, updated_at
        FROM jobs WHERE id = ?
    `

	listJobsQuery = `
        SELECT id, filename, media_type, prompt, model, state,
               asset_name, asset_uri, result, error_kind, message,
               created_at, updated_at
        FROM jobs ORDER BY created_at DESC LIMIT ?
    `

	failInterruptedQuery = `
        UPDATE jobs SET
            state = ?,
            error_kind = ?,
            message = ?,
            updated_at = ?
        WHERE state NOT IN (?, ?)
    `
)

// InterruptedMessage is recorded on jobs that were still running when the
// process stopped.
const InterruptedMessage = "An error occurred: analysis was interrupted by a server restart"

// Store persists analysis jobs in SQLite.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	const op = "db.Open"
	logrus.WithField("path", dbPath).Info("Initializing database")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Internal(op, err, "failed to create database directory")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Internal(op, err, "failed to open database")
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(15 * time.Minute)

	if err := configurePragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := execSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Internal(op, err, "failed to connect to database")
	}

	return &Store{db: db}, nil
}

func configurePragmas(db *sql.DB) error {
	const op = "db.configurePragmas"

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Internal(op, err, fmt.Sprintf("failed to set pragma: %s", pragma))
		}
	}

	return nil
}

func execSchema(db *sql.DB) error {
	const op = "db.execSchema"

	return withTransaction(context.Background(), db, func(tx *sql.Tx) error {
		for _, stmt := range strings.Split(schema, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := tx.Exec(stmt); err != nil {
				return errors.Internal(op, err, "failed to execute schema statement")
			}
		}
		return nil
	})
}

func withTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Save inserts job or updates its mutable fields. UpdatedAt is set to the
// current time.
func (s *Store) Save(ctx context.Context, job *models.Job) error {
	const op = "Store.Save"

	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	err := withTransaction(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertJobQuery)
		if err != nil {
			return err
		}
		defer stmt.Close()

		_, err = stmt.ExecContext(ctx,
			job.ID,
			job.Filename,
			job.MediaType,
			job.Prompt,
			job.Model,
			string(job.State),
			job.AssetName,
			job.AssetURI,
			job.Result,
			job.ErrorKind,
			job.Message,
			job.CreatedAt,
			job.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return errors.Internal(op, err, "failed to save job")
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Job, error) {
	const op = "Store.Get"

	job, err := scanJob(s.db.QueryRowContext(ctx, getJobQuery, id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(op, nil, "job not found")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "failed to query job")
	}
	return job, nil
}

// List returns up to limit jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*models.Job, error) {
	const op = "Store.List"

	rows, err := s.db.QueryContext(ctx, listJobsQuery, limit)
	if err != nil {
		return nil, errors.Internal(op, err, "failed to query jobs")
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Internal(op, err, "failed to scan job")
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "failed to iterate jobs")
	}
	return jobs, nil
}

// FailInterrupted marks every job that is still in flight as failed and
// returns how many were changed. It is meant to run once at startup.
func (s *Store) FailInterrupted(ctx context.Context) (int64, error) {
	const op = "Store.FailInterrupted"

	res, err := s.db.ExecContext(ctx, failInterruptedQuery,
		string(models.StateFailed),
		string(errors.KindInternal),
		InterruptedMessage,
		time.Now().UTC(),
		string(models.StateDone),
		string(models.StateFailed),
	)
	if err != nil {
		return 0, errors.Internal(op, err, "failed to update interrupted jobs")
	}
	return res.RowsAffected()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*models.Job, error) {
	job := &models.Job{}
	var state string

	err := row.Scan(
		&job.ID,
		&job.Filename,
		&job.MediaType,
		&job.Prompt,
		&job.Model,
		&state,
		&job.AssetName,
		&job.AssetURI,
		&job.Result,
		&job.ErrorKind,
		&job.Message,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.State = models.State(state)
	return job, nil
}
