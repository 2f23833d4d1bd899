// internal/database/db.go
package database

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// Database wraps the SQLite database connection
type Database struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path
func Open(path string) (*Database, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	d := &Database{db: db}
	if err := d.init(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// init creates the database schema
func (d *Database) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		stack TEXT NOT NULL,
		model TEXT NOT NULL,
		head_hash TEXT,
		last_snapshot_id TEXT,
		commit_count INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS generation_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		commit_hash TEXT NOT NULL,
		commit_type TEXT NOT NULL,
		model TEXT NOT NULL,
		stack TEXT NOT NULL,
		variant_count INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (project_id) REFERENCES projects(id)
	);

	CREATE INDEX IF NOT EXISTS idx_generation_records_project ON generation_records(project_id);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// SaveProject inserts or updates a project index entry
func (d *Database) SaveProject(project *Project) error {
	now := time.Now()
	project.UpdatedAt = now
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}

	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO projects
		(id, name, stack, model, head_hash, last_snapshot_id, commit_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.Name, project.Stack, project.Model, project.HeadHash,
		project.LastSnapshotID, project.CommitCount,
		project.CreatedAt.Unix(), project.UpdatedAt.Unix())
	return err
}

// GetProject retrieves a project by ID
func (d *Database) GetProject(id string) (*Project, error) {
	row := d.db.QueryRow(`
		SELECT id, name, stack, model, head_hash, last_snapshot_id, commit_count, created_at, updated_at
		FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// ListProjects retrieves all projects, most recently updated first
func (d *Database) ListProjects() ([]*Project, error) {
	rows, err := d.db.Query(`
		SELECT id, name, stack, model, head_hash, last_snapshot_id, commit_count, created_at, updated_at
		FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project := &Project{}
		var createdAt, updatedAt int64
		err := rows.Scan(&project.ID, &project.Name, &project.Stack, &project.Model,
			&project.HeadHash, &project.LastSnapshotID, &project.CommitCount,
			&createdAt, &updatedAt)
		if err != nil {
			return nil, err
		}
		project.CreatedAt = time.Unix(createdAt, 0)
		project.UpdatedAt = time.Unix(updatedAt, 0)
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// DeleteProject deletes a project and its generation records
func (d *Database) DeleteProject(id string) error {
	if _, err := d.db.Exec("DELETE FROM generation_records WHERE project_id = ?", id); err != nil {
		return err
	}
	_, err := d.db.Exec("DELETE FROM projects WHERE id = ?", id)
	return err
}

// SaveSetting saves or updates a setting
func (d *Database) SaveSetting(key, value string) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)`, key, value, time.Now())
	return err
}

// GetSetting retrieves a setting by key
func (d *Database) GetSetting(key string) (string, error) {
	var value string
	err := d.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	return value, err
}

// RecordGeneration appends one finished generation attempt
func (d *Database) RecordGeneration(record *GenerationRecord) (int64, error) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	result, err := d.db.Exec(`
		INSERT INTO generation_records
		(project_id, commit_hash, commit_type, model, stack, variant_count, outcome, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ProjectID, record.CommitHash, record.CommitType, record.Model, record.Stack,
		record.VariantCount, record.Outcome, record.DurationMS, record.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	record.ID = id
	return id, nil
}

// ListGenerations retrieves the most recent generation records for a project
func (d *Database) ListGenerations(projectID string, limit int) ([]*GenerationRecord, error) {
	rows, err := d.db.Query(`
		SELECT id, project_id, commit_hash, commit_type, model, stack, variant_count, outcome, duration_ms, created_at
		FROM generation_records WHERE project_id = ? ORDER BY created_at DESC LIMIT ?`,
		projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*GenerationRecord
	for rows.Next() {
		record := &GenerationRecord{}
		var createdAt int64
		err := rows.Scan(&record.ID, &record.ProjectID, &record.CommitHash, &record.CommitType,
			&record.Model, &record.Stack, &record.VariantCount, &record.Outcome,
			&record.DurationMS, &createdAt)
		if err != nil {
			return nil, err
		}
		record.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanProject(row *sql.Row) (*Project, error) {
	project := &Project{}
	var createdAt, updatedAt int64
	err := row.Scan(&project.ID, &project.Name, &project.Stack, &project.Model,
		&project.HeadHash, &project.LastSnapshotID, &project.CommitCount,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	project.CreatedAt = time.Unix(createdAt, 0)
	project.UpdatedAt = time.Unix(updatedAt, 0)
	return project, nil
}
