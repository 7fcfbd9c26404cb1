package sqlite

import (
	"bytes"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	_ "github.com/mattn/go-sqlite3"
	tikresolve "github.com/perpetuallyhorni/tikresolve/internal"
	"github.com/perpetuallyhorni/tikresolve/pkg/storage"
)

//go:embed queries/*.sql
//go:embed queries/*.sql.tpl
var queryFS embed.FS

// DB is a SQLite implementation of the storage.Storer interface.
type DB struct {
	Conn *sql.DB // The raw database connection, exposed for extensibility.
}

var _ storage.Storer = (*DB)(nil)

// New creates a new SQLite database connection and ensures the schema is up to date.
// It returns a concrete *DB type to allow for extension.
func New(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{Conn: db}
	if err := instance.createSchema(); err != nil {
		_ = instance.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}

	return instance, nil
}

// getQuery reads a raw SQL query from the embedded filesystem.
func getQuery(name string) (string, error) {
	b, err := queryFS.ReadFile("queries/" + name)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded query %s: %w", name, err)
	}
	return string(b), nil
}

// getParsedQuery parses and executes a SQL template from the embedded filesystem.
func getParsedQuery(templateName string, data any) (string, error) {
	t, err := template.ParseFS(queryFS, "queries/"+templateName)
	if err != nil {
		return "", fmt.Errorf("failed to parse embedded query template %s: %w", templateName, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute embedded query template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

func (db *DB) createSchema() error {
	query, err := getQuery("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Conn.Exec(query)
	return err
}

// AddResolution upserts the record for a post.
func (db *DB) AddResolution(rec storage.ResolutionRecord) error {
	query, err := getQuery("upsert_resolution.sql")
	if err != nil {
		return err
	}
	resolvedAt := rec.ResolvedAt
	if resolvedAt.IsZero() {
		resolvedAt = time.Now()
	}
	_, err = db.Conn.Exec(query, rec.PostID, rec.Author, string(rec.Kind), rec.Filename, rec.URL, resolvedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert resolution for post %s: %w", rec.PostID, err)
	}
	return nil
}

// GetResolution returns the stored record for a post.
func (db *DB) GetResolution(postID string) (*storage.ResolutionRecord, error) {
	query, err := getQuery("get_resolution.sql")
	if err != nil {
		return nil, err
	}
	var rec storage.ResolutionRecord
	var kind string
	err = db.Conn.QueryRow(query, postID).Scan(&rec.PostID, &rec.Author, &kind, &rec.Filename, &rec.URL, &rec.ResolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get resolution for post %s: %w", postID, err)
	}
	rec.Kind = tikresolve.Kind(kind)
	return &rec, nil
}

// ListResolutions returns the most recent records, newest first.
// An empty kind lists every kind.
func (db *DB) ListResolutions(kind tikresolve.Kind, limit int) ([]storage.ResolutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query, err := getParsedQuery("list_resolutions.sql.tpl", struct{ FilterKind bool }{FilterKind: kind != ""})
	if err != nil {
		return nil, err
	}
	args := []any{limit}
	if kind != "" {
		args = []any{string(kind), limit}
	}
	rows, err := db.Conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("failed to close rows: %v", err)
		}
	}()

	var records []storage.ResolutionRecord
	for rows.Next() {
		var rec storage.ResolutionRecord
		var k string
		if err := rows.Scan(&rec.PostID, &rec.Author, &k, &rec.Filename, &rec.URL, &rec.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resolution row: %w", err)
		}
		rec.Kind = tikresolve.Kind(k)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return records, nil
}

// DeleteResolution deletes the record of a post.
func (db *DB) DeleteResolution(postID string) error {
	query, err := getQuery("delete_resolution.sql")
	if err != nil {
		return err
	}
	_, err = db.Conn.Exec(query, postID)
	if err != nil {
		return fmt.Errorf("failed to delete resolution for post %s: %w", postID, err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.Conn.Close()
}
