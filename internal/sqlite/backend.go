// Package sqlite implements the SQLite storage backend for the courses
// catalog. SQLite is the query engine; one JSONL file per table in DataDir is
// the source of truth, loaded on Attach and rewritten after every change.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/courses/pkg/types"
)

// dbFileName is the SQLite file created inside DataDir.
const dbFileName = "catalog.db"

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Compile-time interface check.
var _ types.Catalog = (*Backend)(nil)

// Backend implements the Catalog interface using SQLite as the query engine
// and JSONL files as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB

	courses  *coursesTable
	lessons  *lessonsTable
	quizzes  *quizzesTable
	progress *progressTable
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	b := &Backend{}
	b.courses = &coursesTable{backend: b}
	b.lessons = &lessonsTable{backend: b}
	b.quizzes = &quizzesTable{backend: b}
	b.progress = &progressTable{backend: b}
	return b
}

// Courses returns the course table accessor.
func (b *Backend) Courses() types.CourseTable { return b.courses }

// Lessons returns the lesson table accessor.
func (b *Backend) Lessons() types.LessonTable { return b.lessons }

// Quizzes returns the quiz table accessor.
func (b *Backend) Quizzes() types.QuizTable { return b.quizzes }

// Progress returns the progress table accessor.
func (b *Backend) Progress() types.ProgressTable { return b.progress }

// Attach initializes the backend with the given configuration.
// It creates DataDir if needed, builds a fresh SQLite schema, creates missing
// JSONL files and loads every JSONL file into SQLite.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	if config.DataDir == "" {
		config.DataDir = "."
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	// SQLite is a cache of the JSONL files; start from an empty database.
	dbPath := filepath.Join(config.DataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	// A single connection serializes writers and keeps PRAGMAs in effect.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return err
	}
	if err := initJSONLFiles(config.DataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadAllJSONL(db, config.DataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach releases all resources held by the backend. After Detach, all
// operations return ErrCatalogDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.attached = false
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		if err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
	}
	return nil
}

// Reset deletes every row from every table and truncates the JSONL files.
func (b *Backend) Reset() error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning reset: %w", err)
	}
	defer tx.Rollback()

	// Children first so foreign keys hold at every step.
	for i := len(jsonlTables) - 1; i >= 0; i-- {
		if _, err := tx.Exec("DELETE FROM " + jsonlTables[i].table); err != nil {
			return fmt.Errorf("clearing %s: %w", jsonlTables[i].table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset: %w", err)
	}

	names := make([]string, len(jsonlTables))
	for i, m := range jsonlTables {
		names[i] = m.table
	}
	return b.persist(names...)
}

// rlock takes the read lock and fails when the backend is detached.
// On success the caller must release b.mu with RUnlock.
func (b *Backend) rlock() error {
	b.mu.RLock()
	if !b.attached {
		b.mu.RUnlock()
		return types.ErrCatalogDetached
	}
	return nil
}

// lock takes the write lock and fails when the backend is detached.
// On success the caller must release b.mu with Unlock.
func (b *Backend) lock() error {
	b.mu.Lock()
	if !b.attached {
		b.mu.Unlock()
		return types.ErrCatalogDetached
	}
	return nil
}

// persist rewrites the JSONL files of the given tables from SQLite.
// The caller must hold b.mu.
func (b *Backend) persist(tables ...string) error {
	for _, t := range tables {
		if err := persistTableJSONL(b.db, b.config.DataDir, t); err != nil {
			return err
		}
	}
	return nil
}

func createSchema(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

// newUUID generates a UUID v7 string.
func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating UUID v7: %w", err)
	}
	return id.String(), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Hand-edited JSONL may carry plain RFC 3339 timestamps.
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// validID rejects empty and malformed IDs before they reach SQL.
func validID(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	if _, err := uuid.Parse(id); err != nil {
		return types.ErrInvalidID
	}
	return nil
}
