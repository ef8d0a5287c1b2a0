// Package sqlite provides the public API for the SQLite catalog backend.
// It exposes the factory while keeping implementation details internal.
package sqlite

import (
	"github.com/mesh-intelligence/courses/internal/sqlite"
	"github.com/mesh-intelligence/courses/pkg/types"
)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".courses-db",
//	})
//	defer backend.Detach()
func NewBackend() types.Catalog {
	return sqlite.NewBackend()
}
