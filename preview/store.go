package preview

import (
	"database/sql"

	"github.com/hazyhaar/previewd/preview/internal/store"
)

// ProjectStore re-exports the SQLite project store for daemon wiring.
type ProjectStore = store.Store

// OpenStore opens (or creates) the project store at path and returns the
// underlying handle for the change watcher.
func OpenStore(path string) (*ProjectStore, *sql.DB, error) {
	return store.Open(path)
}
