package audit

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go driver, registered as "sqlite"
)

// Open opens (creating if necessary) the audit database at path and
// returns a ready Store. Unlike the teacher's checkpoint store, this
// uses the pure-Go modernc.org/sqlite driver rather than mattn's cgo
// binding, so the audit log never forces a cgo build just to log
// diagnostics.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	return NewStore(db)
}
