// package repositories provides persistence layer implementations for all model types.
//
// Each repository implements models.Repository[T] over one SQLite table.
package repositories

import (
	"database/sql"
	"fmt"
	"strings"
)

// NextSequence advances the counter row of <table>_sequence and returns the new value.
//
// History entries are ordered by sequence, not by timestamp.
func NextSequence(db *sql.DB, table string) (int, error) {
	var seq int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	if err := db.QueryRow(query).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", table, err)
	}
	return seq, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

func limitFrom(criteria map[string]any) int {
	switch v := criteria["limit"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
