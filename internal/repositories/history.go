package repositories

import (
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/desertthunder/halx/internal/models"
	"github.com/desertthunder/halx/internal/shared"
)

// HistoryRepository implements [models.Repository] for [models.HistoryEntry] persistence.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new [HistoryRepository] with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const historyColumns = `id, sequence, session_id, href, title, created_at, updated_at`

// Create inserts a new history entry with generated ID and sequence
func (r *HistoryRepository) Create(entry *models.HistoryEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "history")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	entry.SetID(shared.GenerateID())
	entry.Sequence = sequence

	query := `
		INSERT INTO history (id, sequence, session_id, href, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, entry.ID(), sequence, entry.SessionID, entry.Href, entry.Title, entry.CreatedAt(), entry.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	return nil
}

// Get retrieves a history entry by ID
func (r *HistoryRepository) Get(id string) (*models.HistoryEntry, error) {
	row := r.db.QueryRow(`SELECT `+historyColumns+` FROM history WHERE id = ?`, id)
	return r.scan(row.Scan, id)
}

// Update changes the title of an entry, the only mutable field
func (r *HistoryRepository) Update(entry *models.HistoryEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	entry.SetUpdatedAt(now)

	result, err := r.db.Exec(`UPDATE history SET title = ?, updated_at = ? WHERE id = ?`, entry.Title, now, entry.ID())
	if err != nil {
		return fmt.Errorf("failed to update history entry: %w", err)
	}

	return expectRows(result, "history entry", entry.ID())
}

// Delete removes a history entry by ID
func (r *HistoryRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM history WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}

	return expectRows(result, "history entry", id)
}

// List retrieves history entries in navigation order.
//
// Supported criteria: "session_id" (string) and "limit" (int), which keeps the most recent entries.
func (r *HistoryRepository) List(criteria map[string]any) ([]*models.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM history WHERE 1 = 1`
	args := []any{}

	if sessionID, ok := criteria["session_id"].(string); ok && sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}

	query += " ORDER BY sequence DESC"

	if limit := limitFrom(criteria); limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		entry, err := r.scan(rows.Scan, "")
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	slices.Reverse(entries)
	return entries, nil
}

// Clear deletes the entries of one session, or all entries when sessionID is empty.
func (r *HistoryRepository) Clear(sessionID string) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if sessionID == "" {
		result, err = r.db.Exec(`DELETE FROM history`)
	} else {
		result, err = r.db.Exec(`DELETE FROM history WHERE session_id = ?`, sessionID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return result.RowsAffected()
}

func (r *HistoryRepository) scan(scan func(...any) error, key string) (*models.HistoryEntry, error) {
	var (
		id        string
		sequence  int
		sessionID string
		href      string
		title     string
		createdAt time.Time
		updatedAt time.Time
	)

	err := scan(&id, &sequence, &sessionID, &href, &title, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: history entry %s", shared.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan history entry: %w", err)
	}

	entry := models.NewHistoryEntry(sessionID, href, title)
	entry.SetID(id)
	entry.Sequence = sequence
	entry.SetCreatedAt(createdAt)
	entry.SetUpdatedAt(updatedAt)

	return entry, nil
}
