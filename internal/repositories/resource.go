package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/halx/internal/models"
	"github.com/desertthunder/halx/internal/shared"
)

// ResourceRepository implements [models.Repository] for [models.CachedResource] persistence.
type ResourceRepository struct {
	db *sql.DB
}

// NewResourceRepository creates a new [ResourceRepository] with the given database connection
func NewResourceRepository(db *sql.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

const resourceColumns = `id, href, kind, status, body, fetched_at, created_at, updated_at`

// Create stores a resource, replacing any entry with the same href.
//
// The stored row keeps its original ID and creation time; res is updated to match.
func (r *ResourceRepository) Create(res *models.CachedResource) error {
	if res.ID() == "" {
		res.SetID(shared.GenerateID())
	}

	if err := res.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO resources (id, href, kind, status, body, fetched_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(href) DO UPDATE SET
			kind = excluded.kind,
			status = excluded.status,
			body = excluded.body,
			fetched_at = excluded.fetched_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		res.ID(), res.Href, res.Kind, res.Status, string(res.Body),
		res.FetchedAt, res.CreatedAt(), res.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert resource: %w", err)
	}

	var (
		id        string
		createdAt time.Time
	)
	if err := r.db.QueryRow(`SELECT id, created_at FROM resources WHERE href = ?`, res.Href).Scan(&id, &createdAt); err != nil {
		return fmt.Errorf("failed to read back resource: %w", err)
	}
	res.SetID(id)
	res.SetCreatedAt(createdAt)

	return nil
}

// Get retrieves a resource by ID
func (r *ResourceRepository) Get(id string) (*models.CachedResource, error) {
	row := r.db.QueryRow(`SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id)
	return r.scan(row.Scan, id)
}

// GetByHref retrieves the cached body for a resolved URL
func (r *ResourceRepository) GetByHref(href string) (*models.CachedResource, error) {
	row := r.db.QueryRow(`SELECT `+resourceColumns+` FROM resources WHERE href = ?`, href)
	return r.scan(row.Scan, href)
}

// Update modifies an existing resource in the database
func (r *ResourceRepository) Update(res *models.CachedResource) error {
	if err := res.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	res.SetUpdatedAt(now)

	query := `
		UPDATE resources
		SET kind = ?, status = ?, body = ?, fetched_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, res.Kind, res.Status, string(res.Body), res.FetchedAt, now, res.ID())
	if err != nil {
		return fmt.Errorf("failed to update resource: %w", err)
	}

	return expectRows(result, "resource", res.ID())
}

// Delete removes a resource by ID
func (r *ResourceRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}

	return expectRows(result, "resource", id)
}

// List retrieves cached resources, most recently fetched first.
//
// Supported criteria: "kind" (string), "prefix" (href prefix, string), "limit" (int).
func (r *ResourceRepository) List(criteria map[string]any) ([]*models.CachedResource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE 1 = 1`
	args := []any{}

	if kind, ok := criteria["kind"].(string); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	if prefix, ok := criteria["prefix"].(string); ok && prefix != "" {
		query += " AND substr(href, 1, ?) = ?"
		args = append(args, len(prefix), prefix)
	}

	query += " ORDER BY fetched_at DESC, href ASC"

	if limit := limitFrom(criteria); limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	var resources []*models.CachedResource
	for rows.Next() {
		res, err := r.scan(rows.Scan, "")
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return resources, nil
}

// Purge deletes resources fetched before cutoff and reports how many were removed.
func (r *ResourceRepository) Purge(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM resources WHERE fetched_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge resources: %w", err)
	}
	return result.RowsAffected()
}

// Clear deletes every cached resource.
func (r *ResourceRepository) Clear() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM resources`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear resources: %w", err)
	}
	return result.RowsAffected()
}

func (r *ResourceRepository) scan(scan func(...any) error, key string) (*models.CachedResource, error) {
	var (
		id        string
		href      string
		kind      string
		status    int
		body      string
		fetchedAt time.Time
		createdAt time.Time
		updatedAt time.Time
	)

	err := scan(&id, &href, &kind, &status, &body, &fetchedAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: resource %s", shared.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan resource: %w", err)
	}

	res := models.NewCachedResource(href, kind, status, []byte(body))
	res.SetID(id)
	res.FetchedAt = fetchedAt
	res.SetCreatedAt(createdAt)
	res.SetUpdatedAt(updatedAt)

	return res, nil
}

func expectRows(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, entity, strings.TrimSpace(id))
	}
	return nil
}
