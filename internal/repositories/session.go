package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/halx/internal/models"
	"github.com/desertthunder/halx/internal/shared"
)

// SessionRepository implements [models.Repository] for [models.Session] persistence.
//
// Logged out sessions are soft deleted and excluded from every query.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, subject, access_token, refresh_token, token_type, id_token, expires_at, created_at, updated_at, deleted_at`

// Create inserts a new session with a generated ID
func (r *SessionRepository) Create(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	session.SetID(shared.GenerateID())

	query := `
		INSERT INTO sessions (id, subject, access_token, refresh_token, token_type, id_token, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		session.ID(), session.Subject, session.AccessToken, session.RefreshToken,
		session.TokenType, session.IDToken, nullTime(session.ExpiresAt),
		session.CreatedAt(), session.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves an active session by ID
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	row := r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ? AND deleted_at IS NULL`, id)
	return r.scan(row.Scan, id)
}

// Current returns the most recently updated active session.
func (r *SessionRepository) Current() (*models.Session, error) {
	row := r.db.QueryRow(`
		SELECT ` + sessionColumns + ` FROM sessions
		WHERE deleted_at IS NULL
		ORDER BY updated_at DESC
		LIMIT 1
	`)
	return r.scan(row.Scan, "current")
}

// Update stores renewed tokens for an active session
func (r *SessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	session.SetUpdatedAt(now)

	query := `
		UPDATE sessions
		SET subject = ?, access_token = ?, refresh_token = ?, token_type = ?, id_token = ?, expires_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		session.Subject, session.AccessToken, session.RefreshToken, session.TokenType,
		session.IDToken, nullTime(session.ExpiresAt), now, session.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return expectRows(result, "session", session.ID())
}

// Save creates the session when it has no ID yet and updates it otherwise.
func (r *SessionRepository) Save(session *models.Session) error {
	if session.ID() == "" {
		return r.Create(session)
	}
	return r.Update(session)
}

// Delete soft-deletes a session by ID
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE sessions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return expectRows(result, "session", id)
}

// Clear soft-deletes every active session.
func (r *SessionRepository) Clear() error {
	if _, err := r.db.Exec(`UPDATE sessions SET deleted_at = ? WHERE deleted_at IS NULL`, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	return nil
}

// List retrieves active sessions, newest first. Supported criteria: "subject" (string).
func (r *SessionRepository) List(criteria map[string]any) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE deleted_at IS NULL`
	args := []any{}

	if subject, ok := criteria["subject"].(string); ok && subject != "" {
		query += " AND subject = ?"
		args = append(args, subject)
	}

	query += " ORDER BY updated_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := r.scan(rows.Scan, "")
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

func (r *SessionRepository) scan(scan func(...any) error, key string) (*models.Session, error) {
	var (
		id           string
		subject      string
		accessToken  string
		refreshToken string
		tokenType    string
		idToken      string
		expiresAt    sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := scan(&id, &subject, &accessToken, &refreshToken, &tokenType, &idToken, &expiresAt, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", shared.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	session := models.NewSession(accessToken, refreshToken, tokenType, idToken, expiresAt.Time)
	session.SetID(id)
	session.Subject = subject
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		session.DeletedAt = &deletedAt.Time
	}

	return session, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
