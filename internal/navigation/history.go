package navigation

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/halx/internal/models"
)

// HistoryStore persists history entries.
type HistoryStore interface {
	Create(entry *models.HistoryEntry) error
}

// HistoryRecorder writes each navigation of a session to a [HistoryStore].
type HistoryRecorder struct {
	store     HistoryStore
	sessionID string
	logger    *log.Logger
}

// NewHistoryRecorder creates a recorder for sessionID.
func NewHistoryRecorder(store HistoryStore, sessionID string, logger *log.Logger) *HistoryRecorder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &HistoryRecorder{store: store, sessionID: sessionID, logger: logger}
}

// SessionID returns the id entries are grouped under.
func (r *HistoryRecorder) SessionID() string {
	return r.sessionID
}

func (r *HistoryRecorder) Record(entry Entry) error {
	h := models.NewHistoryEntry(r.sessionID, entry.Href, entry.Title)
	if err := r.store.Create(h); err != nil {
		r.logger.Warn("failed to record history", "href", entry.Href, "error", err)
		return err
	}
	return nil
}
