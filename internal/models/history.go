package models

import (
	"errors"
	"strings"
)

// HistoryEntry records one navigation within a browsing session.
type HistoryEntry struct {
	base
	Sequence  int
	SessionID string
	Href      string
	Title     string
}

func NewHistoryEntry(sessionID, href, title string) *HistoryEntry {
	return &HistoryEntry{base: newBase(), SessionID: sessionID, Href: href, Title: title}
}

func (h *HistoryEntry) Validate() error {
	if h.SessionID == "" {
		return errors.New("session id is required")
	}
	if strings.TrimSpace(h.Href) == "" {
		return errors.New("href is required")
	}
	return nil
}
