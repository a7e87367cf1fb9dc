package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// CachedResource is a fetched hypermedia body keyed by its resolved URL.
type CachedResource struct {
	base
	Href      string
	Kind      string
	Status    int
	Body      []byte
	FetchedAt time.Time
}

// NewCachedResource creates a cache entry fetched now.
func NewCachedResource(href, kind string, status int, body []byte) *CachedResource {
	r := &CachedResource{base: newBase(), Href: href, Kind: kind, Status: status, Body: body}
	r.FetchedAt = r.createdAt
	return r
}

func (r *CachedResource) Validate() error {
	if strings.TrimSpace(r.Href) == "" {
		return errors.New("href is required")
	}
	if r.Kind == "" {
		return errors.New("kind is required")
	}
	if !json.Valid(r.Body) {
		return errors.New("body must be valid JSON")
	}
	return nil
}

// Age reports how long ago the resource was fetched.
func (r *CachedResource) Age(now time.Time) time.Duration {
	return now.Sub(r.FetchedAt)
}
