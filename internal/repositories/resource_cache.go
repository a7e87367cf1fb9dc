package repositories

import (
	"fmt"

	"github.com/desertthunder/halx/internal/models"
)

// ResourceCacheAdapter implements tasks.ResourceCacher using [ResourceRepository].
//
// A body that is byte-identical to the cached one is not rewritten.
type ResourceCacheAdapter struct {
	repo *ResourceRepository
}

// NewResourceCacheAdapter creates a new ResourceCacheAdapter with the given repository
func NewResourceCacheAdapter(repo *ResourceRepository) *ResourceCacheAdapter {
	return &ResourceCacheAdapter{repo: repo}
}

// CacheResource stores body under href, superseding any older fetch.
func (a *ResourceCacheAdapter) CacheResource(href, kind string, status int, body []byte) error {
	existing, err := a.repo.GetByHref(href)
	if err == nil && existing != nil && existing.Kind == kind && string(existing.Body) == string(body) {
		return nil
	}

	if err := a.repo.Create(models.NewCachedResource(href, kind, status, body)); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to cache resource: %w", err)
	}

	return nil
}

// CachedBody returns the last cached body for href.
func (a *ResourceCacheAdapter) CachedBody(href string) ([]byte, bool) {
	res, err := a.repo.GetByHref(href)
	if err != nil {
		return nil, false
	}
	return res.Body, true
}
