package forms

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"strings"

	"github.com/desertthunder/halx/internal/hal"
)

// PrefillStatuses are target statuses read as "no prefill data". They model
// resources that accept POST or PUT without answering GET.
var PrefillStatuses = []int{http.StatusNotFound, http.StatusMethodNotAllowed}

// ResourceFetcher fetches and decodes a HAL resource.
type ResourceFetcher interface {
	Resource(ctx context.Context, target any, ignoredStatuses ...int) (*hal.Document, error)
}

// PrefillTarget returns the href whose attributes prefill t, or "" when t
// submits back to the resource that carries it.
func PrefillTarget(t hal.Template, current *hal.Resource, currentURL string) string {
	target := strings.TrimSpace(t.Target)
	if target == "" || target == currentURL || strings.Contains(target, "{") {
		return ""
	}
	if current != nil && current.Self() == target {
		return ""
	}
	return target
}

// Prefill returns the initial values for t: the attributes of current with
// those of the template target merged over them.
//
// The parent attributes are always returned, also alongside an error from the
// target fetch.
func Prefill(ctx context.Context, client ResourceFetcher, t hal.Template, current *hal.Resource, currentURL string) (map[string]any, error) {
	data := map[string]any{}
	if current != nil {
		data = current.Data()
	}

	href := PrefillTarget(t, current, currentURL)
	if href == "" {
		return data, nil
	}

	doc, err := client.Resource(ctx, hal.URL(href), PrefillStatuses...)
	if err != nil {
		return data, fmt.Errorf("prefill from %s: %w", href, err)
	}
	if doc.Resource != nil {
		maps.Copy(data, doc.Resource.Data())
	}
	return data, nil
}
