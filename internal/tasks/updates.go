package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchRoot Phase = iota
	FollowLinks
	CacheResources
	ExportResources
)

func (p Phase) String() string {
	switch p {
	case FetchRoot:
		return "fetch_root"
	case FollowLinks:
		return "follow_links"
	case CacheResources:
		return "cache_resources"
	case ExportResources:
		return "export_resources"
	default:
		return ""
	}
}

func fetchRootUpdate(href string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRoot,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching %s...", href),
	}
}

func followLinkUpdate(step, total, depth int, href string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FollowLinks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[depth %d] %s", depth, href),
	}
}

func fetchedUpdate(step, total int, node *Node) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FollowLinks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("✓ %s (%s)", node.Href, node.Kind),
		Data:    node,
	}
}

func fetchFailedUpdate(step, total int, href string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FollowLinks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("✗ %s: %v", href, err),
	}
}

func cacheUpdate(step, total int, href string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CacheResources,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Caching %s", step, total, href),
	}
}

func exportingUpdate(step, total int, href string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportResources,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, href),
	}
}

func exportCompletedUpdate(step, total int, href string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportResources,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, href, filesCount),
	}
}

func exportFailedUpdate(step, total int, href string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportResources,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, href, err),
	}
}
