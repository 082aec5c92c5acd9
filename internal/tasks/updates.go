package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced consumers
}

// Operation phase enumeration
type Phase int

const (
	DiscoverFiles Phase = iota
	LoadCache
	ProcessFiles
	SaveCache
)

func (p Phase) String() string {
	switch p {
	case DiscoverFiles:
		return "discover_files"
	case LoadCache:
		return "load_cache"
	case ProcessFiles:
		return "process_files"
	case SaveCache:
		return "save_cache"
	default:
		return ""
	}
}

func discoveredUpdate(total int, root string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DiscoverFiles,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Found %d audio files under %s", total, root),
	}
}

func loadedCacheUpdate(entries int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadCache,
		Step:    0,
		Total:   entries,
		Message: fmt.Sprintf("Loaded %d cache entries", entries),
	}
}

func outcomeUpdate(step, total int, out Outcome) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ProcessFiles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %s", step, total, out.Status, out.Path),
		Data:    out,
	}
}

func savedCacheUpdate(entries int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveCache,
		Step:    0,
		Total:   entries,
		Message: fmt.Sprintf("Saved %d cache entries to %s", entries, path),
	}
}
