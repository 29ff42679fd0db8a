package models

// TaskFilter selects which tasks the dashboard shows.
type TaskFilter string

const (
	FilterAll       TaskFilter = "ALL"
	FilterPending   TaskFilter = TaskFilter(TaskStatusPending)
	FilterCompleted TaskFilter = TaskFilter(TaskStatusCompleted)
	FilterCanceled  TaskFilter = TaskFilter(TaskStatusCanceled)
)

// FilterTasks keeps the tasks matching filter, preserving order.
func FilterTasks(tasks []Task, filter TaskFilter) []Task {
	if filter == FilterAll || filter == "" {
		return CloneTasks(tasks)
	}
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if TaskFilter(t.Status) == filter {
			out = append(out, t)
		}
	}
	return out
}

// TaskStats are the dashboard header counters.
type TaskStats struct {
	Total     int
	Pending   int
	Completed int
	Canceled  int
}

// ComputeStats counts tasks per status.
func ComputeStats(tasks []Task) TaskStats {
	stats := TaskStats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case TaskStatusPending:
			stats.Pending++
		case TaskStatusCompleted:
			stats.Completed++
		case TaskStatusCanceled:
			stats.Canceled++
		}
	}
	return stats
}

// Count returns the counter shown next to a filter chip.
func (s TaskStats) Count(filter TaskFilter) int {
	switch filter {
	case FilterPending:
		return s.Pending
	case FilterCompleted:
		return s.Completed
	case FilterCanceled:
		return s.Canceled
	default:
		return s.Total
	}
}
