package cache

import "github.com/yukikurage/task-management-client/internal/models"

// Helpers for building Apply and Reconcile functions. They never modify the
// slice they are given in place beyond what the cache already cloned.

// InsertTask puts task at the front of the list.
func InsertTask(tasks []models.Task, task models.Task) []models.Task {
	out := make([]models.Task, 0, len(tasks)+1)
	out = append(out, task)
	return append(out, tasks...)
}

// ReplaceTask swaps the task with id for task, or inserts task at the front
// when id is absent and task is not already listed.
func ReplaceTask(tasks []models.Task, id int64, task models.Task) []models.Task {
	for i := range tasks {
		if tasks[i].ID == id {
			tasks[i] = task
			return RemoveDuplicates(tasks)
		}
	}
	for i := range tasks {
		if tasks[i].ID == task.ID {
			tasks[i] = task
			return tasks
		}
	}
	return InsertTask(tasks, task)
}

// UpdateTask applies fn to the task with id. Missing ids are ignored.
func UpdateTask(tasks []models.Task, id int64, fn func(models.Task) models.Task) []models.Task {
	for i := range tasks {
		if tasks[i].ID == id {
			tasks[i] = fn(tasks[i])
		}
	}
	return tasks
}

// RemoveTask drops the task with id.
func RemoveTask(tasks []models.Task, id int64) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// RemoveDuplicates keeps the first occurrence of every id.
func RemoveDuplicates(tasks []models.Task) []models.Task {
	seen := make(map[int64]bool, len(tasks))
	out := tasks[:0]
	for _, t := range tasks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}
