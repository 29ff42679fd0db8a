package cache

import (
	"strconv"
	"strings"
)

// Key identifies one cached task list.
type Key string

// AllTasks is the key of the unscoped task list.
const AllTasks Key = "tasks"

// TasksByUser is the key of one user's task list.
func TasksByUser(userID int64) Key {
	return Key("tasks/user/" + strconv.FormatInt(userID, 10))
}

// HasPrefix reports whether k is prefix or lies under it.
func (k Key) HasPrefix(prefix string) bool {
	s := string(k)
	return s == prefix || strings.HasPrefix(s, strings.TrimSuffix(prefix, "/")+"/")
}
