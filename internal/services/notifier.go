package services

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Notifier shows short-lived user feedback.
type Notifier interface {
	Success(title, message string)
	Error(title, message string)
}

// NopNotifier drops notifications.
type NopNotifier struct{}

func (NopNotifier) Success(string, string) {}
func (NopNotifier) Error(string, string)   {}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Success(title, message string) {
	n.Logger.Info(title, "notification", "success", "message", message)
}

func (n LogNotifier) Error(title, message string) {
	n.Logger.Warn(title, "notification", "error", "message", message)
}

// WriterNotifier prints one line per notification.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Success(title, message string) {
	n.print("✓", title, message)
}

func (n *WriterNotifier) Error(title, message string) {
	n.print("✗", title, message)
}

func (n *WriterNotifier) print(mark, title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if message == "" {
		fmt.Fprintf(n.w, "%s %s\n", mark, title)
		return
	}
	fmt.Fprintf(n.w, "%s %s: %s\n", mark, title, message)
}
