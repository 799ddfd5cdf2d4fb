package watcher

import (
	"path/filepath"
	"time"
)

// EventType names a settled change.
type EventType string

const (
	EventAdded    EventType = "added"
	EventModified EventType = "modified"
	EventRemoved  EventType = "removed"
)

// Event is a settled change to one preset file. Removals carry only the path.
type Event struct {
	Type    EventType
	Path    string
	Size    int64
	ModTime time.Time
}

// FileName is the base name, the form catalog presets refer to files by.
func (e Event) FileName() string {
	return filepath.Base(e.Path)
}
