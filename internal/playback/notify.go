// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"sync"
	"time"
)

// Level is the severity of a user-facing notification.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

var displayDurations = map[Level]time.Duration{
	LevelInfo:  3 * time.Second,
	LevelWarn:  4 * time.Second,
	LevelError: 6 * time.Second,
}

const defaultInboxCapacity = 32

// Notification is one transient status message for the viewer.
type Notification struct {
	Seq        uint64    `json:"seq"`
	Level      Level     `json:"level"`
	Message    string    `json:"message"`
	DurationMS int64     `json:"durationMs"`
	Time       time.Time `json:"time"`
}

// Inbox buffers notifications until the viewer polls them. When full, the
// oldest entry is dropped.
type Inbox struct {
	mu       sync.Mutex
	items    []Notification
	seq      uint64
	capacity int
	now      func() time.Time
}

// NewInbox returns an inbox holding at most capacity notifications.
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = defaultInboxCapacity
	}
	return &Inbox{capacity: capacity, now: time.Now}
}

// Notify appends a notification.
func (in *Inbox) Notify(level Level, msg string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.seq++
	if len(in.items) == in.capacity {
		in.items = append(in.items[:0], in.items[1:]...)
	}
	in.items = append(in.items, Notification{
		Seq:        in.seq,
		Level:      level,
		Message:    msg,
		DurationMS: displayDurations[level].Milliseconds(),
		Time:       in.now(),
	})
}

// Drain returns and removes every pending notification.
func (in *Inbox) Drain() []Notification {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.items
	in.items = nil
	return out
}
