package reminder

import "time"

// Key identifies one dispatched reminder: the (event, window) pair.
type Key struct {
	EventID string
	Window  Window
}

// SentLog records which (event, window) reminders have been dispatched. Each
// entry is one-way: once marked it stays marked until swept. The log is
// owned exclusively by the reminder scheduler, whose ticks never overlap, so
// it carries no lock; it must not be shared with any other execution
// context.
type SentLog struct {
	entries map[Key]time.Time
}

// NewSentLog returns an empty log.
func NewSentLog() *SentLog {
	return &SentLog{entries: make(map[Key]time.Time)}
}

// Seen reports whether a reminder for the key was already dispatched.
func (l *SentLog) Seen(key Key) bool {
	_, ok := l.entries[key]
	return ok
}

// Mark records the key as dispatched at the given time.
func (l *SentLog) Mark(key Key, at time.Time) {
	l.entries[key] = at
}

// Sweep drops entries marked before the cutoff and returns how many were
// removed. The scheduler calls this once per cycle with now minus the
// lookahead horizon, so a long-lived process does not accumulate keys for
// events whose start has long passed.
func (l *SentLog) Sweep(cutoff time.Time) int {
	removed := 0
	for key, at := range l.entries {
		if at.Before(cutoff) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of recorded keys.
func (l *SentLog) Len() int {
	return len(l.entries)
}
