package session

import (
	"fmt"
	"sync"
	"time"
)

// maxEvents bounds the per-session event log. Older entries are dropped.
const maxEvents = 100

// Event is one timestamped entry in a session's activity log.
type Event struct {
	Time    time.Time
	Message string
}

// eventLog is a bounded, concurrency-safe event list.
type eventLog struct {
	mu      sync.Mutex
	entries []Event
}

func (l *eventLog) add(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, Event{Time: time.Now(), Message: message})
	if len(l.entries) > maxEvents {
		l.entries = l.entries[len(l.entries)-maxEvents:]
	}
}

func (l *eventLog) addf(format string, args ...any) {
	l.add(fmt.Sprintf(format, args...))
}

// snapshot returns a copy of the log, oldest first.
func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}
