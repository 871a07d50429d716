// Package event provides the ordered, append-only event log that forms the
// externally observable audit trail of the registry and marketplace.
//
// Records are assigned strictly increasing sequence numbers in append order
// and are never mutated or removed. Payload types are defined by the
// emitting packages.
package event

import (
	"sync"
	"time"
)

// Type discriminates event payloads.
type Type string

// Record is one immutable entry in the log.
type Record struct {
	Seq     uint64
	Type    Type
	Time    time.Time
	Payload interface{}
}

// Log is an in-memory append-only event log, safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	records []Record
}

// NewLog creates an empty event log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a record to the log and returns it with its assigned
// sequence number. Sequence numbers start at 1.
func (l *Log) Append(t Type, payload interface{}) Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := Record{
		Seq:     uint64(len(l.records)) + 1,
		Type:    t,
		Time:    time.Now(),
		Payload: payload,
	}
	l.records = append(l.records, rec)
	return rec
}

// All returns every record in append order.
func (l *Log) All() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Record(nil), l.records...)
}

// ByType returns every record of the given type, in append order.
func (l *Log) ByType(t Type) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Record
	for _, rec := range l.records {
		if rec.Type == t {
			out = append(out, rec)
		}
	}
	return out
}

// Last returns the most recent record of the given type, or false if none
// has been appended.
func (l *Log) Last(t Type) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].Type == t {
			return l.records[i], true
		}
	}
	return Record{}, false
}

// Len returns the number of records in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
