// Package provenance records the ordered sequence of processing steps that
// produced a label image or mask collection, so downstream consumers can
// audit how a result came to be.
package provenance

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Entry describes one processing step. Arguments is a generic key/value
// payload; consumers only ever display it.
type Entry struct {
	Method    string         `json:"method"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Log is an append-only sequence of processing-step entries.
type Log struct {
	Entries []Entry `json:"entries"`
}

// Append records a processing step with the current time.
func (l *Log) Append(method string, arguments map[string]any) {
	l.Entries = append(l.Entries, Entry{
		Method:    method,
		Arguments: arguments,
		Timestamp: time.Now().UTC(),
	})
}

// Clone returns a deep copy of the log so that derived products do not
// share entry storage with their source.
func (l *Log) Clone() *Log {
	if l == nil {
		return &Log{}
	}
	out := &Log{Entries: make([]Entry, len(l.Entries))}
	for i, e := range l.Entries {
		clone := Entry{Method: e.Method, Timestamp: e.Timestamp}
		if e.Arguments != nil {
			clone.Arguments = make(map[string]any, len(e.Arguments))
			for k, v := range e.Arguments {
				clone.Arguments[k] = v
			}
		}
		out.Entries[i] = clone
	}
	return out
}

// Len returns the number of recorded steps.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Entries)
}

// Encode serializes the log to JSON.
func (l *Log) Encode() ([]byte, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, errors.Wrap(err, "encoding provenance log")
	}
	return data, nil
}

// Decode deserializes a log previously produced by Encode.
func Decode(data []byte) (*Log, error) {
	var l Log
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, errors.Wrap(err, "decoding provenance log")
	}
	return &l, nil
}
