// Package history reconstructs when a unit of work started and finished from its status changes.
package history

import (
	"errors"
	"slices"
	"time"
)

var (
	// ErrNotStarted means the history never transitions into a started status.
	ErrNotStarted = errors.New("never started")
	// ErrNotFinished means no finishing transition follows the final start.
	ErrNotFinished = errors.New("never finished after its last start")
)

// StatusChangeEvent is a single transition into ToStatus.
// Index is the event's position in the source history and breaks timestamp ties.
type StatusChangeEvent struct {
	Index     int
	Timestamp time.Time
	ToStatus  string
}

// Resolver matches status changes against the started and finished label sets.
type Resolver struct {
	started  map[string]bool
	finished map[string]bool
}

// NewResolver creates a Resolver. A transition matches a side when its target
// status equals any of that side's labels.
func NewResolver(started, finished []string) *Resolver {
	return &Resolver{started: labelSet(started), finished: labelSet(finished)}
}

// Resolve returns the instant of the final start and the first finish after it.
// Reopened work is therefore measured from its last restart.
func (r *Resolver) Resolve(events []StatusChangeEvent) (startedAt, resolvedAt time.Time, err error) {
	ordered := slices.Clone(events)
	slices.SortStableFunc(ordered, func(a, b StatusChangeEvent) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return a.Index - b.Index
	})

	var starts, finishes []StatusChangeEvent
	for _, e := range ordered {
		if r.started[e.ToStatus] {
			starts = append(starts, e)
		}
		if r.finished[e.ToStatus] {
			finishes = append(finishes, e)
		}
	}

	if len(starts) == 0 {
		return time.Time{}, time.Time{}, ErrNotStarted
	}
	last := starts[len(starts)-1]

	for _, f := range finishes {
		if f.Index > last.Index {
			return last.Timestamp, f.Timestamp, nil
		}
	}
	return time.Time{}, time.Time{}, ErrNotFinished
}

// Resolve is a single-label shorthand for NewResolver(...).Resolve(events).
func Resolve(events []StatusChangeEvent, started, finished string) (time.Time, time.Time, error) {
	return NewResolver([]string{started}, []string{finished}).Resolve(events)
}

func labelSet(labels []string) map[string]bool {
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		if l != "" {
			set[l] = true
		}
	}
	return set
}
