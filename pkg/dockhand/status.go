package dockhand

import (
	"errors"
	"fmt"
	"time"
)

// GapStatus is the lifecycle state of a knowledge gap
type GapStatus string

const (
	GapOpen         GapStatus = "open"
	GapAcknowledged GapStatus = "acknowledged"
	GapResolved     GapStatus = "resolved"
	GapDismissed    GapStatus = "dismissed"
)

// ErrInvalidTransition is returned for a status change the lifecycle does not allow
var ErrInvalidTransition = errors.New("invalid gap status transition")

var gapTransitions = map[GapStatus][]GapStatus{
	GapOpen:      {GapAcknowledged, GapResolved, GapDismissed},
	GapDismissed: {GapOpen},
	GapResolved:  {GapOpen},
}

// Valid reports whether s is a known status
func (s GapStatus) Valid() bool {
	switch s {
	case GapOpen, GapAcknowledged, GapResolved, GapDismissed:
		return true
	}
	return false
}

// CanTransition reports whether a gap may move from s to next
func (s GapStatus) CanTransition(next GapStatus) bool {
	for _, allowed := range gapTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition moves the gap to next, maintaining ResolvedAt.
// On an invalid transition the gap is left untouched.
func (g *KnowledgeGap) Transition(next GapStatus, now time.Time) error {
	if !g.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, g.Status, next)
	}

	if next == GapResolved {
		resolved := now
		g.ResolvedAt = &resolved
	} else {
		g.ResolvedAt = nil
	}
	g.Status = next
	return nil
}
