package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidRule   = errors.New("invalid recurrence rule")
	ErrInvalidWindow = errors.New("recurrence window must end after it starts")
)

type Frequency string

const (
	FreqDaily  Frequency = "daily"
	FreqWeekly Frequency = "weekly"
)

// RecurrenceRule expands one slot specification into a series of dated
// occurrences. Interval is in units of Frequency (every N days/weeks);
// Weekdays narrows weekly rules to specific days.
type RecurrenceRule struct {
	Frequency Frequency      `json:"frequency"`
	Interval  int            `json:"interval"`
	Weekdays  []time.Weekday `json:"weekdays,omitempty"`
}

// MeetingRequest describes the event a meeting link is created for.
type MeetingRequest struct {
	Summary   string
	StartTime time.Time
	EndTime   time.Time
}

// BusyCheck lists external busy-time windows overlapping a proposed window,
// as human-readable descriptions.
type BusyCheck struct {
	ConflictsWith []string
}

// Provider is the external calendar integration (meeting links, free/busy).
// Implementations live outside this engine.
type Provider interface {
	CreateMeetingLink(ctx context.Context, ownerID uuid.UUID, req MeetingRequest) (string, error)
	CheckAvailability(ctx context.Context, userID uuid.UUID, start, end time.Time, bufferMinutes int) (BusyCheck, error)
}

// GenerateRecurringSlots expands rule into concrete start instants from
// start up to and including until, capped at maxOccurrences. The first
// returned instant is start itself when the rule admits it.
func GenerateRecurringSlots(start time.Time, rule RecurrenceRule, until time.Time, maxOccurrences int) ([]time.Time, error) {
	if rule.Frequency != FreqDaily && rule.Frequency != FreqWeekly {
		return nil, ErrInvalidRule
	}
	if rule.Interval <= 0 {
		rule.Interval = 1
	}
	if !until.After(start) {
		return nil, ErrInvalidWindow
	}
	if maxOccurrences <= 0 {
		maxOccurrences = 1
	}

	var out []time.Time
	for cur := start; !cur.After(until) && len(out) < maxOccurrences; cur = next(rule, cur) {
		if rule.Frequency == FreqWeekly && len(rule.Weekdays) > 0 && !admitsWeekday(rule.Weekdays, cur.Weekday()) {
			continue
		}
		out = append(out, cur)
	}
	return out, nil
}

func next(rule RecurrenceRule, cur time.Time) time.Time {
	switch rule.Frequency {
	case FreqWeekly:
		if len(rule.Weekdays) > 0 {
			// Step day by day so each weekday in the set is visited,
			// jumping the interval gap at week boundaries. Weeks start
			// on Monday (ISO 8601), so a Sunday occurrence belongs to
			// the week that began the previous Monday.
			n := cur.AddDate(0, 0, 1)
			if n.Weekday() == time.Monday && rule.Interval > 1 {
				n = n.AddDate(0, 0, 7*(rule.Interval-1))
			}
			return n
		}
		return cur.AddDate(0, 0, 7*rule.Interval)
	default:
		return cur.AddDate(0, 0, rule.Interval)
	}
}

func admitsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, w := range days {
		if w == d {
			return true
		}
	}
	return false
}

// Overlaps reports half-open interval intersection: [aStart, aEnd) and
// [bStart, bEnd) intersect iff aStart < bEnd && bStart < aEnd. Touching
// endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// NoopProvider is wired when no calendar integration is configured. Link
// creation yields an empty link (filled in later by the integration worker);
// availability checks report no conflicts.
type NoopProvider struct{}

func (NoopProvider) CreateMeetingLink(ctx context.Context, ownerID uuid.UUID, req MeetingRequest) (string, error) {
	return "", nil
}

func (NoopProvider) CheckAvailability(ctx context.Context, userID uuid.UUID, start, end time.Time, bufferMinutes int) (BusyCheck, error) {
	return BusyCheck{}, nil
}
