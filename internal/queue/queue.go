package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Job types routed through the background queue.
const (
	JobBookingReminder = "booking.reminder"
	JobCalendarSync    = "calendar.sync"
)

// Options control delivery of a single job. Delay defers the first delivery;
// MaxRetries and Backoff drive redelivery after handler failures.
type Options struct {
	Delay      time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// Envelope is the wire form of a job. Attempt starts at 0 and is bumped on
// each redelivery so consumers can enforce MaxRetries.
type Envelope struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	MaxRetries int             `json:"max_retries"`
	BackoffMS  int64           `json:"backoff_ms"`
}

// TaskQueue enqueues background jobs with at-least-once delivery. Handlers
// must be idempotent.
type TaskQueue interface {
	Enqueue(ctx context.Context, jobType string, payload any, opts Options) error
}

// ReminderPayload is the body of a booking.reminder job.
type ReminderPayload struct {
	BookingID   string `json:"booking_id"`
	OffsetLabel string `json:"offset_label"`
}

// CalendarSyncPayload is the body of a calendar.sync job.
type CalendarSyncPayload struct {
	BookingID string `json:"booking_id"`
	Action    string `json:"action"` // created, rescheduled, cancelled
}
