// Package models defines the core data structures for users and events.
package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of an event date.
const DateLayout = "2006-01-02"

// TimeLayout is the wire format of an event time-of-day.
const TimeLayout = "15:04"

// User represents an application user with credentials.
type User struct {
	// ID is the unique identifier for the user.
	ID int64
	// Email is the unique login address of the user.
	Email string
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string
	// ResetToken is set while a password reset is pending.
	ResetToken *string
	// ResetExpiry is set together with ResetToken.
	ResetExpiry *time.Time
}

// Event is a calendar entry owned by a single user.
type Event struct {
	// ID is the unique identifier for the event.
	ID int64 `json:"id"`
	// UserID is the owner of the event.
	UserID int64 `json:"-"`
	// Title is the non-empty, trimmed title.
	Title string `json:"title"`
	// Date is the calendar day of the event (midnight UTC).
	Date time.Time `json:"-"`
	// Time is the time-of-day formatted as HH:MM.
	Time string `json:"time"`
	// Category is one of the known categories.
	Category Category `json:"category"`
	// Reminder marks the event for the notifications view.
	Reminder bool `json:"reminder"`
	// ReminderTime is only set when Reminder is true.
	ReminderTime *ReminderOffset `json:"reminder_time,omitempty"`
}

// DateString returns the event date in DateLayout.
func (e Event) DateString() string {
	return e.Date.Format(DateLayout)
}

// Category is the closed set of event categories.
type Category string

const (
	// CategorySchool is used for lessons, exams and homework.
	CategorySchool Category = "school"
	// CategorySocial is used for meetups with friends.
	CategorySocial Category = "social"
	// CategoryGaming is used for gaming sessions.
	CategoryGaming Category = "gaming"
)

// Categories lists every known category in display order.
var Categories = []Category{CategorySchool, CategorySocial, CategoryGaming}

// Label returns the human readable name of the category.
func (c Category) Label() string {
	switch c {
	case CategorySchool:
		return "School"
	case CategorySocial:
		return "Social"
	case CategoryGaming:
		return "Gaming"
	}
	return string(c)
}

// ParseCategory rejects anything outside the known set.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// ReminderOffset says how long before the event the reminder fires.
type ReminderOffset string

const (
	// Reminder5Min fires five minutes before the event.
	Reminder5Min ReminderOffset = "5min"
	// Reminder30Min fires thirty minutes before the event.
	Reminder30Min ReminderOffset = "30min"
	// Reminder1Hour fires one hour before the event.
	Reminder1Hour ReminderOffset = "1hr"
)

// ReminderOffsets lists every reminder offset in display order.
var ReminderOffsets = []ReminderOffset{Reminder5Min, Reminder30Min, Reminder1Hour}

// legacy form labels still accepted on input
var reminderAliases = map[string]ReminderOffset{
	"5 minuten ervoor":  Reminder5Min,
	"30 minuten ervoor": Reminder30Min,
	"1 uur ervoor":      Reminder1Hour,
	"5 minutes before":  Reminder5Min,
	"30 minutes before": Reminder30Min,
	"1 hour before":     Reminder1Hour,
}

// Label returns the human readable name of the offset.
func (r ReminderOffset) Label() string {
	switch r {
	case Reminder5Min:
		return "5 minutes before"
	case Reminder30Min:
		return "30 minutes before"
	case Reminder1Hour:
		return "1 hour before"
	}
	return string(r)
}

// Duration returns the offset as a time.Duration.
func (r ReminderOffset) Duration() time.Duration {
	switch r {
	case Reminder5Min:
		return 5 * time.Minute
	case Reminder30Min:
		return 30 * time.Minute
	case Reminder1Hour:
		return time.Hour
	}
	return 0
}

// ParseReminderOffset accepts the canonical codes and the form labels.
func ParseReminderOffset(s string) (ReminderOffset, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, known := range ReminderOffsets {
		if v == string(known) {
			return known, nil
		}
	}
	if r, ok := reminderAliases[v]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown reminder time %q", s)
}
