package service

import (
	"context"
	"errors"
	"time"

	"github.com/studymate/studymate/internal/models"
	"github.com/studymate/studymate/internal/repository"
	"github.com/studymate/studymate/internal/sanitize"
)

// EventRepository defines the owner-scoped persistence operations
// required by EventService.
type EventRepository interface {
	Create(ctx context.Context, e *models.Event) error
	ListForUser(ctx context.Context, ownerID int64) ([]models.Event, error)
	ListForUserInRange(ctx context.Context, ownerID int64, from, to time.Time) ([]models.Event, error)
	ListUpcomingReminders(ctx context.Context, ownerID int64, today time.Time) ([]models.Event, error)
	// Get returns repository.ErrNotFound for missing or foreign events.
	Get(ctx context.Context, id, ownerID int64) (*models.Event, error)
	// Update returns repository.ErrNotFound when nothing matched.
	Update(ctx context.Context, e *models.Event) error
	// Delete returns repository.ErrNotFound when nothing matched.
	Delete(ctx context.Context, id, ownerID int64) error
}

// EventInput carries the raw form values of an add or edit request.
type EventInput struct {
	Title        string
	Date         string
	Time         string
	Category     string
	Reminder     bool
	ReminderTime string
}

// EventPolicy tunes validation rules that differ between deployments.
type EventPolicy struct {
	// RejectPastDatesOnUpdate applies the create-time "not in the past" rule to edits.
	RejectPastDatesOnUpdate bool
}

// EventService validates event input and scopes every operation to its owner.
type EventService struct {
	repo   EventRepository
	policy EventPolicy
	now    func() time.Time
}

// NewEventService constructs an EventService over repo.
func NewEventService(repo EventRepository, policy EventPolicy) *EventService {
	return &EventService{repo: repo, policy: policy, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (s *EventService) WithClock(now func() time.Time) *EventService {
	s.now = now
	return s
}

// Today returns the current local calendar day as midnight UTC.
func (s *EventService) Today() time.Time {
	return dateOnly(s.now())
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validate turns raw input into an event owned by ownerID.
// When rejectPast is set, dates before today fail.
func (s *EventService) Validate(ownerID int64, in EventInput, rejectPast bool) (*models.Event, error) {
	title := sanitize.Trim(in.Title)
	if title == "" {
		return nil, invalid("title", "Title is required.")
	}

	date, err := time.Parse(models.DateLayout, sanitize.Trim(in.Date))
	if err != nil {
		return nil, invalid("date", "Enter a valid date (YYYY-MM-DD).")
	}
	if rejectPast && date.Before(s.Today()) {
		return nil, invalid("date", "The date cannot be in the past.")
	}

	clock, err := time.Parse(models.TimeLayout, sanitize.Trim(in.Time))
	if err != nil {
		return nil, invalid("time", "Enter a valid time (HH:MM).")
	}

	category, err := models.ParseCategory(in.Category)
	if err != nil {
		return nil, invalid("category", "Choose a valid category.")
	}

	e := &models.Event{
		UserID:   ownerID,
		Title:    title,
		Date:     date,
		Time:     clock.Format(models.TimeLayout),
		Category: category,
		Reminder: in.Reminder,
	}
	if in.Reminder {
		rt, err := models.ParseReminderOffset(in.ReminderTime)
		if err != nil {
			return nil, invalid("reminder_time", "Choose when you want to be reminded.")
		}
		e.ReminderTime = &rt
	}
	return e, nil
}

// Create validates in and stores it as a new event of ownerID.
// Dates before today are rejected.
func (s *EventService) Create(ctx context.Context, ownerID int64, in EventInput) (*models.Event, error) {
	e, err := s.Validate(ownerID, in, true)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// List returns all events of ownerID ordered by date and time.
func (s *EventService) List(ctx context.Context, ownerID int64) ([]models.Event, error) {
	return s.repo.ListForUser(ctx, ownerID)
}

// Month returns the events of ownerID within the given calendar month.
func (s *EventService) Month(ctx context.Context, ownerID int64, year int, month time.Month) ([]models.Event, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return s.repo.ListForUserInRange(ctx, ownerID, from, from.AddDate(0, 1, 0))
}

// UpcomingReminders returns reminder-flagged events of ownerID from today on.
func (s *EventService) UpcomingReminders(ctx context.Context, ownerID int64) ([]models.Event, error) {
	return s.repo.ListUpcomingReminders(ctx, ownerID, s.Today())
}

// Get returns event id if ownerID owns it, ErrNotFound otherwise.
func (s *EventService) Get(ctx context.Context, id, ownerID int64) (*models.Event, error) {
	e, err := s.repo.Get(ctx, id, ownerID)
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

// Update replaces event id of ownerID with in. Past dates are allowed unless
// the policy forbids them, so existing events can still be corrected.
func (s *EventService) Update(ctx context.Context, id, ownerID int64, in EventInput) (*models.Event, error) {
	e, err := s.Validate(ownerID, in, s.policy.RejectPastDatesOnUpdate)
	if err != nil {
		return nil, err
	}
	e.ID = id
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

// Delete removes event id of ownerID. Foreign and missing ids give ErrNotFound
// and leave storage untouched.
func (s *EventService) Delete(ctx context.Context, id, ownerID int64) error {
	return notFound(s.repo.Delete(ctx, id, ownerID))
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
