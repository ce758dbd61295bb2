package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studymate/studymate/internal/models"
	"github.com/studymate/studymate/internal/repository"
)

type mockEventRepo struct {
	CreateFunc                func(ctx context.Context, e *models.Event) error
	ListForUserFunc           func(ctx context.Context, ownerID int64) ([]models.Event, error)
	ListForUserInRangeFunc    func(ctx context.Context, ownerID int64, from, to time.Time) ([]models.Event, error)
	ListUpcomingRemindersFunc func(ctx context.Context, ownerID int64, today time.Time) ([]models.Event, error)
	GetFunc                   func(ctx context.Context, id, ownerID int64) (*models.Event, error)
	UpdateFunc                func(ctx context.Context, e *models.Event) error
	DeleteFunc                func(ctx context.Context, id, ownerID int64) error
}

func (m *mockEventRepo) Create(ctx context.Context, e *models.Event) error {
	return m.CreateFunc(ctx, e)
}
func (m *mockEventRepo) ListForUser(ctx context.Context, ownerID int64) ([]models.Event, error) {
	return m.ListForUserFunc(ctx, ownerID)
}
func (m *mockEventRepo) ListForUserInRange(ctx context.Context, ownerID int64, from, to time.Time) ([]models.Event, error) {
	return m.ListForUserInRangeFunc(ctx, ownerID, from, to)
}
func (m *mockEventRepo) ListUpcomingReminders(ctx context.Context, ownerID int64, today time.Time) ([]models.Event, error) {
	return m.ListUpcomingRemindersFunc(ctx, ownerID, today)
}
func (m *mockEventRepo) Get(ctx context.Context, id, ownerID int64) (*models.Event, error) {
	return m.GetFunc(ctx, id, ownerID)
}
func (m *mockEventRepo) Update(ctx context.Context, e *models.Event) error {
	return m.UpdateFunc(ctx, e)
}
func (m *mockEventRepo) Delete(ctx context.Context, id, ownerID int64) error {
	return m.DeleteFunc(ctx, id, ownerID)
}

func validInput() EventInput {
	return EventInput{
		Title:        "  Math exam  ",
		Date:         "2026-10-18",
		Time:         "09:00",
		Category:     "school",
		Reminder:     true,
		ReminderTime: "30 minuten ervoor",
	}
}

func TestCreateEvent_Success(t *testing.T) {
	var stored *models.Event
	repo := &mockEventRepo{
		CreateFunc: func(_ context.Context, e *models.Event) error {
			stored = e
			e.ID = 3
			return nil
		},
	}
	svc := NewEventService(repo, EventPolicy{}).WithClock(clock)

	e, err := svc.Create(context.Background(), 5, validInput())
	require.NoError(t, err)
	require.Same(t, stored, e)

	assert.Equal(t, int64(3), e.ID)
	assert.Equal(t, int64(5), e.UserID)
	assert.Equal(t, "Math exam", e.Title)
	assert.Equal(t, "2026-10-18", e.DateString())
	assert.Equal(t, models.CategorySchool, e.Category)
	require.NotNil(t, e.ReminderTime)
	assert.Equal(t, models.Reminder30Min, *e.ReminderTime)
}

func TestCreateEvent_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EventInput)
		field  string
	}{
		{"empty title", func(in *EventInput) { in.Title = "   " }, "title"},
		{"bad date", func(in *EventInput) { in.Date = "18-10-2026" }, "date"},
		{"past date", func(in *EventInput) { in.Date = "2026-10-16" }, "date"},
		{"bad time", func(in *EventInput) { in.Time = "25:00" }, "time"},
		{"bad category", func(in *EventInput) { in.Category = "sports" }, "category"},
		{"missing reminder time", func(in *EventInput) { in.ReminderTime = "" }, "reminder_time"},
		{"unknown reminder time", func(in *EventInput) { in.ReminderTime = "2 days" }, "reminder_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockEventRepo{
				CreateFunc: func(context.Context, *models.Event) error {
					t.Fatal("invalid input must not be stored")
					return nil
				},
			}
			in := validInput()
			tt.mutate(&in)

			_, err := NewEventService(repo, EventPolicy{}).WithClock(clock).Create(context.Background(), 5, in)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCreateEvent_TodayAllowed(t *testing.T) {
	repo := &mockEventRepo{CreateFunc: func(context.Context, *models.Event) error { return nil }}
	in := validInput()
	in.Date = "2026-10-17"

	_, err := NewEventService(repo, EventPolicy{}).WithClock(clock).Create(context.Background(), 5, in)
	assert.NoError(t, err)
}

func TestCreateEvent_ReminderOffDropsTime(t *testing.T) {
	repo := &mockEventRepo{CreateFunc: func(context.Context, *models.Event) error { return nil }}
	in := validInput()
	in.Reminder = false
	in.ReminderTime = "garbage"

	e, err := NewEventService(repo, EventPolicy{}).WithClock(clock).Create(context.Background(), 5, in)
	require.NoError(t, err)
	assert.False(t, e.Reminder)
	assert.Nil(t, e.ReminderTime)
}

func TestUpdateEvent_PastDatePolicy(t *testing.T) {
	repo := &mockEventRepo{UpdateFunc: func(context.Context, *models.Event) error { return nil }}
	in := validInput()
	in.Date = "2026-01-01"

	e, err := NewEventService(repo, EventPolicy{}).WithClock(clock).Update(context.Background(), 9, 5, in)
	require.NoError(t, err)
	assert.Equal(t, int64(9), e.ID)

	_, err = NewEventService(repo, EventPolicy{RejectPastDatesOnUpdate: true}).WithClock(clock).Update(context.Background(), 9, 5, in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date", verr.Field)
}

func TestOwnerScopedNotFound(t *testing.T) {
	repo := &mockEventRepo{
		GetFunc:    func(context.Context, int64, int64) (*models.Event, error) { return nil, repository.ErrNotFound },
		UpdateFunc: func(context.Context, *models.Event) error { return repository.ErrNotFound },
		DeleteFunc: func(context.Context, int64, int64) error { return repository.ErrNotFound },
	}
	svc := NewEventService(repo, EventPolicy{}).WithClock(clock)

	_, err := svc.Get(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(context.Background(), 1, 2, validInput())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), 1, 2), ErrNotFound)
}

func TestMonthRange(t *testing.T) {
	repo := &mockEventRepo{
		ListForUserInRangeFunc: func(_ context.Context, ownerID int64, from, to time.Time) ([]models.Event, error) {
			assert.Equal(t, int64(5), ownerID)
			assert.Equal(t, "2026-12-01", from.Format(models.DateLayout))
			assert.Equal(t, "2027-01-01", to.Format(models.DateLayout))
			return []models.Event{}, nil
		},
	}
	_, err := NewEventService(repo, EventPolicy{}).Month(context.Background(), 5, 2026, time.December)
	require.NoError(t, err)
}

func TestUpcomingReminders_UsesToday(t *testing.T) {
	repo := &mockEventRepo{
		ListUpcomingRemindersFunc: func(_ context.Context, _ int64, today time.Time) ([]models.Event, error) {
			assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), today)
			return nil, nil
		},
	}
	_, err := NewEventService(repo, EventPolicy{}).WithClock(clock).UpcomingReminders(context.Background(), 5)
	require.NoError(t, err)
}
