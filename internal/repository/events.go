package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/studymate/studymate/internal/models"
)

// SQLEventRepository implements owner-scoped event persistence over a SQL database.
// Every lookup and mutation filters on the owning user id in the same statement.
type SQLEventRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewSQLEventRepository creates a new SQLEventRepository using the provided *sql.DB.
func NewSQLEventRepository(db *sql.DB) *SQLEventRepository {
	return &SQLEventRepository{DB: db}
}

const eventColumns = `id, user_id, title, date, time, category, reminder, reminder_time`

// Create inserts e for its owner and sets e.ID.
//
//	ctx: context for cancellation and deadlines
//	e:   validated event; e.UserID is the owner
func (r *SQLEventRepository) Create(ctx context.Context, e *models.Event) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO events (user_id, title, date, time, category, reminder, reminder_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, e.UserID, e.Title, e.DateString(), e.Time, string(e.Category), e.Reminder, reminderArg(e)).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("CreateEvent: %w", err)
	}
	return nil
}

// ListForUser returns every event of the owner ordered by date and time.
func (r *SQLEventRepository) ListForUser(ctx context.Context, ownerID int64) ([]models.Event, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events WHERE user_id = $1 ORDER BY date, time
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ListForUser: %w", err)
	}
	return scanEvents(rows)
}

// ListForUserInRange returns the owner's events with from <= date < to,
// ordered by date and time.
func (r *SQLEventRepository) ListForUserInRange(ctx context.Context, ownerID int64, from, to time.Time) ([]models.Event, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE user_id = $1 AND date >= $2 AND date < $3
		ORDER BY date, time
	`, ownerID, from.Format(models.DateLayout), to.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("ListForUserInRange: %w", err)
	}
	return scanEvents(rows)
}

// ListUpcomingReminders returns the owner's reminder-flagged events dated
// today or later, ordered by date and time.
func (r *SQLEventRepository) ListUpcomingReminders(ctx context.Context, ownerID int64, today time.Time) ([]models.Event, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE user_id = $1 AND reminder = $2 AND date >= $3
		ORDER BY date, time
	`, ownerID, true, today.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("ListUpcomingReminders: %w", err)
	}
	return scanEvents(rows)
}

// Get fetches a single event by id for the given owner.
// Rows of other owners are indistinguishable from missing rows.
func (r *SQLEventRepository) Get(ctx context.Context, id, ownerID int64) (*models.Event, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM events WHERE id = $1 AND user_id = $2
	`, id, ownerID)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("GetEvent: %w", err)
	}
	return e, nil
}

// Update overwrites the mutable fields of e.ID if it belongs to e.UserID.
// A non-owner matches zero rows and gets ErrNotFound.
func (r *SQLEventRepository) Update(ctx context.Context, e *models.Event) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE events
		   SET title = $1, date = $2, time = $3, category = $4, reminder = $5, reminder_time = $6
		 WHERE id = $7 AND user_id = $8
	`, e.Title, e.DateString(), e.Time, string(e.Category), e.Reminder, reminderArg(e), e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("UpdateEvent: %w", err)
	}
	return expectOneRow(res)
}

// Delete removes event id if it belongs to ownerID.
func (r *SQLEventRepository) Delete(ctx context.Context, id, ownerID int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("DeleteEvent: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func reminderArg(e *models.Event) any {
	if !e.Reminder || e.ReminderTime == nil {
		return nil
	}
	return string(*e.ReminderTime)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*models.Event, error) {
	var (
		e        models.Event
		date     time.Time
		clock    string
		category string
		reminder sql.NullString
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.Title, &date, &clock, &category, &e.Reminder, &reminder); err != nil {
		return nil, err
	}
	e.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	// postgres TIME comes back as HH:MM:SS
	if len(clock) > len(models.TimeLayout) {
		clock = clock[:len(models.TimeLayout)]
	}
	e.Time = clock
	e.Category = models.Category(category)
	if e.Reminder && reminder.Valid {
		rt := models.ReminderOffset(reminder.String)
		e.ReminderTime = &rt
	}
	return &e, nil
}

func scanEvents(rows *sql.Rows) ([]models.Event, error) {
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return events, nil
}
