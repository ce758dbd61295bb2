package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/studymate/studymate/internal/calendar"
	"github.com/studymate/studymate/internal/middleware"
	"github.com/studymate/studymate/internal/models"
	"github.com/studymate/studymate/internal/service"
	"github.com/studymate/studymate/internal/session"
)

// EventService defines the owner-scoped event operations required by
// EventHandler.
type EventService interface {
	Create(ctx context.Context, ownerID int64, in service.EventInput) (*models.Event, error)
	List(ctx context.Context, ownerID int64) ([]models.Event, error)
	Month(ctx context.Context, ownerID int64, year int, month time.Month) ([]models.Event, error)
	UpcomingReminders(ctx context.Context, ownerID int64) ([]models.Event, error)
	Get(ctx context.Context, id, ownerID int64) (*models.Event, error)
	Update(ctx context.Context, id, ownerID int64, in service.EventInput) (*models.Event, error)
	Delete(ctx context.Context, id, ownerID int64) error
	// Today is the current calendar day.
	Today() time.Time
}

// EventHandler serves the dashboard, the event forms, the calendar and the
// notifications page. Every handler expects middleware.RequireLogin in front.
type EventHandler struct {
	EventService EventService
	Render       *Renderer
	Log          *zap.Logger
}

const msgEventNotFound = "Event not found."

type eventForm struct {
	Action     string
	Heading    string
	Submit     string
	Form       service.EventInput
	Field      string
	Error      string
	MinDate    string
	Categories []models.Category
	Reminders  []models.ReminderOffset
}

// FieldError returns the validation message attached to the named input.
func (f eventForm) FieldError(name string) string {
	if f.Field == name {
		return f.Error
	}
	return ""
}

// GeneralError returns a validation message that belongs to no single input.
func (f eventForm) GeneralError() string {
	if f.Field == "" {
		return f.Error
	}
	return ""
}

func (h *EventHandler) newForm(action, heading, submit string, in service.EventInput) eventForm {
	return eventForm{
		Action:     action,
		Heading:    heading,
		Submit:     submit,
		Form:       in,
		MinDate:    h.EventService.Today().Format(models.DateLayout),
		Categories: models.Categories,
		Reminders:  models.ReminderOffsets,
	}
}

func inputFromRequest(r *http.Request) service.EventInput {
	return service.EventInput{
		Title:        r.PostFormValue("title"),
		Date:         r.PostFormValue("date"),
		Time:         r.PostFormValue("time"),
		Category:     r.PostFormValue("category"),
		Reminder:     r.PostFormValue("reminder") != "",
		ReminderTime: r.PostFormValue("reminder_time"),
	}
}

func inputFromEvent(e *models.Event) service.EventInput {
	in := service.EventInput{
		Title:    e.Title,
		Date:     e.DateString(),
		Time:     e.Time,
		Category: string(e.Category),
		Reminder: e.Reminder,
	}
	if e.ReminderTime != nil {
		in.ReminderTime = string(*e.ReminderTime)
	}
	return in
}

// Dashboard handles GET /dashboard.
func (h *EventHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	events, err := h.EventService.List(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.Render.Error(w, r, err)
		return
	}
	h.Render.Render(w, r, http.StatusOK, "dashboard.html", "Dashboard", events)
}

// AddForm handles GET /events/add.
func (h *EventHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	in := service.EventInput{Date: h.EventService.Today().Format(models.DateLayout)}
	h.Render.Render(w, r, http.StatusOK, "event_form.html", "Add event",
		h.newForm("/events/add", "Add event", "Add", in))
}

// Add handles POST /events/add.
func (h *EventHandler) Add(w http.ResponseWriter, r *http.Request) {
	in := inputFromRequest(r)
	e, err := h.EventService.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), in)
	if err != nil {
		h.formFailed(w, r, err, h.newForm("/events/add", "Add event", "Add", in))
		return
	}
	redirectWithFlash(w, r, h.Log, "/dashboard", session.FlashSuccess,
		fmt.Sprintf("Event '%s' added successfully!", e.Title))
}

// EditForm handles GET /events/{id}/edit.
func (h *EventHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	e, err := h.EventService.Get(r.Context(), id, middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.mutationFailed(w, r, err)
		return
	}
	action := fmt.Sprintf("/events/%d/edit", id)
	h.Render.Render(w, r, http.StatusOK, "event_form.html", "Edit event",
		h.newForm(action, "Edit event", "Save", inputFromEvent(e)))
}

// Edit handles POST /events/{id}/edit.
func (h *EventHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	in := inputFromRequest(r)
	e, err := h.EventService.Update(r.Context(), id, middleware.GetUserIDFromContext(r.Context()), in)
	if err != nil {
		action := fmt.Sprintf("/events/%d/edit", id)
		h.formFailed(w, r, err, h.newForm(action, "Edit event", "Save", in))
		return
	}
	redirectWithFlash(w, r, h.Log, "/dashboard", session.FlashSuccess,
		fmt.Sprintf("Event '%s' updated successfully!", e.Title))
}

// Delete handles GET /events/{id}/delete. Foreign and missing events change
// nothing and report "not found".
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	if err := h.EventService.Delete(r.Context(), id, middleware.GetUserIDFromContext(r.Context())); err != nil {
		h.mutationFailed(w, r, err)
		return
	}
	redirectWithFlash(w, r, h.Log, "/dashboard", session.FlashSuccess, "Event deleted successfully!")
}

// eventID parses the {id} URL parameter. Invalid ids end the request with a
// redirect to the dashboard.
func (h *EventHandler) eventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		redirectWithFlash(w, r, h.Log, "/dashboard", session.FlashDanger, "Invalid event id.")
		return 0, false
	}
	return id, true
}

func (h *EventHandler) formFailed(w http.ResponseWriter, r *http.Request, err error, form eventForm) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		form.Field, form.Error = verr.Field, verr.Message
		h.Render.Render(w, r, http.StatusUnprocessableEntity, "event_form.html", form.Heading, form)
		return
	}
	h.mutationFailed(w, r, err)
}

func (h *EventHandler) mutationFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrNotFound) {
		redirectWithFlash(w, r, h.Log, "/dashboard", session.FlashDanger, msgEventNotFound)
		return
	}
	h.Render.Error(w, r, err)
}

// Notifications handles GET /notifications.
func (h *EventHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	events, err := h.EventService.UpcomingReminders(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.Render.Error(w, r, err)
		return
	}
	h.Render.Render(w, r, http.StatusOK, "notifications.html", "Notifications", events)
}

type calendarPage struct {
	Month    calendar.Month
	Weekdays []string
}

func (h *EventHandler) month(r *http.Request) (int, time.Month, bool) {
	year, month, err := calendar.ParseMonth(r.URL.Query().Get("month"), h.EventService.Today())
	if err != nil {
		return 0, 0, false
	}
	return year, month, true
}

// Calendar handles GET /calendar?month=YYYY-MM.
func (h *EventHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.month(r)
	if !ok {
		redirectWithFlash(w, r, h.Log, "/calendar", session.FlashDanger, "Invalid month.")
		return
	}
	events, err := h.EventService.Month(r.Context(), middleware.GetUserIDFromContext(r.Context()), year, month)
	if err != nil {
		h.Render.Error(w, r, err)
		return
	}
	m := calendar.NewMonth(year, month, events).MarkToday(h.EventService.Today())
	h.Render.Render(w, r, http.StatusOK, "calendar.html", "Calendar",
		calendarPage{Month: m, Weekdays: calendar.Weekdays})
}

// calendarEvent is the JSON form of an event for client scripts.
type calendarEvent struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Date         string `json:"date"`
	Day          int    `json:"day"`
	Time         string `json:"time"`
	Category     string `json:"category"`
	Reminder     bool   `json:"reminder"`
	ReminderTime string `json:"reminder_time,omitempty"`
}

// CalendarJSON handles GET /calendar/events.json?month=YYYY-MM.
func (h *EventHandler) CalendarJSON(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.month(r)
	if !ok {
		http.Error(w, "invalid month", http.StatusBadRequest)
		return
	}
	events, err := h.EventService.Month(r.Context(), middleware.GetUserIDFromContext(r.Context()), year, month)
	if err != nil {
		h.Log.Error("failed to list calendar events", zap.Error(err))
		http.Error(w, GenericError, http.StatusInternalServerError)
		return
	}

	out := make([]calendarEvent, 0, len(events))
	for _, e := range events {
		ce := calendarEvent{
			ID:       e.ID,
			Title:    e.Title,
			Date:     e.DateString(),
			Day:      e.Date.Day(),
			Time:     e.Time,
			Category: string(e.Category),
			Reminder: e.Reminder,
		}
		if e.ReminderTime != nil {
			ce.ReminderTime = string(*e.ReminderTime)
		}
		out = append(out, ce)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
