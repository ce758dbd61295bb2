// Package calendar lays out a month of events on a Monday-first grid.
package calendar

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/studymate/studymate/internal/models"
)

// ParamLayout is the format of the month query parameter.
const ParamLayout = "2006-01"

// Weekdays are the column headings in grid order.
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Day is one grid cell. Blank padding cells have Number 0.
type Day struct {
	Number int
	Today  bool
	Events []models.Event
}

// Blank reports whether the cell lies outside the month.
func (d Day) Blank() bool {
	return d.Number == 0
}

// Month is a calendar month split into weeks of seven days.
type Month struct {
	Year  int
	Month time.Month
	Weeks [][]Day
}

// NewMonth builds the grid for year/month and places each event on its day,
// ordered by time. Events outside the month are ignored.
func NewMonth(year int, month time.Month, events []models.Event) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()

	byDay := make(map[int][]models.Event)
	for _, e := range events {
		if e.Date.Year() != first.Year() || e.Date.Month() != first.Month() {
			continue
		}
		byDay[e.Date.Day()] = append(byDay[e.Date.Day()], e)
	}
	for _, list := range byDay {
		slices.SortStableFunc(list, func(a, b models.Event) int {
			return strings.Compare(a.Time, b.Time)
		})
	}

	// Monday = 0
	lead := (int(first.Weekday()) + 6) % 7

	cells := make([]Day, lead, lead+days+6)
	for d := 1; d <= days; d++ {
		cells = append(cells, Day{Number: d, Events: byDay[d]})
	}
	for len(cells)%7 != 0 {
		cells = append(cells, Day{})
	}

	m := Month{Year: first.Year(), Month: first.Month()}
	for i := 0; i < len(cells); i += 7 {
		m.Weeks = append(m.Weeks, cells[i:i+7])
	}
	return m
}

// MarkToday flags today's cell when it falls in the month.
func (m Month) MarkToday(today time.Time) Month {
	if today.Year() != m.Year || today.Month() != m.Month {
		return m
	}
	for _, week := range m.Weeks {
		for i := range week {
			if week[i].Number == today.Day() {
				week[i].Today = true
			}
		}
	}
	return m
}

// Title is the heading shown above the grid, e.g. "October 2026".
func (m Month) Title() string {
	return fmt.Sprintf("%s %d", m.Month, m.Year)
}

func (m Month) first() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Param is the month formatted for the query string.
func (m Month) Param() string {
	return m.first().Format(ParamLayout)
}

// Prev is the query parameter of the previous month.
func (m Month) Prev() string {
	return m.first().AddDate(0, -1, 0).Format(ParamLayout)
}

// Next is the query parameter of the following month.
func (m Month) Next() string {
	return m.first().AddDate(0, 1, 0).Format(ParamLayout)
}

// ParseMonth reads a "YYYY-MM" parameter. An empty value selects the month
// of fallback.
func ParseMonth(param string, fallback time.Time) (int, time.Month, error) {
	if param == "" {
		return fallback.Year(), fallback.Month(), nil
	}
	t, err := time.Parse(ParamLayout, param)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q", param)
	}
	return t.Year(), t.Month(), nil
}
