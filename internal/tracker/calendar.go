package tracker

import (
	"time"
)

const MonthLayout = "2006-01"

// Day is one calendar cell and the assignments due on it.
type Day struct {
	Date        string       `json:"date"`
	Assignments []Assignment `json:"assignments"`
}

// MonthView lays a month out day by day, including days with nothing due.
type MonthView struct {
	Month string `json:"month"`
	Days  []Day  `json:"days"`
}

func ParseMonth(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(MonthLayout, raw, loc)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "month", Message: "month must look like YYYY-MM"}
	}
	return t, nil
}

func ParseDay(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Message: "date must look like YYYY-MM-DD"}
	}
	return t, nil
}

// Month groups assignments by due day for the month containing month.
func Month(assignments []Assignment, month time.Time, loc *time.Location) MonthView {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	next := first.AddDate(0, 1, 0)

	view := MonthView{Month: first.Format(MonthLayout)}
	index := make(map[string]int)
	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		key := d.Format(DateLayout)
		index[key] = len(view.Days)
		view.Days = append(view.Days, Day{Date: key, Assignments: []Assignment{}})
	}

	for _, a := range assignments {
		key := a.DueDate.In(loc).Format(DateLayout)
		if i, ok := index[key]; ok {
			view.Days[i].Assignments = append(view.Days[i].Assignments, a.Clone())
		}
	}
	for i := range view.Days {
		SortByDueDate(view.Days[i].Assignments)
	}
	return view
}

// DueOn returns the assignments due on the calendar day of day in loc.
func DueOn(assignments []Assignment, day time.Time, loc *time.Location) []Assignment {
	if loc == nil {
		loc = time.UTC
	}
	key := day.In(loc).Format(DateLayout)
	out := []Assignment{}
	for _, a := range assignments {
		if a.DueDate.In(loc).Format(DateLayout) == key {
			out = append(out, a.Clone())
		}
	}
	SortByDueDate(out)
	return out
}
