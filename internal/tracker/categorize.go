package tracker

import (
	"fmt"
	"math"
	"time"
)

const (
	highPriorityDays = 4
	comingUpDays     = 14
)

// Buckets partitions assignments by urgency. Every input lands in exactly one bucket.
type Buckets struct {
	Completed    []Assignment `json:"completed"`
	HighPriority []Assignment `json:"high_priority"`
	ComingUp     []Assignment `json:"coming_up"`
	WorryLater   []Assignment `json:"worry_later"`
}

// Len returns the total number of assignments across all buckets.
func (b Buckets) Len() int {
	return len(b.Completed) + len(b.HighPriority) + len(b.ComingUp) + len(b.WorryLater)
}

// DaysUntil rounds the millisecond distance from now to due up to whole days.
// Anything due later today yields 0, anything already past yields a negative count.
func DaysUntil(due, now time.Time) int {
	ms := due.Sub(now).Milliseconds()
	return int(math.Ceil(float64(ms) / float64(24*time.Hour/time.Millisecond)))
}

// Categorize is pure: it never mutates its input and returns copies sorted by due date.
func Categorize(assignments []Assignment, now time.Time) Buckets {
	b := Buckets{
		Completed:    []Assignment{},
		HighPriority: []Assignment{},
		ComingUp:     []Assignment{},
		WorryLater:   []Assignment{},
	}
	for _, a := range assignments {
		a = a.Clone()
		if a.Completed {
			b.Completed = append(b.Completed, a)
			continue
		}
		switch days := DaysUntil(a.DueDate, now); {
		case days <= highPriorityDays:
			b.HighPriority = append(b.HighPriority, a)
		case days <= comingUpDays:
			b.ComingUp = append(b.ComingUp, a)
		default:
			b.WorryLater = append(b.WorryLater, a)
		}
	}
	SortByDueDate(b.Completed)
	SortByDueDate(b.HighPriority)
	SortByDueDate(b.ComingUp)
	SortByDueDate(b.WorryLater)
	return b
}

func DueLabel(days int) string {
	switch {
	case days < 0:
		return "Overdue"
	case days == 0:
		return "Due today"
	case days == 1:
		return "Due tomorrow"
	default:
		return fmt.Sprintf("Due in %d days", days)
	}
}
