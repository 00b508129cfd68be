package ledger

import "time"

// period identifies a calendar month.
type period struct {
	year  int
	month int
}

func periodOf(t time.Time) period {
	return period{year: t.Year(), month: int(t.Month())}
}

func (p period) after(o period) bool {
	if p.year != o.year {
		return p.year > o.year
	}
	return p.month > o.month
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// MonthBounds returns [start, end) of the calendar month containing t in t's location.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}
