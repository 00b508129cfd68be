package ledger

import "errors"

var (
	// ErrPersist wraps any failure to write the settlement snapshot.
	ErrPersist = errors.New("persist settlements")
	// ErrNotFound is returned when a settlement id does not exist.
	ErrNotFound = errors.New("settlement not found")
	// ErrInvalidAmount is returned for negative settlement amounts.
	ErrInvalidAmount = errors.New("settlement amount must be >= 0")
	// ErrInvalidPeriod is returned for a month outside 1..12 or a year
	// before 1.
	ErrInvalidPeriod = errors.New("settlement period must be month 1-12 of year 1 or later")
)
