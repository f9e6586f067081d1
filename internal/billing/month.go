package billing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/tutor-center-api/internal/models"
)

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses the YYYY-MM form used throughout the API.
func ParseMonth(raw string) (Month, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return Month{}, fmt.Errorf("invalid month %q: expected YYYY-MM", raw)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 4 {
		return Month{}, fmt.Errorf("invalid month %q: bad year", raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return Month{}, fmt.Errorf("invalid month %q: bad month", raw)
	}
	return Month{Year: year, Month: time.Month(m)}, nil
}

// MonthOf returns the month a date falls into.
func MonthOf(d models.Date) Month {
	return Month{Year: d.Year(), Month: d.Month()}
}

// String renders the month as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Contains reports whether the date falls inside the month.
func (m Month) Contains(d models.Date) bool {
	return !d.IsZero() && d.Year() == m.Year && d.Month() == m.Month
}

// Before orders months chronologically.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// Range returns the first day of the month and the first day of the next.
func (m Month) Range() (time.Time, time.Time) {
	start := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// FilterMonth keeps the classes dated inside the month, preserving order.
func FilterMonth(classes []models.Class, month Month) []models.Class {
	out := make([]models.Class, 0, len(classes))
	for _, class := range classes {
		if month.Contains(class.Date) {
			out = append(out, class)
		}
	}
	return out
}
