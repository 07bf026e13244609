package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the stored date format, zero padded.
const DateLayout = "02/01/2006"

// Date is the day/month/year triple read from a stored dd/mm/yyyy string.
type Date struct {
	Day   int
	Month int
	Year  int
}

// ParseDate splits a stored date on "/". It requires exactly three parts;
// a part that is not an integer reads as 0. The lenient form mirrors how
// stored documents are filtered: records with a different shape are skipped
// by callers, never rejected with an error.
func ParseDate(s string) (Date, bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Date{}, false
	}
	return Date{
		Day:   atoiOrZero(parts[0]),
		Month: atoiOrZero(parts[1]),
		Year:  atoiOrZero(parts[2]),
	}, true
}

// In reports whether d falls in the given month of year.
func (d Date) In(year, month int) bool {
	return d.Year == year && d.Month == month
}

func (d Date) String() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

// ValidateDate is the strict check for user input: a real calendar date in
// dd/mm/yyyy form.
func ValidateDate(s string) error {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(DateLayout, s); err != nil {
		return invalid("date", ErrInvalidDate)
	}
	return nil
}

// FormatDate renders t as dd/mm/yyyy.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
