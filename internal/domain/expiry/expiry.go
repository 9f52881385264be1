package expiry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Supported values for the date_format option.
const (
	FormatAuto = "auto"
	FormatUS   = "us"
	FormatEU   = "eu"
	FormatISO  = "iso"
)

const (
	layoutISO  = "2006-01-02"
	layoutUS   = "01/02/2006"
	layoutEU   = "02/01/2006"
	layoutTime = "15:04"
)

// ParseError reports an expiry date or time string that matched none of the
// supported formats. It is fatal at startup: no reminder logic can run
// without a valid deadline.
type ParseError struct {
	Input  string
	Format string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as a %s date", e.Input, e.Format)
}

// Parse combines a date string and a 24-hour HH:MM time string into an
// absolute UTC timestamp. The format hint selects the date layout; "auto"
// tries ISO first and then disambiguates slash dates by field ranges.
func Parse(dateStr, timeStr, format string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	timeStr = strings.TrimSpace(timeStr)

	date, err := parseDate(dateStr, format)
	if err != nil {
		return time.Time{}, err
	}

	hhmm, err := time.Parse(layoutTime, timeStr)
	if err != nil {
		return time.Time{}, &ParseError{Input: timeStr, Format: "HH:MM"}
	}

	return time.Date(date.Year(), date.Month(), date.Day(),
		hhmm.Hour(), hhmm.Minute(), 0, 0, time.UTC), nil
}

func parseDate(s, format string) (time.Time, error) {
	switch format {
	case FormatISO:
		if d, err := time.Parse(layoutISO, s); err == nil {
			return d, nil
		}
	case FormatUS:
		if d, err := time.Parse(layoutUS, s); err == nil {
			return d, nil
		}
	case FormatEU:
		if d, err := time.Parse(layoutEU, s); err == nil {
			return d, nil
		}
	case FormatAuto:
		return parseDateAuto(s)
	}
	return time.Time{}, &ParseError{Input: s, Format: format}
}

// parseDateAuto tries ISO first, then resolves a/b/yyyy dates: a first field
// above 12 must be a day; failing that, a second field above 12 forces
// month-first; anything still ambiguous is read day-first, matching the
// documented default example 31/12/2030.
func parseDateAuto(s string) (time.Time, error) {
	if d, err := time.Parse(layoutISO, s); err == nil {
		return d, nil
	}

	norm := strings.NewReplacer(".", "/", "-", "/").Replace(s)
	parts := strings.Split(norm, "/")
	if len(parts) != 3 {
		return time.Time{}, &ParseError{Input: s, Format: FormatAuto}
	}
	first, err1 := strconv.Atoi(parts[0])
	second, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return time.Time{}, &ParseError{Input: s, Format: FormatAuto}
	}

	layout := layoutEU
	if first <= 12 && second > 12 {
		layout = layoutUS
	}
	d, err := time.Parse(layout, norm)
	if err != nil {
		return time.Time{}, &ParseError{Input: s, Format: FormatAuto}
	}
	return d, nil
}

// DaysRemaining is the floor of the exact difference between the deadline and
// now, in days. It goes negative from the first second past the deadline.
func DaysRemaining(deadline, now time.Time) int {
	return int(math.Floor(deadline.Sub(now).Seconds() / 86400))
}
