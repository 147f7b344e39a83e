package reminder

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// DateLayout is the wire format of start_date and end_date.
const DateLayout = "2006-01-02"

var (
	// ErrNotFound is returned when the addressed reminder does not exist.
	ErrNotFound = errors.New("reminder not found")
	// ErrBadRequest is returned when a lookup carries neither user_id nor reminder_id.
	ErrBadRequest = errors.New("user_id or reminder_id is required")
)

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// ValidationError lists every rejected field with the reason it was rejected.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid reminder: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = reason
	}
}

func (e *ValidationError) errOrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// TimeList is the reminder_times payload. It decodes from either a
// comma-joined string ("08:00,20:00") or a JSON array of strings.
type TimeList []string

func (l *TimeList) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*l = splitRaw(raw)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("reminder_times must be a string or a list of strings")
	}
	*l = list
	return nil
}

func splitRaw(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// ParseTimes splits a stored reminder_times value into trimmed entries,
// dropping empty ones.
func ParseTimes(raw string) []string {
	var out []string
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token != "" {
			out = append(out, token)
		}
	}
	return out
}

// JoinTimes renders entries in their storage form.
func JoinTimes(times []string) string {
	return strings.Join(times, ",")
}

// ValidateTimes trims every entry and checks it is a 24h HH:MM clock time.
// It returns the trimmed entries in their original order.
func ValidateTimes(times []string) ([]string, error) {
	if len(times) == 0 {
		return nil, errors.New("at least one time is required")
	}
	out := make([]string, 0, len(times))
	for i, token := range times {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, fmt.Errorf("entry %d is empty", i+1)
		}
		if err := validateClock(token); err != nil {
			return nil, err
		}
		out = append(out, token)
	}
	return out, nil
}

func validateClock(token string) error {
	if len(token) != 5 || token[2] != ':' {
		return fmt.Errorf("invalid time %q, expected HH:MM", token)
	}
	hour, err := parseDigits(token[0:2])
	if err != nil {
		return fmt.Errorf("invalid time %q, hour is not numeric", token)
	}
	minute, err := parseDigits(token[3:5])
	if err != nil {
		return fmt.Errorf("invalid time %q, minute is not numeric", token)
	}
	if hour > 23 {
		return fmt.Errorf("invalid time %q, hour must be between 00 and 23", token)
	}
	if minute > 59 {
		return fmt.Errorf("invalid time %q, minute must be between 00 and 59", token)
	}
	return nil
}

func parseDigits(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

// ValidateEmail reports whether email looks like local@domain.tld.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ParseDate parses a YYYY-MM-DD date into a UTC calendar date.
func ParseDate(s string) (datatypes.Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return datatypes.Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return datatypes.Date(t), nil
}

// DateOf returns the calendar date of t as seen in t's own location.
func DateOf(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// FormatDate renders a calendar date in DateLayout.
func FormatDate(d datatypes.Date) string {
	return time.Time(d).Format(DateLayout)
}

func dateBefore(a, b datatypes.Date) bool {
	return FormatDate(a) < FormatDate(b)
}
