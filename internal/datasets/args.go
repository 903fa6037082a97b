package datasets

import (
	"fmt"
	"gugu/internal/components/chrono"
	"gugu/internal/extract"
	"gugu/lib/symbol"
	"slices"
	"strconv"
	"strings"
	"time"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", extract.ErrInvalidParameter, fmt.Sprintf(format, args...))
}

func (a Args) str(name string) (string, bool) {
	value, ok := a[name]
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (a Args) intOr(name string, fallback int) (int, error) {
	raw, ok := a.str(name)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

func (a Args) requireInt(name string) (int, error) {
	if _, ok := a.str(name); !ok {
		return 0, invalid("%s is required", name)
	}
	return a.intOr(name, 0)
}

func (a Args) dateOr(name string, fallback time.Time) (time.Time, error) {
	raw, ok := a.str(name)
	if !ok {
		return fallback, nil
	}
	date, err := time.ParseInLocation(chrono.DateLayout, raw, chrono.Shanghai())
	if err != nil {
		return time.Time{}, invalid("%s must be a YYYY-MM-DD date, got %q", name, raw)
	}
	return date, nil
}

// symbol reads the 6 digit security code in "code" and formats it for
// the quote sites.
func (a Args) symbol() (string, error) {
	code, ok := a.str("code")
	if !ok {
		return "", invalid("code is required")
	}
	s := symbol.For(code)
	if s == "" {
		return "", invalid("code must be a 6 digit security code, got %q", code)
	}
	return s, nil
}

var lhbDays = []int{5, 10, 30, 60}

func checkDays(days int) error {
	if !slices.Contains(lhbDays, days) {
		return invalid("days must be one of %v, got %d", lhbDays, days)
	}
	return nil
}

func checkQuarter(year, quarter int) error {
	if year < 1989 {
		return invalid("year must be 1989 or later, got %d", year)
	}
	if quarter < 1 || quarter > 4 {
		return invalid("quarter must be 1, 2, 3 or 4, got %d", quarter)
	}
	return nil
}

func (a Args) yearQuarter() (int, int, error) {
	year, err := a.requireInt("year")
	if err != nil {
		return 0, 0, err
	}
	quarter, err := a.requireInt("quarter")
	if err != nil {
		return 0, 0, err
	}
	return year, quarter, checkQuarter(year, quarter)
}

// top reads a positive record limit, "all" means no limit.
func (a Args) top(fallback int) (int, error) {
	raw, ok := a.str("top")
	if !ok {
		return fallback, nil
	}
	if strings.EqualFold(raw, "all") {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, invalid("top must be a positive integer or \"all\", got %q", raw)
	}
	return n, nil
}
