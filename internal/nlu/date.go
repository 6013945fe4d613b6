package nlu

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Appointment date validation errors. Validation is independent of parsing
// and re-runs on dates carried over from a backward transition.
var (
	ErrDateInPast = errors.New("nlu: date is in the past")
	ErrDateTooFar = errors.New("nlu: date is beyond the booking horizon")
	ErrWeekend    = errors.New("nlu: date falls on a weekend")
)

// BookingHorizonMonths bounds how far out an appointment may be booked.
const BookingHorizonMonths = 3

// weekdayNames is ordered so multi-weekday utterances resolve deterministically.
var weekdayNames = []struct {
	name string
	day  time.Weekday
}{
	{"monday", time.Monday},
	{"tuesday", time.Tuesday},
	{"wednesday", time.Wednesday},
	{"thursday", time.Thursday},
	{"friday", time.Friday},
	{"saturday", time.Saturday},
	{"sunday", time.Sunday},
}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	monthDayPattern = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	mdySlashPattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	mdyDashPattern  = regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`)
	isoPattern      = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)

	monthDayYearPattern = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
)

// ParseDate resolves a spoken date reference against the current moment.
// Resolution order: relative keywords, weekday names, month-name + day,
// then numeric formats. The zero time plus false means nothing matched.
func ParseDate(utterance string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(utterance)
	today := midnight(now)

	switch {
	case strings.Contains(lower, "today"):
		return today, true
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1), true
	case strings.Contains(lower, "next week"):
		return today.AddDate(0, 0, 7), true
	}

	for _, entry := range weekdayNames {
		if !containsWord(lower, entry.name) {
			continue
		}
		days := int(entry.day - today.Weekday())
		if days <= 0 {
			days += 7
		}
		return today.AddDate(0, 0, days), true
	}

	if m := monthDayPattern.FindStringSubmatch(lower); m != nil {
		month := monthNames[strings.TrimSuffix(m[1], ".")]
		day, _ := strconv.Atoi(m[2])
		candidate := time.Date(today.Year(), month, day, 0, 0, 0, 0, today.Location())
		if candidate.Day() != day {
			return time.Time{}, false // e.g. "february 30"
		}
		if candidate.Before(today) {
			candidate = candidate.AddDate(1, 0, 0)
		}
		return candidate, true
	}

	if m := mdySlashPattern.FindStringSubmatch(lower); m != nil {
		return numericDate(m[3], m[1], m[2], today)
	}
	if m := mdyDashPattern.FindStringSubmatch(lower); m != nil {
		return numericDate(m[3], m[1], m[2], today)
	}
	if m := isoPattern.FindStringSubmatch(lower); m != nil {
		return numericDate(m[1], m[2], m[3], today)
	}

	return time.Time{}, false
}

// ValidateAppointmentDate enforces the booking window: not in the past, at
// most three months out, weekdays only.
func ValidateAppointmentDate(date time.Time, now time.Time) error {
	today := midnight(now)
	d := midnight(date)
	if d.Before(today) {
		return ErrDateInPast
	}
	if d.After(today.AddDate(0, BookingHorizonMonths, 0)) {
		return ErrDateTooFar
	}
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return ErrWeekend
	}
	return nil
}

// ParseDateOfBirth extracts a birth date. Unlike ParseDate it requires an
// explicit year and accepts only dates in the past, back to 1900.
func ParseDateOfBirth(utterance string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(utterance)
	today := midnight(now)

	var candidate time.Time
	var ok bool
	switch {
	case monthDayYearPattern.MatchString(lower):
		m := monthDayYearPattern.FindStringSubmatch(lower)
		candidate, ok = numericDate(m[3], strconv.Itoa(int(monthNames[strings.TrimSuffix(m[1], ".")])), m[2], today)
	case mdySlashPattern.MatchString(lower):
		m := mdySlashPattern.FindStringSubmatch(lower)
		candidate, ok = numericDate(m[3], m[1], m[2], today)
	case mdyDashPattern.MatchString(lower):
		m := mdyDashPattern.FindStringSubmatch(lower)
		candidate, ok = numericDate(m[3], m[1], m[2], today)
	case isoPattern.MatchString(lower):
		m := isoPattern.FindStringSubmatch(lower)
		candidate, ok = numericDate(m[1], m[2], m[3], today)
	}
	if !ok {
		return time.Time{}, false
	}
	if candidate.Year() < 1900 || !candidate.Before(today) {
		return time.Time{}, false
	}
	return candidate, true
}

func numericDate(year, month, day string, today time.Time) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	candidate := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, today.Location())
	if candidate.Day() != d || candidate.Month() != time.Month(mo) {
		return time.Time{}, false
	}
	return candidate, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isLetter(s[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(s) || !isLetter(s[afterIdx])
		if before && after {
			return true
		}
		idx = i + len(word)
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
