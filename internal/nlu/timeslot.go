package nlu

import (
	"regexp"
	"strconv"
	"strings"
)

var clockPattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(a\.?m\.?|p\.?m\.?)?\b`)

// slotToleranceMinutes is how far a spoken time may drift from an offered
// slot and still count as choosing it.
const slotToleranceMinutes = 30

// ParseTimeSlot resolves an utterance against the list of offered slots
// (each "HH:MM", 24-hour). A numeric time wins on exact match, otherwise the
// closest candidate within 30 minutes. Without a numeric time, the words
// morning/afternoon/evening pick the first candidate in that bucket.
func ParseTimeSlot(utterance string, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	if minutes, ok := extractClock(utterance); ok {
		best := -1
		bestDiff := slotToleranceMinutes + 1
		for i, c := range candidates {
			cm, err := slotMinutes(c)
			if err != nil {
				continue
			}
			diff := minutes - cm
			if diff < 0 {
				diff = -diff
			}
			if diff == 0 {
				return candidates[i], true
			}
			if diff < bestDiff {
				bestDiff = diff
				best = i
			}
		}
		if best >= 0 && bestDiff <= slotToleranceMinutes {
			return candidates[best], true
		}
		return "", false
	}

	lower := strings.ToLower(utterance)
	var lo, hi int
	switch {
	case strings.Contains(lower, "morning"):
		lo, hi = 8, 12
	case strings.Contains(lower, "afternoon"):
		lo, hi = 12, 17
	case strings.Contains(lower, "evening"):
		lo, hi = 17, 24
	default:
		return "", false
	}
	for _, c := range candidates {
		cm, err := slotMinutes(c)
		if err != nil {
			continue
		}
		if h := cm / 60; h >= lo && h < hi {
			return c, true
		}
	}
	return "", false
}

// extractClock pulls a clock time out of an utterance and returns it as
// minutes since midnight. "12am" maps to 0; pm adds twelve hours unless the
// hour is already on the 24-hour clock.
func extractClock(utterance string) (int, bool) {
	m := clockPattern.FindStringSubmatch(utterance)
	if m == nil || m[1] == "" {
		return 0, false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return 0, false
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return 0, false
		}
	}
	meridiem := strings.ReplaceAll(strings.ToLower(m[3]), ".", "")
	switch meridiem {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return hour*60 + minute, true
}

func slotMinutes(slot string) (int, error) {
	parts := strings.SplitN(slot, ":", 2)
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m := 0
	if len(parts) == 2 {
		if m, err = strconv.Atoi(parts[1]); err != nil {
			return 0, err
		}
	}
	return h*60 + m, nil
}
