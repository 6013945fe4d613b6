package nlu

import "strings"

// ParsePhone extracts and normalizes a phone number from an utterance.
// Everything except digits is discarded. Ten-digit numbers are treated as US
// national and prefixed +1; eleven digits with a leading 1 keep it; any other
// 10-15 digit sequence is taken as an international number and prefixed with
// a plus. Outside that range extraction fails.
func ParsePhone(utterance string) (string, bool) {
	var b strings.Builder
	for _, r := range utterance {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 10:
		return "+1" + digits, true
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits, true
	case len(digits) >= 10 && len(digits) <= 15:
		return "+" + digits, true
	default:
		return "", false
	}
}
