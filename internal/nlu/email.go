package nlu

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// ParseEmail extracts an email address from an utterance. Transcribed speech
// rarely contains a literal address, so when the first regex pass misses we
// rewrite spoken forms ("john at gmail dot com") and try again.
func ParseEmail(utterance string) (string, bool) {
	if m := emailPattern.FindString(utterance); m != "" {
		return strings.ToLower(m), true
	}

	spoken := strings.ToLower(utterance)
	spoken = strings.ReplaceAll(spoken, " at ", "@")
	spoken = strings.ReplaceAll(spoken, " dot ", ".")
	spoken = strings.Join(strings.Fields(spoken), "")
	if m := emailPattern.FindString(spoken); m != "" {
		return m, true
	}
	return "", false
}
