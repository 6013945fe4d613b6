package nlu

import "strings"

// nameStopWords are filler tokens callers wrap around their name
// ("yeah my name is john smith", "this is maria").
var nameStopWords = map[string]struct{}{
	"my": {}, "name": {}, "is": {}, "i'm": {}, "im": {}, "i": {},
	"this": {}, "it's": {}, "its": {}, "call": {}, "me": {},
	"the": {}, "am": {}, "hi": {}, "hello": {}, "hey": {},
	"yes": {}, "yeah": {}, "ok": {}, "okay": {}, "please": {},
	"speaking": {}, "here": {},
}

// ParseName extracts a patient name from a transcribed utterance. It strips
// filler words and keeps the first two surviving tokens as first/last name.
// When filtering leaves nothing it falls back to the raw trimmed utterance.
// The only failure mode is a result shorter than two characters.
func ParseName(utterance string) (string, bool) {
	raw := strings.TrimSpace(utterance)
	cleaned := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return r == ',' || r == '.' || r == '!' || r == '?'
	})
	tokens := strings.Fields(strings.Join(cleaned, " "))

	kept := make([]string, 0, 2)
	for _, tok := range tokens {
		if _, stop := nameStopWords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
		if len(kept) == 2 {
			break
		}
	}

	name := strings.Join(kept, " ")
	if name == "" {
		name = strings.ToLower(raw)
	}
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return "", false
	}
	return titleCase(name), true
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
		}
	}
	return strings.Join(words, " ")
}
