package dialog

import "strings"

// escalationKeywords hand the call to a human when spoken anywhere in an
// utterance, before any state-specific handling.
var escalationKeywords = []string{
	"human", "person", "staff", "representative", "operator", "transfer",
}

// urgencyKeywords transfer immediately, bypassing escalation counting.
var urgencyKeywords = []string{
	"emergency", "urgent", "pain",
}

func containsKeyword(utterance string, keywords []string) bool {
	lower := strings.ToLower(utterance)
	for _, kw := range keywords {
		if containsWholeWord(lower, kw) {
			return true
		}
	}
	return false
}

func containsWholeWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordByte(s[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(s) || !isWordByte(s[afterIdx])
		if before && after {
			return true
		}
		idx = i + len(word)
	}
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// yes/no vocabularies for the confirmation and continuation states.
var yesWords = []string{
	"yes", "yeah", "yep", "yup", "correct", "right", "sure", "confirm",
	"book it", "sounds good", "that's right", "ok", "okay",
}

var noWords = []string{
	"no", "nope", "nah", "wrong", "change", "cancel", "different", "not",
}

// goodbyeWords end the call from the complete state.
var goodbyeWords = []string{
	"no", "nope", "nothing", "goodbye", "bye", "thank you", "thanks",
	"that's all", "that is all", "all set", "i'm good", "im good",
}

func isAffirmative(utterance string) bool {
	return containsKeyword(utterance, yesWords)
}

func isNegative(utterance string) bool {
	return containsKeyword(utterance, noWords)
}

func isGoodbye(utterance string) bool {
	if strings.TrimSpace(utterance) == "" {
		return false
	}
	return containsKeyword(utterance, goodbyeWords)
}
