package dialog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Fixed agent lines. Everything spoken to the caller lives here so the
// handlers read as flow control.
const (
	msgGreeting = "Thank you for calling. I'm the clinic's virtual assistant. " +
		"Are you calling to book an appointment, join today's walk-in queue, or do you have a question?"
	msgIntentRetry = "I can help you book an appointment, join the walk-in queue, or answer " +
		"general questions about the clinic. Which would you like?"
	msgTransfer = "Of course. Please hold while I connect you with a member of our staff."
	msgUrgent   = "If this is a medical emergency, please hang up and dial 911. " +
		"Otherwise, please stay on the line and I'll connect you with our staff right away."
	msgEscalate = "I'm having trouble understanding. Let me connect you with a member of our " +
		"staff who can help."
	msgUnavailable = "I'm sorry, something went wrong on our end. " +
		"Please hold while I connect you with a member of our staff."

	msgAskName       = "Great, I can help you book an appointment. May I have your full name, please?"
	msgNameRetry     = "I'm sorry, I didn't catch your name. Could you tell me your first and last name?"
	msgPhoneRetry    = "I'm sorry, that doesn't seem to be a complete phone number. Could you say it again, including the area code?"
	msgAskEmail      = "If you'd like an email confirmation, what's your email address? You can also say skip."
	msgEmailRetry    = "I didn't catch that email address. You can spell it out, for example john at gmail dot com, or say skip."
	msgEmailSkipped  = "No problem, we'll skip the email."
	msgAskDOB        = "What's your date of birth? For example, March 14th 1985."
	msgDOBRetry      = "I'm sorry, I didn't get that date of birth. Could you say it as month, day, and year?"
	msgDateRetry     = "I'm sorry, I didn't catch the date. You can say things like tomorrow, next Tuesday, or June 25th."
	msgDatePast      = "That date has already passed. What's a day that works for you in the coming weeks?"
	msgDateTooFar    = "We can only book up to three months ahead. Could you pick an earlier date?"
	msgDateWeekend   = "I'm sorry, the clinic is closed on weekends. Could you pick a weekday instead?"
	msgTimeRetry     = "I'm sorry, I didn't catch that time. You can say one of the times I listed, or morning, afternoon, or evening."
	msgConfirmRetry  = "Sorry, I just need a yes or no. Should I go ahead and book it?"
	msgChangeBooking = "No problem. What day would you like instead?"

	msgWalkinAskName   = "Sure, I can add you to today's walk-in queue. Can I get your full name?"
	msgWalkinAskPhone  = "Thanks. And a phone number we can text when you're near the front of the line?"
	msgWalkinAskReason = "Got it. And briefly, what brings you in today?"
	msgWalkinRetry     = "I'm sorry, I didn't catch that. Could you say it once more?"

	msgAnythingElse = "Is there anything else I can help you with?"
	msgGoodbye      = "Thank you for calling. Take care!"
)

// faqEntry answers a frequently asked question by keyword.
type faqEntry struct {
	keywords []string
	answer   string
}

var faqEntries = []faqEntry{
	{
		keywords: []string{"hours", "open", "close", "closing", "opening"},
		answer:   "We're open Monday through Friday, from 9 AM to 5 PM, and closed on weekends.",
	},
	{
		keywords: []string{"where", "location", "address", "directions", "parking"},
		answer:   "We're at the main clinic building; there's free patient parking behind it. Our front desk can text you directions.",
	},
	{
		keywords: []string{"insurance", "insurances", "covered", "coverage"},
		answer:   "We accept most major insurance plans. Please bring your insurance card to your visit.",
	},
	{
		keywords: []string{"cost", "price", "fee", "charge", "pay"},
		answer:   "Costs depend on the visit type and your coverage. Our front desk can give you an estimate before your appointment.",
	},
	{
		keywords: []string{"bring", "documents", "paperwork"},
		answer:   "Please bring a photo ID, your insurance card, and a list of any medications you're taking.",
	},
}

func lookupFAQ(utterance string) (string, bool) {
	for _, entry := range faqEntries {
		if containsKeyword(utterance, entry.keywords) {
			return entry.answer, true
		}
	}
	return "", false
}

// intent classification vocabularies.
var (
	appointmentWords = []string{
		"appointment", "book", "booking", "schedule", "visit", "checkup",
		"check-up", "consultation", "see a doctor", "see the doctor",
	}
	walkinWords = []string{
		"walk in", "walk-in", "walkin", "queue", "waiting list",
	}
	questionWords = []string{
		"question", "wondering", "ask",
	}
)

func classifyIntent(utterance string) Intent {
	switch {
	case containsKeyword(utterance, walkinWords):
		return IntentWalkIn
	case containsKeyword(utterance, appointmentWords):
		return IntentAppointment
	default:
		if _, ok := lookupFAQ(utterance); ok {
			return IntentFAQ
		}
		if containsKeyword(utterance, questionWords) {
			return IntentFAQ
		}
		return IntentGeneral
	}
}

// joinNames renders a list for speech: "A", "A and B", "A, B, and C".
func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}

// spokenTime renders "14:30" as "2:30 PM".
func spokenTime(slot string) string {
	parts := strings.SplitN(slot, ":", 2)
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return slot
	}
	m := "00"
	if len(parts) == 2 {
		m = parts[1]
	}
	suffix := "AM"
	switch {
	case h == 0:
		h = 12
	case h == 12:
		suffix = "PM"
	case h > 12:
		h -= 12
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%s %s", h, m, suffix)
}

func spokenTimes(slots []string) string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = spokenTime(s)
	}
	return joinNames(out)
}

// spokenDate renders "2025-06-09" as "Monday, June 9".
func spokenDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 2")
}
