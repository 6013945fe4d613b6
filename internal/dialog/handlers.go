package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clinicdesk/clinic-voice-platform/internal/directory"
	"github.com/clinicdesk/clinic-voice-platform/internal/nlu"
	"github.com/clinicdesk/clinic-voice-platform/internal/scheduling"
)

const dateLayout = "2006-01-02"

func (e *Engine) handleGreeting(ctx context.Context, sess *Session, utterance, clinicID string) reply {
	// Callers often open with their request; don't make them repeat it.
	if utterance != "" && classifyIntent(utterance) != IntentGeneral {
		return e.handleIntent(ctx, sess, utterance, clinicID)
	}
	return reply{next: StepIntent, text: msgGreeting}
}

func (e *Engine) handleIntent(ctx context.Context, sess *Session, utterance, clinicID string) reply {
	switch classifyIntent(utterance) {
	case IntentWalkIn:
		setIntent(sess, IntentWalkIn)
		return reply{next: StepWalkinDetails, text: msgWalkinAskName}
	case IntentAppointment:
		setIntent(sess, IntentAppointment)
		return reply{next: StepName, text: msgAskName}
	case IntentFAQ:
		if answer, ok := lookupFAQ(utterance); ok {
			setIntent(sess, IntentFAQ)
			return reply{next: StepIntent, text: answer + " " + msgAnythingElse}
		}
		return reply{fail: true, text: msgIntentRetry}
	default:
		return reply{fail: true, text: msgIntentRetry}
	}
}

// setIntent records the caller's purpose once. Appointment and walk-in may
// upgrade an earlier faq/general classification, but a committed booking
// intent is never silently replaced.
func setIntent(sess *Session, intent Intent) {
	switch sess.Intent {
	case "", IntentFAQ, IntentGeneral:
		sess.Intent = intent
	}
}

func (e *Engine) handleName(sess *Session, utterance string) reply {
	name, ok := nlu.ParseName(utterance)
	if !ok {
		return reply{fail: true, text: msgNameRetry}
	}
	sess.Slots.PatientName = name
	return reply{
		next: StepPhone,
		text: fmt.Sprintf("Thanks, %s. What's the best phone number to reach you?", firstName(name)),
	}
}

func (e *Engine) handlePhone(sess *Session, utterance string) reply {
	phone, ok := nlu.ParsePhone(utterance)
	if !ok {
		return reply{fail: true, text: msgPhoneRetry}
	}
	sess.Slots.Phone = phone
	return reply{next: StepEmail, text: "Got it. " + msgAskEmail}
}

func (e *Engine) handleEmail(sess *Session, utterance string) reply {
	if wantsToSkip(utterance) {
		return reply{next: StepDateOfBirth, text: msgEmailSkipped + " " + msgAskDOB}
	}
	if email, ok := nlu.ParseEmail(utterance); ok {
		sess.Slots.Email = email
		return reply{next: StepDateOfBirth, text: "Perfect. " + msgAskDOB}
	}
	// Email is optional: after the last allowed attempt we move on instead
	// of escalating.
	if sess.Attempts+1 >= e.maxAttempts {
		return reply{next: StepDateOfBirth, text: msgEmailSkipped + " " + msgAskDOB}
	}
	return reply{fail: true, text: msgEmailRetry}
}

func (e *Engine) handleDateOfBirth(ctx context.Context, sess *Session, utterance, clinicID string) reply {
	if !wantsToSkip(utterance) {
		dob, ok := nlu.ParseDateOfBirth(utterance, e.now())
		if !ok {
			return reply{fail: true, text: msgDOBRetry}
		}
		sess.Slots.DateOfBirth = dob.Format(dateLayout)
	}
	return e.promptDepartment(ctx, sess, "Thank you. ", clinicID)
}

// promptDepartment moves the session into the department step, speaking the
// current list of options.
func (e *Engine) promptDepartment(ctx context.Context, sess *Session, prefix, clinicID string) reply {
	departments, err := e.directory.GetDepartments(ctx, clinicID)
	if err != nil {
		return e.unavailable(err, sess.ID)
	}
	if len(departments) == 0 {
		return reply{
			next: StepIntent,
			text: "I'm sorry, we aren't able to book appointments right now. " + msgAnythingElse,
		}
	}
	names := make([]string, len(departments))
	for i, d := range departments {
		names[i] = d.Name
	}
	return reply{
		next: StepDepartment,
		text: fmt.Sprintf("%sWhich department would you like? We have %s.", prefix, joinNames(names)),
	}
}

func (e *Engine) handleDepartment(ctx context.Context, sess *Session, utterance, clinicID string) reply {
	departments, err := e.directory.GetDepartments(ctx, clinicID)
	if err != nil {
		return e.unavailable(err, sess.ID)
	}
	names := make([]string, len(departments))
	for i, d := range departments {
		names[i] = d.Name
	}

	idx, ok := nlu.MatchEntity(utterance, names)
	if !ok {
		return reply{
			fail: true,
			text: fmt.Sprintf("I'm sorry, I didn't catch the department. Our departments are %s. Which would you like?", joinNames(names)),
		}
	}
	dept := departments[idx]

	doctors, err := e.directory.GetDoctors(ctx, clinicID, dept.ID)
	if err != nil {
		return e.unavailable(err, sess.ID)
	}
	if len(doctors) == 0 {
		// Same state, attempts reset: offer an alternative instead of escalating.
		return reply{
			next: StepDepartment,
			text: fmt.Sprintf("I'm sorry, no doctors in %s are taking appointments right now. Would another department work? We have %s.", dept.Name, joinNames(names)),
		}
	}

	sess.Slots.DepartmentID = dept.ID
	sess.Slots.DepartmentName = dept.Name
	sess.Slots.Doctors = make([]DoctorOption, len(doctors))
	docNames := make([]string, len(doctors))
	for i, d := range doctors {
		sess.Slots.Doctors[i] = DoctorOption{
			ID:          d.ID,
			Name:        d.Name,
			WorkingDays: d.WorkingDays,
			DailySlots:  d.DailySlots,
		}
		docNames[i] = d.Name
	}
	return reply{
		next: StepDoctor,
		text: fmt.Sprintf("In %s we have %s. Who would you prefer?", dept.Name, joinNames(docNames)),
	}
}

func (e *Engine) handleDoctor(sess *Session, utterance string) reply {
	names := make([]string, len(sess.Slots.Doctors))
	for i, d := range sess.Slots.Doctors {
		names[i] = d.Name
	}
	idx, ok := nlu.MatchEntity(utterance, names)
	if !ok {
		return reply{
			fail: true,
			text: fmt.Sprintf("I'm sorry, I didn't catch that. Available doctors are %s. Who would you prefer?", joinNames(names)),
		}
	}
	doc := sess.Slots.Doctors[idx]
	sess.Slots.DoctorID = doc.ID
	sess.Slots.DoctorName = doc.Name
	return reply{
		next: StepDate,
		text: fmt.Sprintf("%s is in on %s. What day would you like to come in?", doc.Name, joinNames(doc.WorkingDays)),
	}
}

func (e *Engine) handleDate(ctx context.Context, sess *Session, utterance string) reply {
	date, ok := nlu.ParseDate(utterance, e.now())
	if !ok {
		return reply{fail: true, text: msgDateRetry}
	}
	// Validation is independent of parsing and re-runs even on dates carried
	// back from confirmation.
	if r, ok := e.checkDate(date); !ok {
		return r
	}
	return e.offerTimes(ctx, sess, date, "")
}

func (e *Engine) checkDate(date time.Time) (reply, bool) {
	switch err := nlu.ValidateAppointmentDate(date, e.now()); err {
	case nil:
		return reply{}, true
	case nlu.ErrWeekend:
		return reply{fail: true, text: msgDateWeekend}, false
	case nlu.ErrDateInPast:
		return reply{fail: true, text: msgDatePast}, false
	case nlu.ErrDateTooFar:
		return reply{fail: true, text: msgDateTooFar}, false
	default:
		return reply{fail: true, text: msgDateRetry}, false
	}
}

// offerTimes resolves availability for the chosen doctor on date and moves
// the session to the time step, or back to date when nothing is open.
func (e *Engine) offerTimes(ctx context.Context, sess *Session, date time.Time, prefix string) reply {
	doc, ok := sess.chosenDoctor()
	if !ok {
		return e.unavailable(fmt.Errorf("dialog: session %s has no chosen doctor", sess.ID), sess.ID)
	}

	slots, err := e.resolver.Resolve(ctx, directory.Doctor{
		ID:          doc.ID,
		Name:        doc.Name,
		WorkingDays: doc.WorkingDays,
		DailySlots:  doc.DailySlots,
	}, date)
	if err != nil {
		return e.unavailable(err, sess.ID)
	}
	if len(slots) == 0 {
		sess.Slots.Time = ""
		sess.Slots.TimeSlots = nil
		return reply{
			next: StepDate,
			text: fmt.Sprintf("%sI'm sorry, %s has no openings on %s. Is there another day that works for you?",
				prefix, doc.Name, spokenDate(date.Format(dateLayout))),
		}
	}

	sess.Slots.Date = date.Format(dateLayout)
	sess.Slots.Time = ""
	sess.Slots.TimeSlots = slots
	return reply{
		next: StepTime,
		text: fmt.Sprintf("%sOn %s, %s is available at %s. What time works for you?",
			prefix, spokenDate(sess.Slots.Date), doc.Name, spokenTimes(slots)),
	}
}

func (e *Engine) handleTime(sess *Session, utterance string) reply {
	slot, ok := nlu.ParseTimeSlot(utterance, sess.Slots.TimeSlots)
	if !ok {
		return reply{
			fail: true,
			text: fmt.Sprintf("%s Available times are %s.", msgTimeRetry, spokenTimes(sess.Slots.TimeSlots)),
		}
	}
	sess.Slots.Time = slot
	return reply{
		next: StepConfirmation,
		text: fmt.Sprintf("Just to confirm: an appointment for %s with %s in %s on %s at %s. Shall I book it?",
			sess.Slots.PatientName, sess.Slots.DoctorName, sess.Slots.DepartmentName,
			spokenDate(sess.Slots.Date), spokenTime(slot)),
	}
}

func (e *Engine) handleConfirmation(ctx context.Context, sess *Session, utterance, clinicID string) reply {
	// Negative first: "no, that's wrong" must not read as a yes. A decline
	// walks back to the date step so the caller can change day or time.
	if isNegative(utterance) {
		sess.Slots.Time = ""
		sess.Slots.TimeSlots = nil
		return reply{next: StepDate, text: msgChangeBooking}
	}
	if isAffirmative(utterance) {
		return e.book(ctx, sess, clinicID)
	}
	return reply{fail: true, text: msgConfirmRetry}
}

// book runs the two-phase booking: an advisory conflict pre-check for a good
// conversational message, then the constraint-guarded insert that actually
// decides the race.
func (e *Engine) book(ctx context.Context, sess *Session, clinicID string) reply {
	date, err := time.Parse(dateLayout, sess.Slots.Date)
	if err != nil {
		return e.unavailable(fmt.Errorf("dialog: malformed session date %q: %w", sess.Slots.Date, err), sess.ID)
	}

	booked, err := e.bookings.GetBookedTimes(ctx, sess.Slots.DoctorID, date)
	if err != nil {
		return e.unavailable(err, sess.ID)
	}
	for _, t := range booked {
		if t == sess.Slots.Time {
			return e.reofferSlots(ctx, sess, date)
		}
	}

	appt, err := e.bookings.Insert(ctx, scheduling.Appointment{
		ClinicID:     clinicID,
		DepartmentID: sess.Slots.DepartmentID,
		DoctorID:     sess.Slots.DoctorID,
		PatientName:  sess.Slots.PatientName,
		Phone:        sess.Slots.Phone,
		Email:        sess.Slots.Email,
		Date:         date,
		Time:         sess.Slots.Time,
		Status:       scheduling.StatusConfirmed,
		Notes:        sess.Slots.Reason,
	})
	if errors.Is(err, scheduling.ErrSlotTaken) {
		// Lost the race after the pre-check passed; recover the same way.
		return e.reofferSlots(ctx, sess, date)
	}
	if err != nil {
		return e.unavailable(err, sess.ID)
	}

	text := fmt.Sprintf("You're all set, %s: %s on %s at %s.",
		firstName(sess.Slots.PatientName), sess.Slots.DoctorName,
		spokenDate(sess.Slots.Date), spokenTime(sess.Slots.Time))
	if sess.Slots.Email != "" {
		text += " We'll email you a confirmation."
	}
	return reply{
		next:    StepComplete,
		text:    text + " " + msgAnythingElse,
		effects: Effects{AppointmentBooked: appt},
	}
}

// reofferSlots handles a booking conflict: recompute availability and send
// the caller back to pick a time (or a day, when the date filled up).
func (e *Engine) reofferSlots(ctx context.Context, sess *Session, date time.Time) reply {
	return e.offerTimes(ctx, sess, date, "I'm sorry, that time was just taken. ")
}

func (e *Engine) handleWalkinDetails(sess *Session, utterance, clinicID string) reply {
	switch {
	case sess.Slots.PatientName == "":
		name, ok := nlu.ParseName(utterance)
		if !ok {
			return reply{fail: true, text: msgNameRetry}
		}
		sess.Slots.PatientName = name
		return reply{next: StepWalkinDetails, text: msgWalkinAskPhone}

	case sess.Slots.Phone == "":
		phone, ok := nlu.ParsePhone(utterance)
		if !ok {
			return reply{fail: true, text: msgPhoneRetry}
		}
		sess.Slots.Phone = phone
		return reply{next: StepWalkinDetails, text: msgWalkinAskReason}

	default:
		reason := strings.TrimSpace(utterance)
		if len(reason) < 2 {
			return reply{fail: true, text: msgWalkinRetry}
		}
		sess.Slots.Reason = reason
		return reply{
			next: StepComplete,
			text: fmt.Sprintf("You're on today's walk-in list, %s. We'll text you when you're near the front. %s",
				firstName(sess.Slots.PatientName), msgAnythingElse),
			effects: Effects{PatientRegistered: &PatientRecord{
				ClinicID: clinicID,
				Name:     sess.Slots.PatientName,
				Phone:    sess.Slots.Phone,
				Reason:   reason,
			}},
		}
	}
}

func (e *Engine) handleComplete(ctx context.Context, sess *Session, utterance, clinicID string) reply {
	if isGoodbye(utterance) {
		return reply{
			next:    StepComplete,
			text:    msgGoodbye,
			effects: Effects{ShouldHangup: true, NextExpectedInput: InputNone},
		}
	}
	// Anything else starts a second request within the same call.
	return e.handleIntent(ctx, sess, utterance, clinicID)
}

var skipWords = []string{"skip", "no", "none", "nope", "don't have", "do not have", "pass"}

func wantsToSkip(utterance string) bool {
	return containsKeyword(utterance, skipWords)
}

func firstName(full string) string {
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}
