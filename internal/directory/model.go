package directory

import "time"

// Department is an active department of a clinic.
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Doctor is an active doctor with a weekly availability template: the
// weekdays worked and the fixed list of slots offered on a working day.
type Doctor struct {
	ID           string   `json:"id"`
	DepartmentID string   `json:"department_id"`
	Name         string   `json:"name"`
	WorkingDays  []string `json:"working_days"` // weekday names, e.g. "Monday"
	DailySlots   []string `json:"daily_slots"`  // "HH:MM", ascending
}

// WorksOn reports whether the weekly template includes the date's weekday.
func (d Doctor) WorksOn(date time.Time) bool {
	weekday := date.Weekday().String()
	for _, wd := range d.WorkingDays {
		if wd == weekday {
			return true
		}
	}
	return false
}
