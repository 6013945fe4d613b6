package nlu

import "testing"

func TestParseEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"john.smith@example.com", "john.smith@example.com", true},
		{"you can reach me at jane@clinic.org thanks", "jane@clinic.org", true},
		{"john at gmail dot com", "john@gmail.com", true},
		{"JOHN SMITH AT OUTLOOK DOT COM", "johnsmith@outlook.com", true},
		{"I don't have one", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseEmail(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseEmail(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
