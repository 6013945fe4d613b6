package nlu

import "testing"

func TestParsePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"555-867-5309", "+15558675309", true},
		{"my number is (555) 867 5309", "+15558675309", true},
		{"1 555 867 5309", "+15558675309", true},
		{"+44 20 7946 0958", "+442079460958", true},
		{"5 5 5 8 6 7 5 3 0 9", "+15558675309", true},
		{"867-5309", "", false},
		{"no number here", "", false},
		{"12345678901234567890", "", false},
	}
	for _, tt := range tests {
		got, ok := ParsePhone(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParsePhone(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParsePhoneTenDigitsAlwaysPlusOne(t *testing.T) {
	// Any ten contiguous digits come back as +1 followed by those digits.
	inputs := []string{"2025550123", "202-555-0123", "202.555.0123"}
	for _, in := range inputs {
		got, ok := ParsePhone(in)
		if !ok || got != "+12025550123" {
			t.Errorf("ParsePhone(%q) = (%q, %v), want +12025550123", in, got, ok)
		}
	}
}
