package calendar

import "testing"

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"2024-02-29", true},
		{"2023-02-29", false},
		{"2024-1-05", false},
		{"2024-01-05T00:00:00Z", false},
		{"05/01/2024", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.in); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-03-07", "2024-03-07", true},
		{" 2024-03-07 10:15:00 ", "2024-03-07", true},
		{"07/03/2024", "2024-03-07", true},
		{"7/3/2024", "2024-03-07", true},
		{"24:35.0", "", false},
		{"NULL", "", false},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Normalize(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
