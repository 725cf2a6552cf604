package domain

import (
	"strings"
	"testing"
)

func TestParseEmail(t *testing.T) {
	cases := []struct {
		raw     string
		want    Email
		problem string
	}{
		{raw: " jane@example.com ", want: "jane@example.com"},
		{raw: "first.last+tag@sub.example.org", want: "first.last+tag@sub.example.org"},
		{raw: "", problem: "Email is required"},
		{raw: "   ", problem: "Email is required"},
		{raw: "jane", problem: "Invalid email format"},
		{raw: "jane@localhost", problem: "Invalid email format"},
		{raw: "Jane <jane@example.com>", problem: "Invalid email format"},
		{raw: strings.Repeat("a", 244) + "@example.com", problem: "Email cannot exceed 255 characters"},
	}
	for _, tc := range cases {
		got, err := ParseEmail(tc.raw)
		if tc.problem == "" {
			if err != nil || got != tc.want {
				t.Errorf("ParseEmail(%q) = %q, %v", tc.raw, got, err)
			}
			continue
		}
		if err == nil || err.Error() != tc.problem {
			t.Errorf("ParseEmail(%q) error = %v, want %q", tc.raw, err, tc.problem)
		}
	}
}
