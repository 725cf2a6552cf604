package domain

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const maxEmailLength = 255

// Email is a validated, trimmed email address.
type Email string

// ParseEmail validates raw as a bare address (no display name).
func ParseEmail(raw string) (Email, error) {
	var p problems
	value := strings.TrimSpace(raw)
	switch {
	case value == "":
		p.add("Email is required")
	case utf8.RuneCountInString(value) > maxEmailLength:
		p.add("Email cannot exceed 255 characters")
	case !isBareAddress(value):
		p.add("Invalid email format")
	}
	if err := p.err(); err != nil {
		return "", err
	}
	return Email(value), nil
}

func (e Email) String() string {
	return string(e)
}

func isBareAddress(value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return false
	}
	if addr.Address != value {
		return false
	}
	at := strings.LastIndex(value, "@")
	return at > 0 && strings.Contains(value[at+1:], ".")
}
