package server

import (
	"net/mail"
	"strings"
)

const PasswordLengthMin = 8

// ValidationBag collects field errors keyed by request field name.
type ValidationBag struct {
	Errors map[string][]string
}

func newValidationBag() *ValidationBag {
	return &ValidationBag{Errors: make(map[string][]string)}
}

func (b *ValidationBag) Valid() bool {
	return len(b.Errors) == 0
}

func (b *ValidationBag) Add(field, message string) {
	b.Errors[field] = append(b.Errors[field], message)
}

func (b *ValidationBag) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		b.Add(field, "This field is required")
		return false
	}
	return true
}

func (b *ValidationBag) Email(field, value string) {
	if !b.Required(field, value) {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) || !plainAddress(addr.Address) {
		b.Add(field, "Enter a valid email address")
	}
}

// plainAddress rejects quoted local parts and domains without a dot.
func plainAddress(addr string) bool {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return false
	}
	local, domain := addr[:at], addr[at+1:]
	if strings.ContainsAny(local, "\" \t") {
		return false
	}
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1 && !strings.Contains(domain, "..")
}

func (b *ValidationBag) Password(field, password string) bool {
	if !b.Required(field, password) {
		return false
	}
	if len(password) < PasswordLengthMin {
		b.Add(field, "Password must be at least 8 characters")
		return false
	}
	return true
}

// Confirm checks a confirmation field matches its original.
func (b *ValidationBag) Confirm(field, original, confirm string) {
	if !b.Required(field, confirm) {
		return
	}
	if original != confirm {
		b.Add(field, "Passwords do not match")
	}
}

func (b *ValidationBag) OneOf(field, value string, allowed ...string) {
	if !b.Required(field, value) {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	b.Add(field, "Must be one of: "+strings.Join(allowed, ", "))
}
