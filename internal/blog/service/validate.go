package service

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/milan-stefanik/flyhigh/internal/blog/media"
)

const requiredMsg = "This field is required."

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
func normalizeName(s string) string  { return strings.ToLower(strings.TrimSpace(s)) }

func (e *ValidationError) required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		e.add(field, requiredMsg)
		return false
	}
	return true
}

func (e *ValidationError) length(field, value string, lo, hi int) {
	if !e.required(field, value) {
		return
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(value)); n < lo || n > hi {
		e.add(field, fmt.Sprintf("Field must be between %d and %d characters long.", lo, hi))
	}
}

func (e *ValidationError) email(field, value string) {
	if !e.required(field, value) {
		return
	}
	if !validEmail(strings.TrimSpace(value)) {
		e.add(field, "Invalid email address.")
	}
}

// validEmail accepts a bare RFC 5322 address whose domain has a dot.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	domain := s[strings.LastIndex(s, "@")+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}

func (e *ValidationError) equal(field, value, other string) {
	if !e.required(field, value) {
		return
	}
	if value != other {
		e.add(field, "Field must be equal to password.")
	}
}

// image checks the upload's name; the pipeline has the final say on content.
func (e *ValidationError) image(field, name string, required bool) {
	if name == "" {
		if required {
			e.add(field, requiredMsg)
		}
		return
	}
	if !media.Allowed(name) {
		e.add(field, "File does not have an approved extension: jpg, png, jpeg")
	}
}

// profileFields checks the fields shared by registration and account update.
func (e *ValidationError) profileFields(first, last, username, email string) {
	e.length("first_name", first, 2, 25)
	e.length("last_name", last, 2, 25)
	e.length("username", username, 2, 20)
	e.email("email", email)
}
