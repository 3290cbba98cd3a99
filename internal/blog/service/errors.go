package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrDuplicateUser         = errors.New("username or email already in use")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrTokenInvalidOrExpired = errors.New("reset token is invalid or expired")
)

// InvalidCredentialsMessage is shown for every failed login, whichever of
// email or password was wrong.
const InvalidCredentialsMessage = "Login Unsuccessful. Please check email and password."

// ValidationError carries one message per offending form field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// add records msg for field unless the field already has a message.
func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// err returns e, or nil when nothing was recorded.
func (e *ValidationError) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
