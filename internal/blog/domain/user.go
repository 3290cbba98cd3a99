package domain

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// User is a registered author. Names and email are stored lower-cased;
// use DisplayName for presentation.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Username     string
	Email        string
	PasswordHash string // argon2id PHC string
	ImageFile    string // blob filename of the profile picture, "" for none
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName is "First Last" in title case.
func (u User) DisplayName() string {
	return TitleCase(u.FirstName + " " + u.LastName)
}

// HasImage reports whether the user uploaded a profile picture.
func (u User) HasImage() bool { return u.ImageFile != "" }

// TitleCase upper-cases the first letter of each word.
func TitleCase(s string) string {
	return cases.Title(language.Und).String(s)
}
