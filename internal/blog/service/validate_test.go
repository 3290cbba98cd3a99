package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidEmail(t *testing.T) {
	tests := map[string]bool{
		"ada@example.com":           true,
		"ada.lovelace+blog@ex.io":   true,
		"Ada@Example.COM":           true,
		"nope":                      false,
		"ada@localhost":             false,
		"ada@example.":              false,
		"ada@.example.com":          false,
		"Ada <ada@example.com>":     false,
		"ada@example.com, b@ex.com": false,
		"a b@example.com":           false,
	}
	for in, want := range tests {
		require.Equal(t, want, validEmail(in), "input %q", in)
	}
}

func TestEmailFieldMessage(t *testing.T) {
	v := &ValidationError{}
	v.email("email", "  ")
	v.email("other", "ada@localhost")
	require.Equal(t, requiredMsg, v.Fields["email"])
	require.Equal(t, "Invalid email address.", v.Fields["other"])
}
