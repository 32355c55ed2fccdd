package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserFullName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"full profile", User{FirstName: "Nathan", LastName: "Hill", Email: "nathan@example.com"}, "Nathan Hill"},
		{"first name only", User{FirstName: "Nathan", Email: "nathan@example.com"}, "Nathan"},
		{"empty profile falls back to email local part", User{Email: "nathan@example.com"}, "nathan"},
		{"degenerate email", User{Email: "@example.com"}, "@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.FullName())
		})
	}
}
