package entity

import (
	"regexp"

	"github.com/rocketscienceinc/connectfour-client/internal/apperror"
)

// Player holds information about one seat in a game. Identity equality is
// by username.
type Player struct {
	Username string `json:"username"`
	ID       string `json:"id,omitempty"`
	IsBot    bool   `json:"isBot,omitempty"`
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)

// ValidateUsername - checks the display name before any connection is
// attempted: 3 to 20 characters, letters, digits, underscore or hyphen.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return apperror.ErrInvalidUsername
	}

	return nil
}
