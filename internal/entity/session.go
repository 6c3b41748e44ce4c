package entity

import (
	"time"

	"github.com/rocketscienceinc/connectfour-client/internal/apperror"
)

const (
	ModeFriend = "friend"
	ModeBot    = "bot"
)

// SessionMaxAge bounds how long a persisted username and mode stay
// restorable, independent of whether the storage expired the entry itself.
const SessionMaxAge = 24 * time.Hour

// Session is the restorable part of a player's sitting: who they are, who
// they chose to play against, and the last known game snapshot.
type Session struct {
	Username string    `json:"username"`
	Mode     string    `json:"mode"`
	Game     *Game     `json:"game,omitempty"`
	SavedAt  time.Time `json:"savedAt"`
}

// IsStale - reports whether the persisted identity is too old to restore.
func (that *Session) IsStale(now time.Time) bool {
	if that.SavedAt.IsZero() {
		return false
	}

	return now.Sub(that.SavedAt) > SessionMaxAge
}

func ValidateMode(mode string) error {
	if mode != ModeFriend && mode != ModeBot {
		return apperror.ErrInvalidMode
	}

	return nil
}
