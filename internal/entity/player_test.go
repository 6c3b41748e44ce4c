package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rocketscienceinc/connectfour-client/internal/apperror"
)

func TestValidateUsername(t *testing.T) {
	t.Run("Accepts a regular username", func(t *testing.T) {
		// Given: a 9-character alphanumeric name
		// When: validating it
		err := ValidateUsername("validUser")

		// Then: it passes
		assert.NoError(t, err)
	})

	t.Run("Accepts underscores and hyphens", func(t *testing.T) {
		assert.NoError(t, ValidateUsername("player_1"))
		assert.NoError(t, ValidateUsername("cool-name"))
	})

	t.Run("Rejects a name shorter than 3 characters", func(t *testing.T) {
		// Given: a 2-character name
		// When: validating it
		err := ValidateUsername("ab")

		// Then: it is rejected before any connection would be attempted
		assert.ErrorIs(t, err, apperror.ErrInvalidUsername)
	})

	t.Run("Rejects a name longer than 20 characters", func(t *testing.T) {
		err := ValidateUsername("abcdefghijklmnopqrstu")

		assert.ErrorIs(t, err, apperror.ErrInvalidUsername)
	})

	t.Run("Rejects forbidden characters", func(t *testing.T) {
		assert.ErrorIs(t, ValidateUsername("has space"), apperror.ErrInvalidUsername)
		assert.ErrorIs(t, ValidateUsername("semi;colon"), apperror.ErrInvalidUsername)
		assert.ErrorIs(t, ValidateUsername("émile"), apperror.ErrInvalidUsername)
	})

	t.Run("Rejects an empty name", func(t *testing.T) {
		assert.ErrorIs(t, ValidateUsername(""), apperror.ErrInvalidUsername)
	})
}
