package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/connectfour-client/internal/apperror"
	"github.com/rocketscienceinc/connectfour-client/internal/entity"
	"github.com/rocketscienceinc/connectfour-client/testing/suite"
)

func TestSessionRepository_Load(t *testing.T) {
	t.Run("Load_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		sessionRepo := NewSessionRepository(st.Storage)

		// When: Load is called on an empty storage
		_, err := sessionRepo.Load(ctx)

		// Then: the not-found sentinel is returned
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})

	t.Run("Load_RoundTrip", func(t *testing.T) {
		ctx, st := suite.New(t)

		sessionRepo := NewSessionRepository(st.Storage)

		// Given: a username, a mode and a game snapshot
		require.NoError(t, sessionRepo.SaveUsername(ctx, "alice"))
		require.NoError(t, sessionRepo.SaveMode(ctx, entity.ModeFriend))

		game := entity.NewGame()
		game.ID = "game-42"
		game.Status = entity.StatusInProgress
		game.Player1 = &entity.Player{Username: "alice"}
		game.Player2 = &entity.Player{Username: "bob"}
		require.NoError(t, sessionRepo.SaveGame(ctx, game))

		// When: Load is called
		session, err := sessionRepo.Load(ctx)

		// Then: every saved field is restored and the snapshot is fresh
		require.NoError(t, err)
		assert.Equal(t, "alice", session.Username)
		assert.Equal(t, entity.ModeFriend, session.Mode)
		require.NotNil(t, session.Game)
		assert.Equal(t, "game-42", session.Game.ID)
		assert.Equal(t, entity.StatusInProgress, session.Game.Status)
		assert.False(t, session.IsStale(time.Now()))
	})

	t.Run("Load_PartialSession", func(t *testing.T) {
		ctx, st := suite.New(t)

		sessionRepo := NewSessionRepository(st.Storage)

		// Given: only the username was ever saved
		require.NoError(t, sessionRepo.SaveUsername(ctx, "alice"))

		// When: Load is called
		session, err := sessionRepo.Load(ctx)

		// Then: the username comes back and the rest stays empty
		require.NoError(t, err)
		assert.Equal(t, "alice", session.Username)
		assert.Empty(t, session.Mode)
		assert.Nil(t, session.Game)
	})
}

func TestSessionRepository_Clear(t *testing.T) {
	t.Run("ClearGame_KeepsUsernameAndMode", func(t *testing.T) {
		ctx, st := suite.New(t)

		sessionRepo := NewSessionRepository(st.Storage)

		// Given: a full session
		require.NoError(t, sessionRepo.SaveUsername(ctx, "alice"))
		require.NoError(t, sessionRepo.SaveMode(ctx, entity.ModeBot))
		require.NoError(t, sessionRepo.SaveGame(ctx, entity.NewGame()))

		// When: only the game is cleared
		require.NoError(t, sessionRepo.ClearGame(ctx))

		// Then: username and mode survive
		session, err := sessionRepo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "alice", session.Username)
		assert.Equal(t, entity.ModeBot, session.Mode)
		assert.Nil(t, session.Game)
	})

	t.Run("ClearMode_KeepsUsername", func(t *testing.T) {
		ctx, st := suite.New(t)

		sessionRepo := NewSessionRepository(st.Storage)

		// Given: a username and a mode
		require.NoError(t, sessionRepo.SaveUsername(ctx, "alice"))
		require.NoError(t, sessionRepo.SaveMode(ctx, entity.ModeBot))

		// When: the mode is cleared
		require.NoError(t, sessionRepo.ClearMode(ctx))

		// Then: the username survives
		session, err := sessionRepo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "alice", session.Username)
		assert.Empty(t, session.Mode)
	})

	t.Run("Clear_DropsEverything", func(t *testing.T) {
		ctx, st := suite.New(t)

		sessionRepo := NewSessionRepository(st.Storage)

		// Given: a full session
		require.NoError(t, sessionRepo.SaveUsername(ctx, "alice"))
		require.NoError(t, sessionRepo.SaveMode(ctx, entity.ModeFriend))
		require.NoError(t, sessionRepo.SaveGame(ctx, entity.NewGame()))

		// When: the whole session is cleared
		require.NoError(t, sessionRepo.Clear(ctx))

		// Then: nothing is left to load
		_, err := sessionRepo.Load(ctx)
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})
}

func TestMemorySessionRepository(t *testing.T) {
	ctx := context.Background()

	sessionRepo := NewMemorySessionRepository()

	// Given: nothing saved yet
	_, err := sessionRepo.Load(ctx)
	require.ErrorIs(t, err, apperror.ErrSessionNotFound)

	// When: the session fields are saved
	require.NoError(t, sessionRepo.SaveUsername(ctx, "bob"))
	require.NoError(t, sessionRepo.SaveMode(ctx, entity.ModeBot))

	game := entity.NewGame()
	game.ID = "game-7"
	require.NoError(t, sessionRepo.SaveGame(ctx, game))

	// Then: they round-trip, and the stored game is a copy
	session, err := sessionRepo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob", session.Username)
	assert.Equal(t, entity.ModeBot, session.Mode)
	require.NotNil(t, session.Game)

	session.Game.Status = entity.StatusCompleted
	reloaded, err := sessionRepo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusWaiting, reloaded.Game.Status)

	// And clearing drops everything
	require.NoError(t, sessionRepo.Clear(ctx))
	_, err = sessionRepo.Load(ctx)
	require.ErrorIs(t, err, apperror.ErrSessionNotFound)
}
