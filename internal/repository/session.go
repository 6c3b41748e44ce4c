package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/connectfour-client/internal/apperror"
	"github.com/rocketscienceinc/connectfour-client/internal/entity"
)

// Each field lives under its own key so it can be cleared independently:
// exiting to mode selection drops the game and mode but keeps the username.
const (
	usernameKey = "session:username"
	modeKey     = "session:mode"
	gameKey     = "session:game"
	savedAtKey  = "session:saved_at"
)

// sessionTTL matches entity.SessionMaxAge; staleness is still checked
// against the saved-at timestamp on restore, in case the storage kept the
// entry longer than it promised.
const sessionTTL = entity.SessionMaxAge

type SessionRepository interface {
	SaveUsername(ctx context.Context, username string) error
	SaveMode(ctx context.Context, mode string) error
	SaveGame(ctx context.Context, game *entity.Game) error

	Load(ctx context.Context) (*entity.Session, error)

	ClearGame(ctx context.Context) error
	ClearMode(ctx context.Context) error
	Clear(ctx context.Context) error
}

type dbSession struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) SessionRepository {
	return &dbSession{
		client: client,
	}
}

func (that *dbSession) SaveUsername(ctx context.Context, username string) error {
	if err := that.client.Set(ctx, usernameKey, username, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to set username: %w", err)
	}

	return that.touch(ctx)
}

func (that *dbSession) SaveMode(ctx context.Context, mode string) error {
	if err := that.client.Set(ctx, modeKey, mode, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to set mode: %w", err)
	}

	return that.touch(ctx)
}

func (that *dbSession) SaveGame(ctx context.Context, game *entity.Game) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	if err = that.client.Set(ctx, gameKey, gameJSON, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to set game: %w", err)
	}

	return that.touch(ctx)
}

func (that *dbSession) Load(ctx context.Context) (*entity.Session, error) {
	username, err := that.get(ctx, usernameKey)
	if err != nil {
		return nil, err
	}

	mode, err := that.get(ctx, modeKey)
	if err != nil {
		return nil, err
	}

	gameJSON, err := that.get(ctx, gameKey)
	if err != nil {
		return nil, err
	}

	savedAtRaw, err := that.get(ctx, savedAtKey)
	if err != nil {
		return nil, err
	}

	if username == "" && mode == "" && gameJSON == "" {
		return nil, apperror.ErrSessionNotFound
	}

	session := &entity.Session{
		Username: username,
		Mode:     mode,
	}

	if gameJSON != "" {
		var game entity.Game
		if err = json.Unmarshal([]byte(gameJSON), &game); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game: %w", err)
		}
		session.Game = &game
	}

	if savedAtRaw != "" {
		savedAt, parseErr := time.Parse(time.RFC3339, savedAtRaw)
		if parseErr != nil {
			return nil, fmt.Errorf("failed to parse saved-at timestamp: %w", parseErr)
		}
		session.SavedAt = savedAt
	}

	return session, nil
}

func (that *dbSession) ClearGame(ctx context.Context) error {
	if err := that.client.Del(ctx, gameKey).Err(); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	return nil
}

func (that *dbSession) ClearMode(ctx context.Context) error {
	if err := that.client.Del(ctx, modeKey).Err(); err != nil {
		return fmt.Errorf("failed to delete mode: %w", err)
	}

	return nil
}

func (that *dbSession) Clear(ctx context.Context) error {
	if err := that.client.Del(ctx, usernameKey, modeKey, gameKey, savedAtKey).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// touch - refreshes the staleness timestamp; every write counts.
func (that *dbSession) touch(ctx context.Context) error {
	savedAt := time.Now().UTC().Format(time.RFC3339)

	if err := that.client.Set(ctx, savedAtKey, savedAt, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to set saved-at timestamp: %w", err)
	}

	return nil
}

func (that *dbSession) get(ctx context.Context, key string) (string, error) {
	value, err := that.client.Get(ctx, key).Result()

	if errors.Is(err, redis.Nil) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}

	return value, nil
}
