package repository

import (
	"context"
	"sync"
	"time"

	"github.com/rocketscienceinc/connectfour-client/internal/apperror"
	"github.com/rocketscienceinc/connectfour-client/internal/entity"
)

// memorySession keeps the session in process memory. It backs the app when
// Redis is unreachable: the session then lives only as long as the process.
type memorySession struct {
	mu sync.Mutex

	username string
	mode     string
	game     *entity.Game
	savedAt  time.Time
}

func NewMemorySessionRepository() SessionRepository {
	return &memorySession{}
}

func (that *memorySession) SaveUsername(_ context.Context, username string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.username = username
	that.savedAt = time.Now().UTC()

	return nil
}

func (that *memorySession) SaveMode(_ context.Context, mode string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.mode = mode
	that.savedAt = time.Now().UTC()

	return nil
}

func (that *memorySession) SaveGame(_ context.Context, game *entity.Game) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.game = game.Clone()
	that.savedAt = time.Now().UTC()

	return nil
}

func (that *memorySession) Load(_ context.Context) (*entity.Session, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.username == "" && that.mode == "" && that.game == nil {
		return nil, apperror.ErrSessionNotFound
	}

	session := &entity.Session{
		Username: that.username,
		Mode:     that.mode,
		SavedAt:  that.savedAt,
	}

	if that.game != nil {
		session.Game = that.game.Clone()
	}

	return session, nil
}

func (that *memorySession) ClearGame(_ context.Context) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.game = nil

	return nil
}

func (that *memorySession) ClearMode(_ context.Context) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.mode = ""

	return nil
}

func (that *memorySession) Clear(_ context.Context) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.username = ""
	that.mode = ""
	that.game = nil
	that.savedAt = time.Time{}

	return nil
}
