package application

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/connectfour-client/internal/apperror"
	"github.com/rocketscienceinc/connectfour-client/internal/config"
	"github.com/rocketscienceinc/connectfour-client/internal/event"
	"github.com/rocketscienceinc/connectfour-client/internal/repository"
	"github.com/rocketscienceinc/connectfour-client/internal/repository/storage"
	"github.com/rocketscienceinc/connectfour-client/internal/transport/websocket"
	"github.com/rocketscienceinc/connectfour-client/internal/usecase"
)

// RunApp - wires the session controller together and runs the console until
// the player exits or the process is signalled.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	sessionRepo := newSessionRepository(ctx, logger, conf)

	bus := event.NewBus(logger)
	manager := websocket.NewManager(logger, &conf.Connection, bus)
	session := usecase.NewGameSession(logger, conf, manager, sessionRepo, bus)
	router := websocket.NewRouter(logger, session, bus)
	manager.Attach(router)

	if saved, err := session.Restore(ctx); err == nil {
		log.Info("restored persisted session", "username", saved.Username, "mode", saved.Mode)
	} else if !errors.Is(err, apperror.ErrSessionNotFound) {
		log.Warn("could not restore persisted session", "error", err)
	}

	console := NewConsole(logger, session, bus)

	errCh := make(chan error, 1)
	go func() {
		if consoleErr := console.Run(ctx); consoleErr != nil {
			errCh <- consoleErr
		}
		cancel()
	}()

	select {
	case err := <-errCh:
		session.Shutdown(ctx)
		return err
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		session.Shutdown(ctx)
		return nil
	}
}

// newSessionRepository - prefers Redis-backed persistence and falls back to
// process memory when the storage is unreachable. Persistence is best
// effort; an unreachable storage never blocks play.
func newSessionRepository(ctx context.Context, logger *slog.Logger, conf *config.Config) repository.SessionRepository {
	log := logger.With("component", "app")

	redisStorage, err := storage.New(ctx, conf.Redis.GetRedisAddr())
	if err != nil {
		log.Warn("could not connect to redis storage, session will not survive a restart", "error", err)
		return repository.NewMemorySessionRepository()
	}

	return repository.NewSessionRepository(redisStorage)
}
