package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/connectfour-client/internal/apperror"
	"github.com/rocketscienceinc/connectfour-client/internal/config"
	"github.com/rocketscienceinc/connectfour-client/internal/entity"
	"github.com/rocketscienceinc/connectfour-client/internal/event"
)

type connection interface {
	Connect(ctx context.Context, username, mode string) func()
	SendJoin(username, mode string) error
	SendMove(gameID string, column int) error
	SendCancelWaiting(gameID string) error
	SendPlayAgain(gameID string) error
	SendExitGame(gameID string) error
	Shutdown()
}

type sessionRepo interface {
	SaveUsername(ctx context.Context, username string) error
	SaveMode(ctx context.Context, mode string) error
	SaveGame(ctx context.Context, game *entity.Game) error
	Load(ctx context.Context) (*entity.Session, error)
	ClearGame(ctx context.Context) error
	ClearMode(ctx context.Context) error
	Clear(ctx context.Context) error
}

type publisher interface {
	Publish(evt event.Event)
}

// GameSession orchestrates one player's sitting: identity, opponent mode,
// the connection lifecycle, optimistic moves with their rollback, the bot
// fallback when no friend shows up, and best-effort persistence so a restart
// picks up where the tab left off.
type GameSession struct {
	logger      *slog.Logger
	conn        connection
	repo        sessionRepo
	bus         publisher
	reconciler  *Reconciler
	matchmaker  *Matchmaker
	rejoinDelay time.Duration

	mu          sync.Mutex
	username    string
	mode        string
	teardown    func()
	rejoinTimer *time.Timer
}

func NewGameSession(logger *slog.Logger, conf *config.Config, conn connection, repo sessionRepo, bus publisher) *GameSession {
	session := &GameSession{
		logger:      logger,
		conn:        conn,
		repo:        repo,
		bus:         bus,
		reconciler:  NewReconciler(logger, conf.Gameplay.PendingMoveTimeout),
		rejoinDelay: conf.Matchmaking.RejoinDelay,
	}

	session.matchmaker = NewMatchmaker(logger, conf.Matchmaking.WaitTimeout, func() {
		session.FallbackToBot(context.Background())
	})

	return session
}

// Login - validates and records the display name. Nothing touches the
// network until the name is valid.
func (that *GameSession) Login(ctx context.Context, username string) error {
	if err := entity.ValidateUsername(username); err != nil {
		return err
	}

	that.mu.Lock()
	that.username = username
	that.mu.Unlock()

	that.reconciler.SetUsername(username)
	that.persist(func() error { return that.repo.SaveUsername(ctx, username) })

	return nil
}

func (that *GameSession) SelectMode(ctx context.Context, mode string) error {
	if err := entity.ValidateMode(mode); err != nil {
		return err
	}

	that.mu.Lock()
	that.mode = mode
	that.mu.Unlock()

	that.persist(func() error { return that.repo.SaveMode(ctx, mode) })

	return nil
}

// Start - opens the connection; the join frame goes out as soon as the
// socket opens.
func (that *GameSession) Start(ctx context.Context) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.username == "" {
		return apperror.ErrUsernameNotSelected
	}

	if that.mode == "" {
		return apperror.ErrModeNotSelected
	}

	that.teardown = that.conn.Connect(ctx, that.username, that.mode)

	return nil
}

// Restore - brings back a previously persisted session. Identity older than
// the staleness bound is discarded and cleared rather than restored; a fresh
// game snapshot re-primes the reconciler so the board renders while the
// connection is still coming up.
func (that *GameSession) Restore(ctx context.Context) (*entity.Session, error) {
	log := that.logger.With("method", "Restore")

	saved, err := that.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if saved.IsStale(time.Now()) {
		log.Info("discarding stale persisted session", "saved_at", saved.SavedAt)
		that.persist(func() error { return that.repo.Clear(ctx) })

		return nil, apperror.ErrSessionNotFound
	}

	that.mu.Lock()
	that.username = saved.Username
	that.mode = saved.Mode
	that.mu.Unlock()

	that.reconciler.SetUsername(saved.Username)

	if saved.Game != nil {
		that.reconciler.Prime(saved.Game)
	}

	return saved, nil
}

// Move - applies the player's move optimistically, then sends it. A failed
// send rolls the board back to its pre-move state; the send is not retried.
func (that *GameSession) Move(ctx context.Context, column int) (entity.Move, error) {
	move, err := that.reconciler.ApplyOptimisticMove(column)
	if err != nil {
		return entity.Move{}, err
	}

	that.persistGame(ctx)

	if err = that.conn.SendMove(that.reconciler.GameID(), column); err != nil {
		that.reconciler.RollbackPending()
		that.persistGame(ctx)

		return entity.Move{}, fmt.Errorf("failed to send move: %w", err)
	}

	return move, nil
}

// CancelWaiting - the player gave up on a friend joining; runs the same
// fallback path the matchmaking countdown runs on expiry.
func (that *GameSession) CancelWaiting(ctx context.Context) {
	that.matchmaker.Stop()
	that.FallbackToBot(ctx)
}

// FallbackToBot - switches the session to the automated opponent: cancel the
// wait on the server, then rejoin as a bot game after a short settle delay so
// the cancellation lands first.
func (that *GameSession) FallbackToBot(ctx context.Context) {
	log := that.logger.With("method", "FallbackToBot")

	that.mu.Lock()

	if that.mode != entity.ModeFriend {
		that.mu.Unlock()
		return
	}

	that.mode = entity.ModeBot
	username := that.username
	that.mu.Unlock()

	that.persist(func() error { return that.repo.SaveMode(ctx, entity.ModeBot) })

	if err := that.conn.SendCancelWaiting(that.reconciler.GameID()); err != nil {
		log.Warn("failed to cancel waiting", "error", err)
	}

	that.mu.Lock()
	that.rejoinTimer = time.AfterFunc(that.rejoinDelay, func() {
		if err := that.conn.SendJoin(username, entity.ModeBot); err != nil {
			log.Error("failed to rejoin as bot game", "error", err)
		}
	})
	that.mu.Unlock()

	that.bus.Publish(event.Event{
		Type:    event.TypeNotice,
		Payload: event.NoticePayload{Message: "no opponent joined, switching to a bot game"},
	})
}

// ApplyAuthoritative - the router hands every server snapshot through here.
func (that *GameSession) ApplyAuthoritative(ctx context.Context, game *entity.Game) error {
	that.reconciler.ApplyAuthoritative(game)

	that.mu.Lock()
	mode := that.mode
	that.mu.Unlock()

	that.matchmaker.Evaluate(that.reconciler.Snapshot(), mode)
	that.persistGame(ctx)

	that.bus.Publish(event.Event{
		Type:    event.TypeGameUpdated,
		Payload: event.GameUpdatedPayload{GameID: game.ID},
	})

	return nil
}

func (that *GameSession) CompleteGame(ctx context.Context, result entity.GameResult) error {
	that.reconciler.CompleteGame(result)
	that.matchmaker.Stop()
	that.persistGame(ctx)

	return nil
}

func (that *GameSession) CancelGame(ctx context.Context, reason string) error {
	that.reconciler.CancelGame(reason)
	that.matchmaker.Stop()
	that.persistGame(ctx)

	return nil
}

func (that *GameSession) PlayAgain(_ context.Context) error {
	if err := that.conn.SendPlayAgain(that.reconciler.GameID()); err != nil {
		return fmt.Errorf("failed to request rematch: %w", err)
	}

	return nil
}

// Exit - leaves the game back to mode selection: the game and mode are
// cleared, the username survives for the next sitting.
func (that *GameSession) Exit(ctx context.Context) {
	log := that.logger.With("method", "Exit")

	if err := that.conn.SendExitGame(that.reconciler.GameID()); err != nil {
		log.Debug("failed to send exit", "error", err)
	}

	that.matchmaker.Stop()
	that.reconciler.Reset()

	that.mu.Lock()
	that.mode = ""

	if that.rejoinTimer != nil {
		that.rejoinTimer.Stop()
		that.rejoinTimer = nil
	}

	teardown := that.teardown
	that.teardown = nil
	that.mu.Unlock()

	if teardown != nil {
		teardown()
	}

	that.persist(func() error { return that.repo.ClearGame(ctx) })
	that.persist(func() error { return that.repo.ClearMode(ctx) })
}

// Shutdown - page-unload path: every timer stops, the connection closes for
// good, and the persisted state stays put for the next run.
func (that *GameSession) Shutdown(_ context.Context) {
	that.mu.Lock()

	if that.rejoinTimer != nil {
		that.rejoinTimer.Stop()
		that.rejoinTimer = nil
	}
	that.mu.Unlock()

	that.matchmaker.Stop()
	that.reconciler.Stop()
	that.conn.Shutdown()
}

func (that *GameSession) Snapshot() *entity.Game {
	return that.reconciler.Snapshot()
}

func (that *GameSession) IsMyTurn() bool {
	return that.reconciler.IsMyTurn()
}

func (that *GameSession) Username() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.username
}

func (that *GameSession) Mode() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.mode
}

// persistGame - stores the current snapshot when one exists.
func (that *GameSession) persistGame(ctx context.Context) {
	game := that.reconciler.Snapshot()
	if game == nil {
		return
	}

	that.persist(func() error { return that.repo.SaveGame(ctx, game) })
}

// persist - storage failures never surface; the session just behaves as
// non-persistent.
func (that *GameSession) persist(write func() error) {
	if err := write(); err != nil {
		that.logger.Warn("failed to persist session state", "error", err)
	}
}
