package usecase

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/connectfour-client/internal/apperror"
	"github.com/rocketscienceinc/connectfour-client/internal/entity"
)

// Reconciler is the exclusive owner of the canonical game state. Local moves
// are applied optimistically for latency hiding; every authoritative server
// snapshot fully replaces whatever is held, which makes late or duplicate
// messages idempotent by construction.
type Reconciler struct {
	logger         *slog.Logger
	pendingTimeout time.Duration

	mu           sync.Mutex
	username     string
	game         *entity.Game
	pending      *entity.PendingMove
	preMove      *entity.Game
	pendingTimer *time.Timer
	pendingSeq   int
}

func NewReconciler(logger *slog.Logger, pendingTimeout time.Duration) *Reconciler {
	return &Reconciler{
		logger:         logger,
		pendingTimeout: pendingTimeout,
	}
}

func (that *Reconciler) SetUsername(username string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.username = username
}

// Prime - seeds the reconciler with a restored snapshot so the board renders
// while the connection is still being re-established.
func (that *Reconciler) Prime(game *entity.Game) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.game = game.Clone()
}

// ApplyOptimisticMove - drops a token for the local player before the server
// confirms it. The column is scanned bottom-up for the first empty cell; a
// full column rejects the move and leaves the board untouched. The pre-move
// snapshot is kept so a failed send can roll the move back.
func (that *Reconciler) ApplyOptimisticMove(column int) (entity.Move, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.game == nil {
		return entity.Move{}, apperror.ErrNoActiveGame
	}

	if !that.game.IsInProgress() {
		return entity.Move{}, apperror.ErrGameIsNotStarted
	}

	if that.pending != nil {
		return entity.Move{}, apperror.ErrMovePending
	}

	if !that.game.IsPlayersTurn(that.username) {
		return entity.Move{}, apperror.ErrNotYourTurn
	}

	player := that.game.PlayerNumber(that.username)
	snapshot := that.game.Clone()

	row, err := that.game.Drop(column, player)
	if err != nil {
		return entity.Move{}, fmt.Errorf("failed to drop token: %w", err)
	}

	move := entity.Move{Row: row, Column: column, Player: player}

	that.game.LastMove = &move
	that.game.ToggleTurn()

	that.preMove = snapshot
	that.pending = &entity.PendingMove{
		Row:      row,
		Column:   column,
		Player:   player,
		IssuedAt: time.Now(),
	}

	// Liveness safeguard against a slow or lost server echo: expiry clears
	// the pending marker only, it is not a rollback.
	that.pendingSeq++
	seq := that.pendingSeq
	that.pendingTimer = time.AfterFunc(that.pendingTimeout, func() {
		that.expirePending(seq)
	})

	return move, nil
}

func (that *Reconciler) expirePending(seq int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if seq != that.pendingSeq || that.pending == nil {
		return
	}

	that.logger.Warn("pending move expired without server confirmation",
		"column", that.pending.Column, "issued_at", that.pending.IssuedAt)

	that.pending = nil
	that.preMove = nil
}

// ApplyAuthoritative - merges a server snapshot. Any authoritative message
// settles the outstanding optimistic move regardless of its content, and the
// held state is fully replaced, never merged field by field.
func (that *Reconciler) ApplyAuthoritative(game *entity.Game) {
	log := that.logger.With("method", "ApplyAuthoritative")

	that.mu.Lock()
	defer that.mu.Unlock()

	that.clearPending()

	// The server sometimes still reports waiting after both seats filled.
	// Treat the game as started so play is not blocked, but log the
	// divergence instead of silently trusting either side.
	if game.IsWaiting() && game.HasBothPlayers() {
		log.Warn("server reports waiting with both seats taken, treating game as in progress",
			"game_id", game.ID)
		game.Status = entity.StatusInProgress
	}

	that.game = game
}

// CompleteGame - marks the game finished with the server-reported result.
func (that *Reconciler) CompleteGame(result entity.GameResult) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.clearPending()

	if that.game == nil {
		that.game = entity.NewGame()
	}

	if result.IsDraw {
		that.game.Status = entity.StatusDraw
	} else {
		that.game.Status = entity.StatusCompleted
	}

	that.game.Winner = result.Winner
	that.game.IsDraw = result.IsDraw
	that.game.BotWon = result.BotWon
}

// CancelGame - ends the game for a reason other than a regular result, such
// as the opponent leaving or a rematch window expiring.
func (that *Reconciler) CancelGame(reason string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.clearPending()

	if that.game == nil {
		return
	}

	that.game.Status = entity.StatusCompleted
	that.game.FinishReason = reason
}

// RollbackPending - restores the pre-move snapshot after a failed send.
func (that *Reconciler) RollbackPending() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.pending == nil {
		return
	}

	if that.preMove != nil {
		that.game = that.preMove
	}

	that.clearPending()
}

// Reset - drops all held state, keeping the username.
func (that *Reconciler) Reset() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.clearPending()
	that.game = nil
}

// Stop - cancels the pending-move timer on teardown.
func (that *Reconciler) Stop() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.clearPending()
}

// Snapshot - returns a deep copy of the held game, or nil when none exists.
func (that *Reconciler) Snapshot() *entity.Game {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.game == nil {
		return nil
	}

	return that.game.Clone()
}

func (that *Reconciler) GameID() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.game == nil {
		return ""
	}

	return that.game.ID
}

func (that *Reconciler) IsMyTurn() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.game != nil && that.game.IsPlayersTurn(that.username)
}

func (that *Reconciler) PendingMove() *entity.PendingMove {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.pending == nil {
		return nil
	}

	pending := *that.pending

	return &pending
}

// clearPending - settles the outstanding move. Caller holds the lock.
func (that *Reconciler) clearPending() {
	that.pendingSeq++

	if that.pendingTimer != nil {
		that.pendingTimer.Stop()
		that.pendingTimer = nil
	}

	that.pending = nil
	that.preMove = nil
}
