package usecase

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/connectfour-client/internal/apperror"
	"github.com/rocketscienceinc/connectfour-client/internal/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func inProgressGame(id string) *entity.Game {
	game := entity.NewGame()
	game.ID = id
	game.Status = entity.StatusInProgress
	game.Player1 = &entity.Player{Username: "alice"}
	game.Player2 = &entity.Player{Username: "bob"}

	return game
}

func newTestReconciler(t *testing.T, timeout time.Duration) *Reconciler {
	t.Helper()

	reconciler := NewReconciler(testLogger(), timeout)
	reconciler.SetUsername("alice")
	t.Cleanup(reconciler.Stop)

	return reconciler
}

func TestReconciler_ApplyOptimisticMove(t *testing.T) {
	t.Run("Places the token at the bottom and flips the turn", func(t *testing.T) {
		// Given: an in-progress game on an empty board, alice to move
		reconciler := newTestReconciler(t, time.Minute)
		reconciler.ApplyAuthoritative(inProgressGame("g1"))

		// When: alice plays column 3
		move, err := reconciler.ApplyOptimisticMove(3)

		// Then: the token lands at row 5, lastMove records it, and the turn
		// flips to player 2 while the move stays pending
		require.NoError(t, err)
		assert.Equal(t, entity.Move{Row: 5, Column: 3, Player: 1}, move)

		game := reconciler.Snapshot()
		assert.Equal(t, entity.CellPlayerOne, game.Board[5][3])
		assert.Equal(t, &entity.Move{Row: 5, Column: 3, Player: 1}, game.LastMove)
		assert.Equal(t, 2, game.CurrentTurn)
		assert.NotNil(t, reconciler.PendingMove())
	})

	t.Run("Rejects a full column and leaves the board unchanged", func(t *testing.T) {
		// Given: an in-progress game where column 2 holds six tokens
		reconciler := newTestReconciler(t, time.Minute)
		game := inProgressGame("g1")
		for row := 0; row < entity.BoardRows; row++ {
			game.Board[row][2] = entity.Cell(1 + row%2)
		}
		reconciler.ApplyAuthoritative(game)
		before := reconciler.Snapshot()

		// When: alice targets the full column
		_, err := reconciler.ApplyOptimisticMove(2)

		// Then: the move is rejected and nothing changed
		require.ErrorIs(t, err, apperror.ErrColumnFull)
		assert.Equal(t, before.Board, reconciler.Snapshot().Board)
		assert.Equal(t, before.CurrentTurn, reconciler.Snapshot().CurrentTurn)
		assert.Nil(t, reconciler.PendingMove())
	})

	t.Run("Rejects a move out of turn", func(t *testing.T) {
		// Given: an in-progress game where it is bob's turn
		reconciler := newTestReconciler(t, time.Minute)
		game := inProgressGame("g1")
		game.CurrentTurn = 2
		reconciler.ApplyAuthoritative(game)

		// When: alice tries to move anyway
		_, err := reconciler.ApplyOptimisticMove(0)

		// Then: the move is rejected
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
	})

	t.Run("Rejects a move while the game is still waiting", func(t *testing.T) {
		// Given: a waiting game with only alice seated
		reconciler := newTestReconciler(t, time.Minute)
		game := entity.NewGame()
		game.Player1 = &entity.Player{Username: "alice"}
		reconciler.ApplyAuthoritative(game)

		// When: alice tries to move
		_, err := reconciler.ApplyOptimisticMove(0)

		// Then: the move is rejected
		require.ErrorIs(t, err, apperror.ErrGameIsNotStarted)
	})

	t.Run("Rejects a second move while one is still pending", func(t *testing.T) {
		// Given: alice already has an unconfirmed move out
		reconciler := newTestReconciler(t, time.Minute)
		reconciler.ApplyAuthoritative(inProgressGame("g1"))
		_, err := reconciler.ApplyOptimisticMove(3)
		require.NoError(t, err)

		// When: she tries another one before the echo arrives
		_, err = reconciler.ApplyOptimisticMove(4)

		// Then: the second move is rejected
		require.ErrorIs(t, err, apperror.ErrMovePending)
	})

	t.Run("Rejects a move when no game exists", func(t *testing.T) {
		// Given: a reconciler that never saw a game
		reconciler := newTestReconciler(t, time.Minute)

		// When: a move comes in
		_, err := reconciler.ApplyOptimisticMove(0)

		// Then: it is rejected
		require.ErrorIs(t, err, apperror.ErrNoActiveGame)
	})
}

func TestReconciler_ApplyAuthoritative(t *testing.T) {
	t.Run("Fully replaces the held state with the last received snapshot", func(t *testing.T) {
		// Given: a reconciler holding a locally mutated game
		reconciler := newTestReconciler(t, time.Minute)
		reconciler.ApplyAuthoritative(inProgressGame("g1"))
		_, err := reconciler.ApplyOptimisticMove(3)
		require.NoError(t, err)

		// When: the server sends a snapshot that disagrees with the local board
		authoritative := inProgressGame("g1")
		authoritative.Board[5][0] = entity.CellPlayerOne
		authoritative.CurrentTurn = 2
		authoritative.LastMove = &entity.Move{Row: 5, Column: 0, Player: 1}
		reconciler.ApplyAuthoritative(authoritative)

		// Then: the held state exactly equals the payload, the local token
		// at column 3 is gone
		game := reconciler.Snapshot()
		assert.Equal(t, authoritative.Board, game.Board)
		assert.Equal(t, entity.CellEmpty, game.Board[5][3])
		assert.Equal(t, 2, game.CurrentTurn)
		assert.Equal(t, authoritative.LastMove, game.LastMove)
	})

	t.Run("Clears the pending move regardless of snapshot content", func(t *testing.T) {
		// Given: an outstanding optimistic move
		reconciler := newTestReconciler(t, time.Minute)
		reconciler.ApplyAuthoritative(inProgressGame("g1"))
		_, err := reconciler.ApplyOptimisticMove(3)
		require.NoError(t, err)
		require.NotNil(t, reconciler.PendingMove())

		// When: any authoritative snapshot arrives, even one not echoing it
		reconciler.ApplyAuthoritative(inProgressGame("g1"))

		// Then: the pending move is settled
		assert.Nil(t, reconciler.PendingMove())
	})

	t.Run("Treats waiting as in progress once both seats are taken", func(t *testing.T) {
		// Given: a snapshot where the server still reports waiting with both
		// players seated
		reconciler := newTestReconciler(t, time.Minute)
		lagged := inProgressGame("g1")
		lagged.Status = entity.StatusWaiting

		// When: the snapshot is applied
		reconciler.ApplyAuthoritative(lagged)

		// Then: the game counts as in progress and alice owns the turn
		assert.True(t, reconciler.Snapshot().IsInProgress())
		assert.True(t, reconciler.IsMyTurn())
	})

	t.Run("Keeps waiting while a seat is still open", func(t *testing.T) {
		// Given: a genuinely waiting game with one seat open
		reconciler := newTestReconciler(t, time.Minute)
		game := entity.NewGame()
		game.Player1 = &entity.Player{Username: "alice"}

		// When: the snapshot is applied
		reconciler.ApplyAuthoritative(game)

		// Then: the status stays waiting
		assert.True(t, reconciler.Snapshot().IsWaiting())
	})

	t.Run("Late snapshots after a pending-move expiry are still applied", func(t *testing.T) {
		// Given: a pending move whose timer already expired
		reconciler := newTestReconciler(t, 10*time.Millisecond)
		reconciler.ApplyAuthoritative(inProgressGame("g1"))
		_, err := reconciler.ApplyOptimisticMove(3)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return reconciler.PendingMove() == nil
		}, time.Second, 5*time.Millisecond)

		// When: the server echo arrives after the timeout fired
		late := inProgressGame("g1")
		late.Board[5][3] = entity.CellPlayerOne
		late.CurrentTurn = 2
		reconciler.ApplyAuthoritative(late)

		// Then: the snapshot is applied as usual
		assert.Equal(t, late.Board, reconciler.Snapshot().Board)
	})
}

func TestReconciler_PendingExpiry(t *testing.T) {
	t.Run("Expiry clears the marker but keeps the optimistic board", func(t *testing.T) {
		// Given: an optimistic move with a short confirmation window
		reconciler := newTestReconciler(t, 10*time.Millisecond)
		reconciler.ApplyAuthoritative(inProgressGame("g1"))
		_, err := reconciler.ApplyOptimisticMove(3)
		require.NoError(t, err)

		// When: the window elapses with no echo
		require.Eventually(t, func() bool {
			return reconciler.PendingMove() == nil
		}, time.Second, 5*time.Millisecond)

		// Then: the board keeps the optimistic token; expiry is not a rollback
		assert.Equal(t, entity.CellPlayerOne, reconciler.Snapshot().Board[5][3])
	})
}

func TestReconciler_RollbackPending(t *testing.T) {
	t.Run("Restores the pre-move snapshot", func(t *testing.T) {
		// Given: an optimistic move on the board
		reconciler := newTestReconciler(t, time.Minute)
		reconciler.ApplyAuthoritative(inProgressGame("g1"))
		before := reconciler.Snapshot()
		_, err := reconciler.ApplyOptimisticMove(3)
		require.NoError(t, err)

		// When: the send fails and the move is rolled back
		reconciler.RollbackPending()

		// Then: board and turn are back to the pre-move state
		game := reconciler.Snapshot()
		assert.Equal(t, before.Board, game.Board)
		assert.Equal(t, before.CurrentTurn, game.CurrentTurn)
		assert.Nil(t, reconciler.PendingMove())
	})

	t.Run("Is a no-op without a pending move", func(t *testing.T) {
		// Given: a settled game state
		reconciler := newTestReconciler(t, time.Minute)
		game := inProgressGame("g1")
		game.Board[5][1] = entity.CellPlayerTwo
		reconciler.ApplyAuthoritative(game)

		// When: a rollback is requested anyway
		reconciler.RollbackPending()

		// Then: the state is untouched
		assert.Equal(t, game.Board, reconciler.Snapshot().Board)
	})
}

func TestReconciler_CompleteGame(t *testing.T) {
	t.Run("Marks the game completed with the reported winner", func(t *testing.T) {
		// Given: an in-progress game
		reconciler := newTestReconciler(t, time.Minute)
		reconciler.ApplyAuthoritative(inProgressGame("g1"))

		// When: the server reports alice as winner
		reconciler.CompleteGame(entity.GameResult{Winner: "alice"})

		// Then: the game is completed and nobody owns a turn anymore
		game := reconciler.Snapshot()
		assert.Equal(t, entity.StatusCompleted, game.Status)
		assert.Equal(t, "alice", game.Winner)
		assert.False(t, reconciler.IsMyTurn())
	})

	t.Run("Marks a draw", func(t *testing.T) {
		// Given: an in-progress game
		reconciler := newTestReconciler(t, time.Minute)
		reconciler.ApplyAuthoritative(inProgressGame("g1"))

		// When: the server reports a draw
		reconciler.CompleteGame(entity.GameResult{IsDraw: true})

		// Then: the game status is draw
		game := reconciler.Snapshot()
		assert.Equal(t, entity.StatusDraw, game.Status)
		assert.True(t, game.IsDraw)
	})
}

func TestReconciler_CancelGame(t *testing.T) {
	t.Run("Records the finish reason", func(t *testing.T) {
		// Given: an in-progress game
		reconciler := newTestReconciler(t, time.Minute)
		reconciler.ApplyAuthoritative(inProgressGame("g1"))

		// When: the opponent leaves
		reconciler.CancelGame(entity.ReasonOpponentLeft)

		// Then: the game is finished with the reason attached
		game := reconciler.Snapshot()
		assert.True(t, game.IsFinished())
		assert.Equal(t, entity.ReasonOpponentLeft, game.FinishReason)
	})
}
