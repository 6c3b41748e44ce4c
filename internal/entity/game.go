package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/connectfour-client/internal/apperror"
)

const (
	StatusWaiting    = "waiting"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusDraw       = "draw"
)

const (
	BoardRows = 6
	BoardCols = 7
)

// Cell holds the owner of a board position: 0 is empty, 1 and 2 are the
// player numbers. A cell only ever changes from empty to owned; it reverts
// solely through a full-state replacement from the server.
type Cell int

const (
	CellEmpty Cell = iota
	CellPlayerOne
	CellPlayerTwo
)

type Board [BoardRows][BoardCols]Cell

// Move records a single placed token.
type Move struct {
	Row    int `json:"row"`
	Column int `json:"column"`
	Player int `json:"player"`
}

// PendingMove is an optimistic local move awaiting server confirmation.
// At most one exists at any time.
type PendingMove struct {
	Row      int
	Column   int
	Player   int
	IssuedAt time.Time
}

// GameResult is the canonical form of a game-finished report.
type GameResult struct {
	Winner string
	IsDraw bool
	BotWon bool
}

// Finish reasons attached when a game ends without a regular result.
const (
	ReasonRematchTimeout = "rematch request timed out"
	ReasonOpponentLeft   = "opponent left the game"
)

type Game struct {
	ID           string  `json:"id,omitempty"`
	Board        Board   `json:"board"`
	CurrentTurn  int     `json:"currentTurn"`
	Status       string  `json:"status"`
	Player1      *Player `json:"player1,omitempty"`
	Player2      *Player `json:"player2,omitempty"`
	Winner       string  `json:"winner,omitempty"`
	IsDraw       bool    `json:"isDraw,omitempty"`
	BotWon       bool    `json:"botWon,omitempty"`
	LastMove     *Move   `json:"lastMove,omitempty"`
	FinishReason string  `json:"finishReason,omitempty"`
}

func NewGame() *Game {
	return &Game{
		CurrentTurn: 1,
		Status:      StatusWaiting,
	}
}

// Drop - places a token for player in the given column, scanning from the
// bottom row upward for the first empty cell, and returns the row it landed
// in. The board is left untouched when the move is rejected.
func (that *Game) Drop(column, player int) (int, error) {
	if column < 0 || column >= BoardCols {
		return -1, fmt.Errorf("%w: column %d", apperror.ErrColumnOutOfRange, column)
	}

	for row := BoardRows - 1; row >= 0; row-- {
		if that.Board[row][column] == CellEmpty {
			that.Board[row][column] = Cell(player)
			return row, nil
		}
	}

	return -1, fmt.Errorf("%w: column %d", apperror.ErrColumnFull, column)
}

func (that *Game) ToggleTurn() {
	if that.CurrentTurn == 1 {
		that.CurrentTurn = 2
	} else {
		that.CurrentTurn = 1
	}
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Game) IsInProgress() bool {
	return that.Status == StatusInProgress
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusCompleted || that.Status == StatusDraw
}

func (that *Game) HasBothPlayers() bool {
	return that.Player1 != nil && that.Player2 != nil
}

func (that *Game) HasOpenSlot() bool {
	return that.Player1 == nil || that.Player2 == nil
}

// PlayerNumber - resolves a username to its seat: 1, 2, or 0 when the
// username is not seated in this game.
func (that *Game) PlayerNumber(username string) int {
	if that.Player1 != nil && that.Player1.Username == username {
		return 1
	}

	if that.Player2 != nil && that.Player2.Username == username {
		return 2
	}

	return 0
}

func (that *Game) PlayerByNumber(number int) *Player {
	switch number {
	case 1:
		return that.Player1
	case 2:
		return that.Player2
	default:
		return nil
	}
}

// IsPlayersTurn - a player owns the current turn when their seat number
// equals CurrentTurn and the game is actually in progress.
func (that *Game) IsPlayersTurn(username string) bool {
	if !that.IsInProgress() {
		return false
	}

	number := that.PlayerNumber(username)

	return number != 0 && number == that.CurrentTurn
}

// Clone - returns a deep copy; Board is an array so the value copy covers it.
func (that *Game) Clone() *Game {
	clone := *that

	if that.Player1 != nil {
		player := *that.Player1
		clone.Player1 = &player
	}

	if that.Player2 != nil {
		player := *that.Player2
		clone.Player2 = &player
	}

	if that.LastMove != nil {
		move := *that.LastMove
		clone.LastMove = &move
	}

	return &clone
}
