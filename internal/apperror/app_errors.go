package apperror

import "errors"

var (
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrNoActiveGame     = errors.New("no active game")

	ErrColumnFull       = errors.New("column is full")
	ErrColumnOutOfRange = errors.New("column is out of range")
	ErrMovePending      = errors.New("previous move is still awaiting confirmation")

	ErrInvalidUsername = errors.New("username must be 3-20 letters, digits, underscores or hyphens")
	ErrInvalidMode     = errors.New("unknown opponent mode")

	ErrSessionNotFound = errors.New("session not found")

	ErrConnectionClosed    = errors.New("connection is closed")
	ErrReconnectExhausted  = errors.New("reconnect attempts exhausted")
	ErrUsernameNotSelected = errors.New("username is not selected")
	ErrModeNotSelected     = errors.New("opponent mode is not selected")
)
