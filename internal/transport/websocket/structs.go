package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/connectfour-client/internal/entity"
)

// Envelope is the frame shape shared by both directions.
type Envelope struct {
	Type    string          `json:"type"`
	GameID  string          `json:"gameId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// The server is not consistent about multi-word field casing across its
// event variants, so every wire struct declares both spellings and merges
// them in a single normalize step. Single-word fields need no alias:
// encoding/json already matches names case-insensitively, which covers the
// capitalized "Winner" some messages carry.

type wirePlayer struct {
	Username string `json:"username"`
	ID       string `json:"id"`

	IsBot    *bool `json:"isBot"`
	IsBotAlt *bool `json:"is_bot"`
}

func (that *wirePlayer) normalize() *entity.Player {
	if that == nil {
		return nil
	}

	return &entity.Player{
		Username: that.Username,
		ID:       that.ID,
		IsBot:    firstBool(that.IsBot, that.IsBotAlt),
	}
}

type wireMove struct {
	Row    int `json:"row"`
	Column int `json:"column"`
	Player int `json:"player"`
}

func (that *wireMove) normalize() *entity.Move {
	if that == nil {
		return nil
	}

	return &entity.Move{
		Row:    that.Row,
		Column: that.Column,
		Player: that.Player,
	}
}

// gamePayload is the snapshot shape carried by gameStart and gameState.
type gamePayload struct {
	ID string `json:"id"`

	Board *entity.Board `json:"board"`

	CurrentTurn    *int `json:"currentTurn"`
	CurrentTurnAlt *int `json:"current_turn"`

	Status string `json:"status"`

	Player1    *wirePlayer `json:"player1"`
	Player1Alt *wirePlayer `json:"player_1"`

	Player2    *wirePlayer `json:"player2"`
	Player2Alt *wirePlayer `json:"player_2"`

	Winner string `json:"winner"`

	IsDraw    *bool `json:"isDraw"`
	IsDrawAlt *bool `json:"is_draw"`

	LastMove    *wireMove `json:"lastMove"`
	LastMoveAlt *wireMove `json:"last_move"`
}

// normalize - builds the canonical game from whatever spelling arrived.
// A missing board stays the empty 6x7 grid.
func (that *gamePayload) normalize(envelopeGameID string) *entity.Game {
	game := entity.NewGame()

	game.ID = that.ID
	if game.ID == "" {
		game.ID = envelopeGameID
	}

	if that.Board != nil {
		game.Board = *that.Board
	}

	if turn := firstInt(that.CurrentTurn, that.CurrentTurnAlt); turn != 0 {
		game.CurrentTurn = turn
	}

	if that.Status != "" {
		game.Status = that.Status
	}

	game.Player1 = firstPlayer(that.Player1, that.Player1Alt)
	game.Player2 = firstPlayer(that.Player2, that.Player2Alt)
	game.Winner = that.Winner
	game.IsDraw = firstBool(that.IsDraw, that.IsDrawAlt)
	game.LastMove = firstMove(that.LastMove, that.LastMoveAlt)

	return game
}

type gameFinishedPayload struct {
	Winner string `json:"winner"`

	IsDraw    *bool `json:"isDraw"`
	IsDrawAlt *bool `json:"is_draw"`

	BotWon    *bool `json:"botWon"`
	BotWonAlt *bool `json:"bot_won"`
}

func (that *gameFinishedPayload) normalize() entity.GameResult {
	return entity.GameResult{
		Winner: that.Winner,
		IsDraw: firstBool(that.IsDraw, that.IsDrawAlt),
		BotWon: firstBool(that.BotWon, that.BotWonAlt),
	}
}

type leaderboardPayload struct {
	Winner string `json:"winner"`

	IsDraw    *bool `json:"isDraw"`
	IsDrawAlt *bool `json:"is_draw"`
}

type noticePayload struct {
	Message string `json:"message"`
}

func firstBool(values ...*bool) bool {
	for _, value := range values {
		if value != nil {
			return *value
		}
	}

	return false
}

func firstInt(values ...*int) int {
	for _, value := range values {
		if value != nil {
			return *value
		}
	}

	return 0
}

func firstPlayer(values ...*wirePlayer) *entity.Player {
	for _, value := range values {
		if value != nil {
			return value.normalize()
		}
	}

	return nil
}

func firstMove(values ...*wireMove) *entity.Move {
	for _, value := range values {
		if value != nil {
			return value.normalize()
		}
	}

	return nil
}
