package websocket

import "encoding/json"

// Client to server.
const (
	actionJoin          = "join"
	actionMove          = "move"
	actionCancelWaiting = "cancelWaiting"
	actionPlayAgain     = "playAgain"
	actionExitGame      = "exitGame"
)

// Server to client.
const (
	eventGameStart         = "gameStart"
	eventGameState         = "gameState"
	eventGameFinished      = "gameFinished"
	eventRematchTimeout    = "rematchTimeout"
	eventOpponentExited    = "opponentExited"
	eventLeaderboardUpdate = "leaderboardUpdate"
	eventError             = "error"
)

type joinPayload struct {
	Username string `json:"username"`
	GameMode string `json:"gameMode"`
}

type movePayload struct {
	Column int `json:"column"`
}

func newJoinEnvelope(username, gameMode string) Envelope {
	return Envelope{
		Type:    actionJoin,
		Payload: mustMarshal(joinPayload{Username: username, GameMode: gameMode}),
	}
}

func newMoveEnvelope(gameID string, column int) Envelope {
	return Envelope{
		Type:    actionMove,
		GameID:  gameID,
		Payload: mustMarshal(movePayload{Column: column}),
	}
}

func newCancelWaitingEnvelope(gameID string) Envelope {
	return Envelope{
		Type:   actionCancelWaiting,
		GameID: gameID,
	}
}

func newPlayAgainEnvelope(gameID string) Envelope {
	return Envelope{
		Type:   actionPlayAgain,
		GameID: gameID,
	}
}

func newExitGameEnvelope(gameID string) Envelope {
	return Envelope{
		Type:   actionExitGame,
		GameID: gameID,
	}
}

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
