package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/connectfour-client/internal/entity"
	"github.com/rocketscienceinc/connectfour-client/internal/event"
)

type gameSession interface {
	ApplyAuthoritative(ctx context.Context, game *entity.Game) error
	CompleteGame(ctx context.Context, result entity.GameResult) error
	CancelGame(ctx context.Context, reason string) error
}

type eventPublisher interface {
	Publish(evt event.Event)
}

// Router dispatches inbound frames to the game session. It is attached to
// the connection manager once at construction, so reconnects never create a
// second delivery path for the same frame.
type Router struct {
	logger   *slog.Logger
	session  gameSession
	bus      eventPublisher
	handlers map[string]func(ctx context.Context, env *Envelope) error
}

func NewRouter(logger *slog.Logger, session gameSession, bus eventPublisher) *Router {
	router := &Router{
		logger:   logger,
		session:  session,
		bus:      bus,
		handlers: make(map[string]func(context.Context, *Envelope) error),
	}

	router.handlers[eventGameStart] = router.handleGameStart
	router.handlers[eventGameState] = router.handleGameState
	router.handlers[eventGameFinished] = router.handleGameFinished
	router.handlers[eventRematchTimeout] = router.handleRematchTimeout
	router.handlers[eventOpponentExited] = router.handleOpponentExited
	router.handlers[eventLeaderboardUpdate] = router.handleLeaderboardUpdate
	router.handlers[eventError] = router.handleError

	return router
}

// Handle - processes one inbound frame. Malformed and unknown frames are
// logged and dropped; nothing carried by a frame may take the session down.
func (that *Router) Handle(ctx context.Context, raw []byte) {
	log := that.logger.With("method", "Handle")

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warn("dropping malformed frame", "error", err)
		return
	}

	handler, ok := that.handlers[env.Type]
	if !ok {
		log.Warn("dropping frame with unknown type", "type", env.Type)
		return
	}

	if err := handler(ctx, &env); err != nil {
		log.Error("failed to handle message", "type", env.Type, "error", err)
	}
}

func (that *Router) handleGameStart(ctx context.Context, env *Envelope) error {
	game, err := decodeGame(env)
	if err != nil {
		return err
	}

	if err = that.session.ApplyAuthoritative(ctx, game); err != nil {
		return fmt.Errorf("failed to apply game start: %w", err)
	}

	that.bus.Publish(event.Event{
		Type:    event.TypeGameStarted,
		Payload: event.GameStartedPayload{GameID: game.ID},
	})

	return nil
}

func (that *Router) handleGameState(ctx context.Context, env *Envelope) error {
	game, err := decodeGame(env)
	if err != nil {
		return err
	}

	if err = that.session.ApplyAuthoritative(ctx, game); err != nil {
		return fmt.Errorf("failed to apply game state: %w", err)
	}

	return nil
}

func (that *Router) handleGameFinished(ctx context.Context, env *Envelope) error {
	var payload gameFinishedPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal finish payload: %w", err)
	}

	result := payload.normalize()

	if err := that.session.CompleteGame(ctx, result); err != nil {
		return fmt.Errorf("failed to complete game: %w", err)
	}

	that.bus.Publish(event.Event{
		Type:    event.TypeGameFinished,
		Payload: event.GameFinishedPayload{Winner: result.Winner, IsDraw: result.IsDraw, BotWon: result.BotWon},
	})

	that.bus.Publish(event.Event{
		Type:    event.TypeLeaderboardUpdated,
		Payload: event.LeaderboardUpdatedPayload{Winner: result.Winner, IsDraw: result.IsDraw},
	})

	return nil
}

func (that *Router) handleRematchTimeout(ctx context.Context, env *Envelope) error {
	if err := that.session.CancelGame(ctx, entity.ReasonRematchTimeout); err != nil {
		return fmt.Errorf("failed to cancel game: %w", err)
	}

	message := decodeNotice(env.Payload, "rematch window expired")
	that.bus.Publish(event.Event{Type: event.TypeNotice, Payload: event.NoticePayload{Message: message}})

	return nil
}

func (that *Router) handleOpponentExited(ctx context.Context, env *Envelope) error {
	if err := that.session.CancelGame(ctx, entity.ReasonOpponentLeft); err != nil {
		return fmt.Errorf("failed to cancel game: %w", err)
	}

	message := decodeNotice(env.Payload, "opponent left the game")
	that.bus.Publish(event.Event{Type: event.TypeNotice, Payload: event.NoticePayload{Message: message}})

	return nil
}

func (that *Router) handleLeaderboardUpdate(_ context.Context, env *Envelope) error {
	var payload leaderboardPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal leaderboard payload: %w", err)
	}

	that.bus.Publish(event.Event{
		Type:    event.TypeLeaderboardUpdated,
		Payload: event.LeaderboardUpdatedPayload{Winner: payload.Winner, IsDraw: firstBool(payload.IsDraw, payload.IsDrawAlt)},
	})

	return nil
}

func (that *Router) handleError(_ context.Context, env *Envelope) error {
	message := decodeNotice(env.Payload, "server reported an error")
	that.bus.Publish(event.Event{Type: event.TypeNotice, Payload: event.NoticePayload{Message: message}})

	return nil
}

func decodeGame(env *Envelope) (*entity.Game, error) {
	var payload gamePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game snapshot: %w", err)
	}

	return payload.normalize(env.GameID), nil
}

// decodeNotice - pulls the human-readable message out of a payload, falling
// back to a fixed text when the payload carries none.
func decodeNotice(raw json.RawMessage, fallback string) string {
	var payload noticePayload
	if len(raw) == 0 || json.Unmarshal(raw, &payload) != nil || payload.Message == "" {
		return fallback
	}

	return payload.Message
}
