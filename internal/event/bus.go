package event

import (
	"log/slog"
	"sync"
)

// Type names one of the closed set of events the controller emits. Sibling
// widgets subscribe by type instead of installing handlers on the connection.
type Type string

const (
	TypeGameStarted        Type = "game:started"
	TypeGameUpdated        Type = "game:updated"
	TypeGameFinished       Type = "game:finished"
	TypeLeaderboardUpdated Type = "leaderboard:updated"
	TypeConnectionChanged  Type = "connection:changed"
	TypeNotice             Type = "notice"
)

type Event struct {
	Type    Type
	Payload any
}

type GameStartedPayload struct {
	GameID string
}

type GameUpdatedPayload struct {
	GameID string
}

type GameFinishedPayload struct {
	Winner string
	IsDraw bool
	BotWon bool
}

type LeaderboardUpdatedPayload struct {
	Winner string
	IsDraw bool
}

type ConnectionChangedPayload struct {
	State string
	Fatal bool
	Error error
}

type NoticePayload struct {
	Message string
}

// subscriberBuffer bounds how far a slow subscriber may lag before events
// are dropped for it; publishing never blocks the controller.
const subscriberBuffer = 16

type subscriber struct {
	id    int
	types map[Type]struct{}
	ch    chan Event
}

type Bus struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger:      logger,
		subscribers: make(map[int]*subscriber),
	}
}

// Subscribe - registers interest in the given event types (all types when
// none are named) and returns the delivery channel together with an
// unsubscribe function. Unsubscribing closes the channel.
func (that *Bus) Subscribe(types ...Type) (<-chan Event, func()) {
	sub := &subscriber{
		ch: make(chan Event, subscriberBuffer),
	}

	if len(types) > 0 {
		sub.types = make(map[Type]struct{}, len(types))
		for _, eventType := range types {
			sub.types[eventType] = struct{}{}
		}
	}

	that.mu.Lock()
	that.nextID++
	sub.id = that.nextID
	that.subscribers[sub.id] = sub
	that.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			that.mu.Lock()
			delete(that.subscribers, sub.id)
			that.mu.Unlock()
			close(sub.ch)
		})
	}

	return sub.ch, unsubscribe
}

// Publish - delivers the event to every matching subscriber without
// blocking; events for a full subscriber buffer are dropped.
func (that *Bus) Publish(evt Event) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, sub := range that.subscribers {
		if sub.types != nil {
			if _, ok := sub.types[evt.Type]; !ok {
				continue
			}
		}

		select {
		case sub.ch <- evt:
		default:
			that.logger.Debug("dropping event for slow subscriber", "type", evt.Type, "subscriber", sub.id)
		}
	}
}
