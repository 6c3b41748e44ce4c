package usecase

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/connectfour-client/internal/entity"
)

// Matchmaker watches a friend-mode game stuck in waiting and, once the wait
// runs out, hands the session over to the bot fallback so the player is not
// left staring at an empty seat.
type Matchmaker struct {
	logger   *slog.Logger
	wait     time.Duration
	onExpiry func()

	mu    sync.Mutex
	timer *time.Timer
}

func NewMatchmaker(logger *slog.Logger, wait time.Duration, onExpiry func()) *Matchmaker {
	return &Matchmaker{
		logger:   logger,
		wait:     wait,
		onExpiry: onExpiry,
	}
}

// Evaluate - arms the countdown while the game is waiting for a friend with
// an open seat, and disarms it the moment any of that stops being true. The
// timer is re-armable: a later Evaluate with the conditions back arms it
// again.
func (that *Matchmaker) Evaluate(game *entity.Game, mode string) {
	log := that.logger.With("method", "Evaluate")

	that.mu.Lock()
	defer that.mu.Unlock()

	shouldWait := game != nil && game.IsWaiting() && mode == entity.ModeFriend && game.HasOpenSlot()

	if shouldWait {
		if that.timer == nil {
			log.Debug("arming matchmaking countdown", "wait", that.wait)
			that.timer = time.AfterFunc(that.wait, that.expire)
		}

		return
	}

	if that.timer != nil {
		log.Debug("disarming matchmaking countdown")
		that.timer.Stop()
		that.timer = nil
	}
}

func (that *Matchmaker) expire() {
	that.mu.Lock()

	// A Stop that lost the race against the firing timer shows up here as a
	// nil timer; the expiry is then stale and ignored.
	if that.timer == nil {
		that.mu.Unlock()
		return
	}

	that.timer = nil
	that.mu.Unlock()

	that.logger.Info("no opponent joined in time, falling back to bot")
	that.onExpiry()
}

// Stop - disarms the countdown on teardown.
func (that *Matchmaker) Stop() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.timer != nil {
		that.timer.Stop()
		that.timer = nil
	}
}
