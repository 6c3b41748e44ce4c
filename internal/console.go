package application

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/connectfour-client/internal/entity"
	"github.com/rocketscienceinc/connectfour-client/internal/event"
	"github.com/rocketscienceinc/connectfour-client/internal/usecase"
)

// Console is the terminal front end: it prompts for the player's identity,
// renders the board on game events, and forwards commands to the session.
// All decisions stay in the usecase layer.
type Console struct {
	logger  *slog.Logger
	session *usecase.GameSession
	bus     *event.Bus
}

func NewConsole(logger *slog.Logger, session *usecase.GameSession, bus *event.Bus) *Console {
	return &Console{
		logger:  logger,
		session: session,
		bus:     bus,
	}
}

func (that *Console) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)

	if err := that.promptIdentity(ctx, scanner); err != nil {
		return err
	}

	if err := that.session.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	events, unsubscribe := that.bus.Subscribe()
	defer unsubscribe()

	go that.watch(ctx, events)

	fmt.Println("waiting for the game to start; type 'help' for commands")

	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}

			if done := that.execute(ctx, line); done {
				return nil
			}
		}
	}
}

// promptIdentity - asks for username and opponent mode, re-asking until each
// is valid. A restored session skips whatever it already has.
func (that *Console) promptIdentity(ctx context.Context, scanner *bufio.Scanner) error {
	for that.session.Username() == "" {
		fmt.Print("username (3-20 letters, digits, _ or -): ")
		if !scanner.Scan() {
			return ctx.Err()
		}

		if err := that.session.Login(ctx, strings.TrimSpace(scanner.Text())); err != nil {
			fmt.Println(err)
		}
	}

	for that.session.Mode() == "" {
		fmt.Printf("opponent [%s/%s]: ", entity.ModeFriend, entity.ModeBot)
		if !scanner.Scan() {
			return ctx.Err()
		}

		if err := that.session.SelectMode(ctx, strings.TrimSpace(scanner.Text())); err != nil {
			fmt.Println(err)
		}
	}

	return nil
}

func (that *Console) execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "move":
		that.move(ctx, fields)
	case "board":
		that.render()
	case "cancel":
		that.session.CancelWaiting(ctx)
	case "rematch":
		if err := that.session.PlayAgain(ctx); err != nil {
			fmt.Println(err)
		}
	case "exit":
		that.session.Exit(ctx)
		fmt.Println("bye")

		return true
	case "help":
		fmt.Println("commands: move <column 0-6>, board, cancel, rematch, exit")
	default:
		fmt.Printf("unknown command %q, type 'help'\n", fields[0])
	}

	return false
}

func (that *Console) move(ctx context.Context, fields []string) {
	if len(fields) != 2 {
		fmt.Println("usage: move <column 0-6>")
		return
	}

	column, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Println("usage: move <column 0-6>")
		return
	}

	if _, err = that.session.Move(ctx, column); err != nil {
		fmt.Println(err)
	}
}

// watch - redraws on game events and prints everything else as a line.
func (that *Console) watch(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}

			that.display(evt)
		}
	}
}

func (that *Console) display(evt event.Event) {
	switch payload := evt.Payload.(type) {
	case event.GameStartedPayload, event.GameUpdatedPayload:
		that.render()
	case event.GameFinishedPayload:
		that.render()

		switch {
		case payload.IsDraw:
			fmt.Println("game over: draw")
		case payload.Winner == that.session.Username():
			fmt.Println("game over: you won!")
		default:
			fmt.Printf("game over: %s won\n", payload.Winner)
		}
	case event.NoticePayload:
		fmt.Println(payload.Message)
	case event.ConnectionChangedPayload:
		if payload.Fatal {
			fmt.Printf("connection lost for good: %v; type 'exit' and start over\n", payload.Error)
		}
	}
}

func (that *Console) render() {
	game := that.session.Snapshot()
	if game == nil {
		fmt.Println("no game yet")
		return
	}

	fmt.Print(renderBoard(game))

	switch {
	case game.IsWaiting():
		fmt.Println("waiting for an opponent...")
	case game.IsFinished():
	case that.session.IsMyTurn():
		fmt.Println("your turn")
	default:
		fmt.Println("opponent's turn")
	}
}

var cellMarks = [...]string{".", "X", "O"}

func renderBoard(game *entity.Game) string {
	var sb strings.Builder

	sb.WriteString(" 0 1 2 3 4 5 6\n")

	for row := 0; row < entity.BoardRows; row++ {
		for col := 0; col < entity.BoardCols; col++ {
			sb.WriteString(" ")
			sb.WriteString(cellMarks[game.Board[row][col]])
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
