package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/seabattle/internal/entity"
)

type gameClient interface {
	FindRoom(ctx context.Context) error
	ToggleCell(ctx context.Context, cell entity.Cell) (bool, error)
	Ready(ctx context.Context) error
	Fire(ctx context.Context, cell entity.Cell) error
	SendChat(ctx context.Context, text string) error
	ExitRoom(ctx context.Context) error
	State(ctx context.Context) (entity.GameState, error)
}

// View is a line-oriented board view: it reads commands from in and redraws the boards on out
// after every change.
type View struct {
	logger   *slog.Logger
	username string
	in       io.Reader
	styles   styles

	mu  sync.Mutex
	out io.Writer
}

func New(logger *slog.Logger, username string, in io.Reader, out io.Writer) *View {
	return &View{
		logger:   logger.With("component", "view"),
		username: username,
		in:       in,
		out:      out,
		styles:   newStyles(out),
	}
}

// Cells declares the cell identifiers the view can display.
func (that *View) Cells() []entity.Cell {
	return entity.AllCells()
}

// StateChanged redraws the boards.
func (that *View) StateChanged(state entity.GameState) {
	that.print(that.styles.render(that.username, state))
}

// Failed reports a terminal session failure.
func (that *View) Failed(err error) {
	that.print(that.styles.errors.Render("connection lost: " + err.Error() + " (type find to try again)"))
}

// Run reads commands until quit, end of input or ctx is done.
func (that *View) Run(ctx context.Context, client gameClient) error {
	log := that.logger.With("method", "Run")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(that.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	that.print(usage)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			return nil
		case line := <-lines:
			if line == "" {
				continue
			}

			command, err := ParseCommand(line)
			if err != nil {
				that.print(that.styles.errors.Render(err.Error()))
				continue
			}

			if command.Name == CommandQuit {
				return nil
			}

			if err = that.execute(ctx, client, command); err != nil {
				log.Debug("command failed", "command", command.Name, "error", err)
				that.print(that.styles.errors.Render(err.Error()))
			}
		}
	}
}

func (that *View) execute(ctx context.Context, client gameClient, command Command) error {
	switch command.Name {
	case CommandFind:
		return client.FindRoom(ctx)
	case CommandPlace:
		_, err := client.ToggleCell(ctx, command.Cell)
		return err
	case CommandReady:
		return client.Ready(ctx)
	case CommandFire:
		return client.Fire(ctx, command.Cell)
	case CommandSay:
		return client.SendChat(ctx, command.Text)
	case CommandExit:
		return client.ExitRoom(ctx)
	case CommandBoard:
		state, err := client.State(ctx)
		if err != nil {
			return err
		}

		that.StateChanged(state)

		return nil
	case CommandHelp:
		that.print(usage)
		return nil
	default:
		return errors.New("unsupported command " + command.Name)
	}
}

func (that *View) print(text string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, err := fmt.Fprintln(that.out, text); err != nil {
		that.logger.Error("failed to write to the terminal", "error", err)
	}
}
