package terminal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/seabattle/internal/entity"
)

const (
	CommandFind  = "find"
	CommandPlace = "place"
	CommandReady = "ready"
	CommandFire  = "fire"
	CommandSay   = "say"
	CommandExit  = "exit"
	CommandBoard = "board"
	CommandQuit  = "quit"
	CommandHelp  = "help"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingArg     = errors.New("missing argument")
)

const usage = `commands:
  find          join or create a room
  place <cell>  select or deselect a ship cell, e.g. place C7
  ready         confirm the 20 ship cells
  fire <cell>   shoot at an enemy cell
  say <text>    send a chat message
  exit          leave the room
  board         redraw the boards
  quit          close the client`

type Command struct {
	Name string
	Cell entity.Cell
	Text string
}

// ParseCommand reads one input line.
func ParseCommand(line string) (Command, error) {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	name = strings.ToLower(name)
	rest = strings.TrimSpace(rest)

	switch name {
	case CommandFind, CommandReady, CommandExit, CommandBoard, CommandQuit, CommandHelp:
		return Command{Name: name}, nil
	case CommandPlace, CommandFire:
		if rest == "" {
			return Command{}, fmt.Errorf("%w: %s needs a cell", ErrMissingArg, name)
		}

		cell, err := entity.ParseCell(rest)
		if err != nil {
			return Command{}, err
		}

		return Command{Name: name, Cell: cell}, nil
	case CommandSay:
		if rest == "" {
			return Command{}, fmt.Errorf("%w: say needs a message", ErrMissingArg)
		}

		return Command{Name: name, Text: rest}, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}
