package terminal

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mitchellh/go-wordwrap"

	"github.com/rocketscienceinc/seabattle/internal/entity"
)

const (
	glyphEmpty = "."
	glyphShip  = "#"
	glyphHit   = "X"
	glyphMiss  = "o"

	chatWidth = 48
	chatLines = 8
)

type styles struct {
	title  lipgloss.Style
	ship   lipgloss.Style
	hit    lipgloss.Style
	miss   lipgloss.Style
	empty  lipgloss.Style
	board  lipgloss.Style
	status lipgloss.Style
	errors lipgloss.Style
}

func newStyles(out io.Writer) styles {
	renderer := lipgloss.NewRenderer(out)

	return styles{
		title:  renderer.NewStyle().Bold(true),
		ship:   renderer.NewStyle().Foreground(lipgloss.Color("12")),
		hit:    renderer.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		miss:   renderer.NewStyle().Foreground(lipgloss.Color("8")),
		empty:  renderer.NewStyle().Foreground(lipgloss.Color("7")),
		board:  renderer.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		status: renderer.NewStyle().Italic(true),
		errors: renderer.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// render draws both boards side by side, a status line and the tail of the chat log.
func (that styles) render(username string, state entity.GameState) string {
	own := that.grid("You", func(cell entity.Cell) string {
		switch state.OwnBoard.Outcome(cell) {
		case entity.OutcomeHit:
			return that.hit.Render(glyphHit)
		case entity.OutcomeMiss:
			return that.miss.Render(glyphMiss)
		case entity.OutcomeNone:
		}

		if state.Placement.Contains(cell) {
			return that.ship.Render(glyphShip)
		}

		return that.empty.Render(glyphEmpty)
	})

	enemyTitle := "Enemy"
	if state.Enemy != "" {
		enemyTitle = state.Enemy
	}

	enemy := that.grid(enemyTitle, func(cell entity.Cell) string {
		switch state.EnemyBoard.Outcome(cell) {
		case entity.OutcomeHit:
			return that.hit.Render(glyphHit)
		case entity.OutcomeMiss:
			return that.miss.Render(glyphMiss)
		case entity.OutcomeNone:
		}

		return that.empty.Render(glyphEmpty)
	})

	boards := lipgloss.JoinHorizontal(lipgloss.Top, that.board.Render(own), " ", that.board.Render(enemy))

	return lipgloss.JoinVertical(lipgloss.Left,
		boards,
		that.status.Render(statusLine(username, state)),
		that.chat(state.Messages),
	)
}

func (that styles) grid(title string, glyph func(entity.Cell) string) string {
	var builder strings.Builder

	builder.WriteString(that.title.Render(title))
	builder.WriteString("\n   ")
	builder.WriteString(strings.Join(entity.Columns[:], " "))

	for row := 1; row <= entity.BoardSize; row++ {
		builder.WriteString("\n")
		fmt.Fprintf(&builder, "%2d ", row)

		marks := make([]string, 0, entity.BoardSize)
		for _, column := range entity.Columns {
			marks = append(marks, glyph(entity.Cell(column+strconv.Itoa(row))))
		}
		builder.WriteString(strings.Join(marks, " "))
	}

	return builder.String()
}

func (that styles) chat(messages []entity.ChatMessage) string {
	if len(messages) == 0 {
		return ""
	}

	var lines []string
	for _, message := range messages {
		text := message.Text
		if message.Sender != "" {
			text = message.Sender + ": " + text
		}

		lines = append(lines, strings.Split(wordwrap.WrapString(text, chatWidth), "\n")...)
	}

	if len(lines) > chatLines {
		lines = lines[len(lines)-chatLines:]
	}

	return strings.Join(lines, "\n")
}

func statusLine(username string, state entity.GameState) string {
	room := "no room"
	if !state.Room.IsEmpty() {
		guest := state.Room.Guest
		if guest == "" {
			guest = "waiting for a guest"
		}
		room = fmt.Sprintf("room %s vs %s", state.Room.Host, guest)
	}

	switch {
	case state.IsFinished() && state.Loser == username:
		return fmt.Sprintf("%s | you lost", room)
	case state.IsFinished() && state.Loser != "":
		return fmt.Sprintf("%s | you won, %s lost", room, state.Loser)
	case state.IsFinished():
		return fmt.Sprintf("%s | game over", room)
	case state.Phase == entity.PhaseActive && state.CanShoot:
		return fmt.Sprintf("%s | your turn", room)
	case state.Phase == entity.PhaseActive:
		return fmt.Sprintf("%s | waiting for %s", room, state.Enemy)
	case state.Placement.Ready():
		return fmt.Sprintf("%s | fleet ready, waiting for the opponent", room)
	default:
		return fmt.Sprintf("%s | %s | %d ship cells left", room, state.Phase, state.Placement.Remaining())
	}
}
