package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Command
	}{
		{name: "bare command", line: "find", want: Command{Name: CommandFind}},
		{name: "case and spaces", line: "  READY ", want: Command{Name: CommandReady}},
		{name: "cell is normalized", line: "fire c7", want: Command{Name: CommandFire, Cell: "C7"}},
		{name: "place", line: "place J10", want: Command{Name: CommandPlace, Cell: "J10"}},
		{name: "chat keeps the text", line: "say good luck,  have fun", want: Command{Name: CommandSay, Text: "good luck,  have fun"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.line)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	_, err := ParseCommand("dance")
	require.ErrorIs(t, err, ErrUnknownCommand)

	_, err = ParseCommand("fire")
	require.ErrorIs(t, err, ErrMissingArg)

	_, err = ParseCommand("say   ")
	require.ErrorIs(t, err, ErrMissingArg)

	_, err = ParseCommand("fire K1")
	require.ErrorIs(t, err, apperror.ErrInvalidCell)
}
