package devserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
)

func TestAuthenticator(t *testing.T) {
	t.Run("Accepts a hash issued for the player", func(t *testing.T) {
		auth := NewAuthenticator("s3cret")

		hash, err := auth.Issue("alice")
		require.NoError(t, err)

		require.NoError(t, auth.Verify("alice", hash))
	})

	t.Run("Rejects a hash of another player", func(t *testing.T) {
		auth := NewAuthenticator("s3cret")

		hash, err := auth.Issue("bob")
		require.NoError(t, err)

		require.ErrorIs(t, auth.Verify("alice", hash), apperror.ErrUnauthorized)
	})

	t.Run("Rejects a hash signed with another secret", func(t *testing.T) {
		hash, err := NewAuthenticator("other").Issue("alice")
		require.NoError(t, err)

		require.ErrorIs(t, NewAuthenticator("s3cret").Verify("alice", hash), apperror.ErrUnauthorized)
	})

	t.Run("Accepts any hash without a secret", func(t *testing.T) {
		auth := NewAuthenticator("")

		require.NoError(t, auth.Verify("alice", "anything"))

		hash, err := auth.Issue("alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", hash)
	})

	t.Run("Requires both query values", func(t *testing.T) {
		auth := NewAuthenticator("")

		require.ErrorIs(t, auth.Verify("", "hash"), apperror.ErrUnauthorized)
		require.ErrorIs(t, auth.Verify("alice", ""), apperror.ErrUnauthorized)
	})
}
