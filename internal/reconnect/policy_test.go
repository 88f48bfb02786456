package reconnect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
	"github.com/rocketscienceinc/seabattle/internal/config"
)

func testConfig() config.Reconnect {
	return config.Reconnect{
		MaxAttempts:         5,
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         time.Second,
		Multiplier:          2,
		RandomizationFactor: 0,
	}
}

func TestPolicy_Next(t *testing.T) {
	t.Run("Grows exponentially up to the max interval", func(t *testing.T) {
		// Given: a policy without jitter
		policy := New(testConfig())

		// When: asking for every delay
		var delays []time.Duration
		for i := 0; i < 5; i++ {
			delay, err := policy.Next()
			require.NoError(t, err)
			delays = append(delays, delay)
		}

		// Then: delays double and are capped
		assert.Equal(t, []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
			800 * time.Millisecond,
			time.Second,
		}, delays)
	})

	t.Run("Is exhausted after max attempts", func(t *testing.T) {
		// Given: a policy that allows 5 attempts
		policy := New(testConfig())
		for i := 0; i < 5; i++ {
			_, err := policy.Next()
			require.NoError(t, err)
		}

		// When: asking for a sixth attempt
		_, err := policy.Next()

		// Then: ErrReconnectExhausted is returned, and keeps being returned
		require.ErrorIs(t, err, apperror.ErrReconnectExhausted)
		assert.Equal(t, 5, policy.Attempts())

		_, err = policy.Next()
		assert.ErrorIs(t, err, apperror.ErrReconnectExhausted)
	})

	t.Run("Applies jitter within the randomization factor", func(t *testing.T) {
		conf := testConfig()
		conf.RandomizationFactor = 0.5
		policy := New(conf)

		delay, err := policy.Next()

		require.NoError(t, err)
		assert.GreaterOrEqual(t, delay, 50*time.Millisecond)
		assert.LessOrEqual(t, delay, 150*time.Millisecond)
	})
}

func TestPolicy_Reset(t *testing.T) {
	// Given: an exhausted policy
	policy := New(testConfig())
	for i := 0; i < 5; i++ {
		_, err := policy.Next()
		require.NoError(t, err)
	}

	// When: resetting it
	policy.Reset()

	// Then: attempts start over from the initial interval
	delay, err := policy.Next()
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, delay)
	assert.Equal(t, 1, policy.Attempts())
}

func TestNew_AtLeastOneAttempt(t *testing.T) {
	conf := testConfig()
	conf.MaxAttempts = 0

	policy := New(conf)

	assert.Equal(t, 1, policy.MaxAttempts())
}
