package reconnect

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
	"github.com/rocketscienceinc/seabattle/internal/config"
)

// Policy hands out delays for a bounded number of reconnect attempts, growing exponentially
// with jitter. It is not safe for concurrent use.
type Policy struct {
	maxAttempts int
	attempts    int
	backOff     backoff.BackOff
}

func New(conf config.Reconnect) *Policy {
	maxAttempts := conf.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = conf.InitialInterval
	expo.MaxInterval = conf.MaxInterval
	expo.Multiplier = conf.Multiplier
	expo.RandomizationFactor = conf.RandomizationFactor
	expo.MaxElapsedTime = 0
	expo.Reset()

	return &Policy{
		maxAttempts: maxAttempts,
		backOff:     backoff.WithMaxRetries(expo, uint64(maxAttempts)),
	}
}

// Next returns the delay before the next attempt, or ErrReconnectExhausted once every attempt
// has been handed out.
func (that *Policy) Next() (time.Duration, error) {
	delay := that.backOff.NextBackOff()
	if delay == backoff.Stop {
		return 0, fmt.Errorf("%w: gave up after %d attempts", apperror.ErrReconnectExhausted, that.attempts)
	}

	that.attempts++

	return delay, nil
}

// Reset starts a fresh series of attempts.
func (that *Policy) Reset() {
	that.attempts = 0
	that.backOff.Reset()
}

func (that *Policy) Attempts() int {
	return that.attempts
}

func (that *Policy) MaxAttempts() int {
	return that.maxAttempts
}
