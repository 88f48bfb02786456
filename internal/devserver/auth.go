package devserver

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
)

// Authenticator checks the user_hash of a connecting player: an HS256 token whose subject is
// the username. Without a secret any non-empty hash is accepted.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Issue returns the user_hash for username.
func (that *Authenticator) Issue(username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("%w: username is empty", apperror.ErrUnauthorized)
	}

	if len(that.secret) == 0 {
		return username, nil
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: username})

	signed, err := token.SignedString(that.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

func (that *Authenticator) Verify(username, userHash string) error {
	if username == "" || userHash == "" {
		return apperror.ErrUnauthorized
	}

	if len(that.secret) == 0 {
		return nil
	}

	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(userHash, claims, func(*jwt.Token) (any, error) {
		return that.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrUnauthorized, err)
	}

	if claims.Subject != username {
		return fmt.Errorf("%w: %w", apperror.ErrUnauthorized, errors.New("token belongs to another player"))
	}

	return nil
}
