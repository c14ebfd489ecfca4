package rest

import (
	"context"
	"strings"

	"github.com/c360/chatkit/errors"
)

// TokenProvider supplies the Authorization header value for REST requests.
// The credential stays opaque to the client; implementations may mint or
// refresh it per call.
type TokenProvider interface {
	AuthHeader(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider for a fixed bot credential.
type StaticToken struct {
	header string
}

// NewBotToken builds a TokenProvider formatting the credential as
// "Bot <token>". A token already carrying the prefix is used as-is.
func NewBotToken(token string) (*StaticToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingToken, "StaticToken", "NewBotToken", "empty token")
	}
	if !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}
	return &StaticToken{header: token}, nil
}

// AuthHeader implements TokenProvider.
func (t *StaticToken) AuthHeader(_ context.Context) (string, error) {
	return t.header, nil
}
