package rest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/c360/chatkit/errors"
)

// GatewayBot describes the gateway connection parameters the server
// recommends for the current credential.
type GatewayBot struct {
	URL               string            `json:"url"`
	Shards            int               `json:"shards"`
	SessionStartLimit SessionStartLimit `json:"session_start_limit"`
}

// SessionStartLimit is the identify budget for the current credential.
// MaxConcurrency is the number of identify rate-limit keys: shards whose
// IDs are congruent modulo MaxConcurrency share a key.
type SessionStartLimit struct {
	Total          int           `json:"total"`
	Remaining      int           `json:"remaining"`
	ResetAfter     time.Duration `json:"reset_after"`
	MaxConcurrency int           `json:"max_concurrency"`
}

// UnmarshalJSON converts the wire value of reset_after, a millisecond
// count, into a time.Duration.
func (s *SessionStartLimit) UnmarshalJSON(data []byte) error {
	type alias SessionStartLimit
	aux := &struct {
		ResetAfter int64 `json:"reset_after"`
		*alias
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	s.ResetAfter = time.Duration(aux.ResetAfter) * time.Millisecond
	return nil
}

// FetchGatewayBot returns the gateway URL, recommended shard count and
// session start limit for the client's credential.
func (c *Client) FetchGatewayBot(ctx context.Context) (*GatewayBot, error) {
	route, err := GetGatewayBot.Compile()
	if err != nil {
		return nil, err
	}

	var out GatewayBot
	if err := c.DoJSON(ctx, route, nil, &out); err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Client", "FetchGatewayBot", "response missing gateway URL")
	}
	if out.Shards <= 0 {
		out.Shards = 1
	}
	if out.SessionStartLimit.MaxConcurrency <= 0 {
		out.SessionStartLimit.MaxConcurrency = 1
	}
	return &out, nil
}
