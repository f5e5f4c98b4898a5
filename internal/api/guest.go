package api

import (
	"context"

	"qaproof/internal/session"
)

// SaveGuestSession uploads a guest session snapshot, used when a guest
// signs up and wants to carry their local progress into the account.
func (c *Client) SaveGuestSession(ctx context.Context, state session.State) error {
	return c.decode(ctx, "POST", "/guest-sessions", state, nil)
}

// GuestSession fetches a previously uploaded guest session snapshot.
func (c *Client) GuestSession(ctx context.Context, sessionID string) (*session.State, error) {
	var st session.State
	if err := c.decode(ctx, "GET", "/guest-sessions/"+sessionID, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
