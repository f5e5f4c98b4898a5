package api

import (
	"context"
	"fmt"

	"qaproof/internal/qa"
)

// Notifications lists the current user's notifications, newest first.
func (c *Client) Notifications(ctx context.Context, page, perPage int) ([]qa.Notification, *Pagination, error) {
	var res struct {
		Notifications []qa.Notification `json:"notifications"`
		Pagination    Pagination        `json:"pagination"`
	}
	endpoint := fmt.Sprintf("/notifications?page=%d&per_page=%d", page, perPage)
	if err := c.decode(ctx, "GET", endpoint, nil, &res); err != nil {
		return nil, nil, err
	}
	return res.Notifications, &res.Pagination, nil
}

// MarkNotificationRead flags one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.decode(ctx, "PUT", "/notifications/"+id+"/read", nil, nil)
}

// UnreadCount returns the number of unread notifications.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var res struct {
		Count int `json:"count"`
	}
	if err := c.decode(ctx, "GET", "/notifications/unread-count", nil, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}
