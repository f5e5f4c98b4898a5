package api

import (
	"context"
	"net/url"

	"qaproof/internal/qa"
)

// LoginResult is the payload of a successful login.
type LoginResult struct {
	AccessToken string  `json:"access_token"`
	User        qa.User `json:"user"`
}

// Login exchanges credentials for a bearer token. The token is installed on
// the client; persisting it is the caller's job.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var res LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := c.decode(ctx, "POST", "/auth/login", body, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.AccessToken)
	return &res, nil
}

// Logout invalidates the server-side session and drops the local token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.decode(ctx, "POST", "/auth/logout", nil, nil)
	c.SetToken("")
	return err
}

// Me returns the profile behind the current token.
func (c *Client) Me(ctx context.Context) (*qa.User, error) {
	var u qa.User
	if err := c.decode(ctx, "GET", "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword rotates the current user's password.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := map[string]string{"old_password": oldPassword, "new_password": newPassword}
	return c.decode(ctx, "PUT", "/auth/password", body, nil)
}

// UserTreeNode is one group in the admin's user-selection tree.
type UserTreeNode struct {
	Group qa.Group  `json:"group"`
	Users []qa.User `json:"users"`
}

// UsersTree returns grouped users for task assignment. An optional search
// term filters by username.
func (c *Client) UsersTree(ctx context.Context, search string) ([]UserTreeNode, error) {
	endpoint := "/auth/users/tree"
	if search != "" {
		endpoint += "?search=" + url.QueryEscape(search)
	}
	var tree []UserTreeNode
	if err := c.decode(ctx, "GET", endpoint, nil, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// UserGroups lists the groups a regular user may belong to.
func (c *Client) UserGroups(ctx context.Context) ([]qa.Group, error) {
	var groups []qa.Group
	if err := c.decode(ctx, "GET", "/auth/groups", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// BindGroups attaches user groups to an admin group.
func (c *Client) BindGroups(ctx context.Context, adminGroupID string, userGroupIDs []string) error {
	body := map[string]interface{}{"admin_group_id": adminGroupID, "user_group_ids": userGroupIDs}
	return c.decode(ctx, "POST", "/auth/groups/bind", body, nil)
}
