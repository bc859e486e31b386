package hydration

import (
	"context"
)

// Profile is kept as a generic document, the backend owns its schema.
type Profile map[string]any

func (c *Client) Profile(ctx context.Context) (Profile, error) {
	profile := Profile{}
	err := c.api.Get(ctx, "/user/profile", &profile)
	return profile, err
}

func (c *Client) UpdateProfile(ctx context.Context, changes Profile) (Profile, error) {
	profile := Profile{}
	err := c.api.Put(ctx, "/user/profile", changes, &profile)
	return profile, err
}
