package wink

import (
	"context"

	"winkcloud/devices"
)

const (
	pathProfile  = "/users/me"
	pathGeofence = "/users/me/geofences"
	pathServices = "/users/me/linked_services"
	pathIcons    = "/icons"
	pathChannels = "/channels"
)

// Profile returns the signed-in user's profile
func (c *Client) Profile(ctx context.Context) (map[string]any, error) {
	var profile map[string]any
	if err := c.api.Get(ctx, pathProfile, &profile); err != nil {
		return nil, err
	}
	return orEmpty(profile), nil
}

// UpdateProfile writes fields to the user's profile and returns the result
func (c *Client) UpdateProfile(ctx context.Context, fields any) (map[string]any, error) {
	var profile map[string]any
	if err := c.api.Put(ctx, pathProfile, fields, &profile); err != nil {
		return nil, err
	}
	return orEmpty(profile), nil
}

// UpdateProfileEmail changes the user's email address
func (c *Client) UpdateProfileEmail(ctx context.Context, email string) (map[string]any, error) {
	return c.UpdateProfile(ctx, map[string]string{"email": email})
}

// RawDevices returns the unclassified device descriptors
func (c *Client) RawDevices(ctx context.Context) ([]devices.Descriptor, error) {
	var descriptors []devices.Descriptor
	if err := c.api.Get(ctx, pathDevices, &descriptors); err != nil {
		return nil, err
	}
	return descriptors, nil
}

func (c *Client) Geofences(ctx context.Context) ([]map[string]any, error) {
	return c.list(ctx, pathGeofence)
}

func (c *Client) Services(ctx context.Context) ([]map[string]any, error) {
	return c.list(ctx, pathServices)
}

// CreateService links a third-party service to the account
func (c *Client) CreateService(ctx context.Context, service any) (map[string]any, error) {
	var created map[string]any
	if err := c.api.Post(ctx, pathServices, service, &created); err != nil {
		return nil, err
	}
	return orEmpty(created), nil
}

func (c *Client) Icons(ctx context.Context) ([]map[string]any, error) {
	return c.list(ctx, pathIcons)
}

func (c *Client) Channels(ctx context.Context) ([]map[string]any, error) {
	return c.list(ctx, pathChannels)
}

// InboundChannels returns the channels whose "inbound" flag is true
func (c *Client) InboundChannels(ctx context.Context) ([]map[string]any, error) {
	return c.channelsWith(ctx, "inbound")
}

// OutboundChannels returns the channels whose "outbound" flag is true
func (c *Client) OutboundChannels(ctx context.Context) ([]map[string]any, error) {
	return c.channelsWith(ctx, "outbound")
}

func (c *Client) channelsWith(ctx context.Context, flag string) ([]map[string]any, error) {
	channels, err := c.Channels(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]map[string]any, 0, len(channels))
	for _, ch := range channels {
		if on, _ := ch[flag].(bool); on {
			filtered = append(filtered, ch)
		}
	}
	return filtered, nil
}

func (c *Client) list(ctx context.Context, path string) ([]map[string]any, error) {
	var items []map[string]any
	if err := c.api.Get(ctx, path, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []map[string]any{}
	}
	return items, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
