package wink

import (
	"context"
	"fmt"

	"winkcloud/devices"
)

const pathDevices = "/users/me/wink_devices"

// index is never mutated after it is stored
type index struct {
	all   []devices.Device
	tags  []devices.Tag // first-seen order
	byTag map[devices.Tag][]devices.Device
}

func newIndex() *index {
	return &index{byTag: make(map[devices.Tag][]devices.Device)}
}

func (i *index) add(d devices.Device) {
	tag := d.Kind()
	if _, ok := i.byTag[tag]; !ok {
		i.tags = append(i.tags, tag)
	}
	i.all = append(i.all, d)
	i.byTag[tag] = append(i.byTag[tag], d)
}

// Populate fetches the account's devices and replaces the device snapshot.
// Descriptors of unregistered kinds are skipped unless strict mode is on.
// On error the previous snapshot stays in place.
func (c *Client) Populate(ctx context.Context) error {
	descriptors, err := c.RawDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch devices: %w", err)
	}

	next := newIndex()
	skipped := 0
	for _, d := range descriptors {
		if candidates := c.registry.Candidates(d); len(candidates) > 1 {
			c.logger.Debug("descriptor matches several kinds, using the first", "kinds", candidates)
		}

		device, ok, err := c.registry.Build(c, d)
		if err != nil {
			return fmt.Errorf("failed to construct device: %w", err)
		}
		if !ok {
			if c.strict {
				return fmt.Errorf("%w: keys %v", ErrUnknownDevice, d.Keys())
			}
			c.logger.Debug("skipping device of unknown kind", "keys", d.Keys())
			skipped++
			continue
		}
		next.add(device)
	}

	c.index.Store(next)

	c.logger.Info("devices populated", "count", len(next.all), "kinds", len(next.tags), "skipped", skipped)
	return nil
}

// Devices returns every device of the current snapshot in server order
func (c *Client) Devices() []devices.Device {
	idx := c.index.Load()
	return append([]devices.Device(nil), idx.all...)
}

// DeviceTypes returns the kinds present in the current snapshot, in the
// order they were first seen
func (c *Client) DeviceTypes() []devices.Tag {
	idx := c.index.Load()
	return append([]devices.Tag(nil), idx.tags...)
}

// DevicesOfType returns the devices of kind tag, empty when there are none
func (c *Client) DevicesOfType(tag devices.Tag) []devices.Device {
	idx := c.index.Load()
	return append([]devices.Device{}, idx.byTag[tag]...)
}

// FirstOfType returns the first device of kind tag
func (c *Client) FirstOfType(tag devices.Tag) (devices.Device, bool) {
	idx := c.index.Load()
	list := idx.byTag[tag]
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}
