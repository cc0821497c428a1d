package devices

import (
	"context"
	"fmt"
	"sync"
)

// Base carries what every Wink device has in common. Typed devices embed it.
type Base struct {
	owner Owner
	kind  Tag

	mu   sync.RWMutex
	desc Descriptor
}

// NewBase creates the common part of a device of kind from d
func NewBase(owner Owner, kind Tag, d Descriptor) *Base {
	return &Base{owner: owner, kind: kind, desc: d}
}

func (b *Base) Kind() Tag {
	return b.kind
}

// ID returns the value of the "<kind>_id" attribute
func (b *Base) ID() string {
	return b.Descriptor().String(string(b.kind) + idSuffix)
}

func (b *Base) Name() string {
	return b.Descriptor().String("name")
}

// Descriptor returns the most recent record for this device
func (b *Base) Descriptor() Descriptor {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.desc
}

// Path returns the device's resource path, e.g. /light_bulbs/42
func (b *Base) Path() string {
	return fmt.Sprintf("/%ss/%s", b.kind, b.ID())
}

// Update sends fields to the device resource and keeps the returned record
func (b *Base) Update(ctx context.Context, fields any) error {
	var updated Descriptor
	if err := b.owner.Put(ctx, b.Path(), fields, &updated); err != nil {
		return fmt.Errorf("update %s %s: %w", b.kind, b.ID(), err)
	}
	b.replace(updated)
	return nil
}

// Reload fetches the current record for this device
func (b *Base) Reload(ctx context.Context) error {
	var current Descriptor
	if err := b.owner.Get(ctx, b.Path(), &current); err != nil {
		return fmt.Errorf("reload %s %s: %w", b.kind, b.ID(), err)
	}
	b.replace(current)
	return nil
}

func (b *Base) replace(d Descriptor) {
	if d.Len() == 0 {
		return
	}
	b.mu.Lock()
	b.desc = d
	b.mu.Unlock()
}

// reading returns last_reading[key]
func (b *Base) reading(key string) (any, bool) {
	var readings map[string]any
	if err := b.Descriptor().Decode("last_reading", &readings); err != nil {
		return nil, false
	}
	v, ok := readings[key]
	return v, ok
}

// Generic returns a constructor for kinds that need no behavior beyond Base
func Generic(kind Tag) Constructor {
	return func(owner Owner, d Descriptor) Device {
		return NewBase(owner, kind, d)
	}
}
