// Package devices maps the raw device records returned by the Wink API onto
// typed device values through an explicit registry of constructors.
package devices

import (
	"context"
)

// Tag names a device kind, e.g. "light_bulb". A record is of kind T when it
// carries a "T_id" attribute.
type Tag string

// Device is anything built from a descriptor by a registered constructor
type Device interface {
	Kind() Tag
	ID() string
	Name() string
}

// Owner is the API surface a device may call back into
type Owner interface {
	Get(ctx context.Context, path string, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// Constructor builds a device of one kind from its descriptor
type Constructor func(owner Owner, d Descriptor) Device
