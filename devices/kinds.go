package devices

import (
	"context"
)

const (
	KindLightBulb    Tag = "light_bulb"
	KindBinarySwitch Tag = "binary_switch"
)

// genericKinds are device kinds the Wink API reports that get no typed wrapper
var genericKinds = []Tag{
	"air_conditioner",
	"button",
	"camera",
	"cloud_clock",
	"eggtray",
	"fan",
	"garage_door",
	"gang",
	"hub",
	"lock",
	"piggy_bank",
	"powerstrip",
	"propane_tank",
	"remote",
	"sensor_pod",
	"shade",
	"siren",
	"smoke_detector",
	"sprinkler",
	"thermostat",
}

// RegisterDefaults registers the built-in device kinds
func RegisterDefaults(r *Registry) error {
	if err := r.Register(KindLightBulb, NewLightBulb); err != nil {
		return err
	}
	if err := r.Register(KindBinarySwitch, NewBinarySwitch); err != nil {
		return err
	}
	for _, kind := range genericKinds {
		if err := r.Register(kind, Generic(kind)); err != nil {
			return err
		}
	}
	return nil
}

// LightBulb is a dimmable light
type LightBulb struct {
	*Base
}

// NewLightBulb is the light_bulb constructor
func NewLightBulb(owner Owner, d Descriptor) Device {
	return &LightBulb{Base: NewBase(owner, KindLightBulb, d)}
}

// Powered reports the last reading of the bulb's power state
func (l *LightBulb) Powered() bool {
	v, _ := l.reading("powered")
	powered, _ := v.(bool)
	return powered
}

// Brightness reports the last brightness reading, 0..1
func (l *LightBulb) Brightness() float64 {
	v, _ := l.reading("brightness")
	brightness, _ := v.(float64)
	return brightness
}

// SetState requests a new power state and brightness
func (l *LightBulb) SetState(ctx context.Context, powered bool, brightness float64) error {
	return l.Update(ctx, map[string]any{
		"desired_state": map[string]any{
			"powered":    powered,
			"brightness": brightness,
		},
	})
}

// BinarySwitch is an on/off outlet or relay
type BinarySwitch struct {
	*Base
}

// NewBinarySwitch is the binary_switch constructor
func NewBinarySwitch(owner Owner, d Descriptor) Device {
	return &BinarySwitch{Base: NewBase(owner, KindBinarySwitch, d)}
}

// Powered reports the last reading of the switch state
func (s *BinarySwitch) Powered() bool {
	v, _ := s.reading("powered")
	powered, _ := v.(bool)
	return powered
}

// SetPowered switches the device on or off
func (s *BinarySwitch) SetPowered(ctx context.Context, powered bool) error {
	return s.Update(ctx, map[string]any{
		"desired_state": map[string]any{
			"powered": powered,
		},
	})
}
