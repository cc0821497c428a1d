package devices

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRegistration = errors.New("invalid device registration")
	ErrNilDevice           = errors.New("constructor returned nil device")
)

// UnregisteredTypeError is returned when a tag that was classified is no
// longer registered by the time the device is constructed
type UnregisteredTypeError struct {
	Tag Tag
}

func (e *UnregisteredTypeError) Error() string {
	return fmt.Sprintf("device type %q is not registered", e.Tag)
}
