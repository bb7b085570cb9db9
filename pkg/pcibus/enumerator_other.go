//go:build !linux

package pcibus

import "context"

// Enumerator lists PCI devices under a sysfs mount point
type Enumerator struct{}

// NewEnumerator always fails outside linux
func NewEnumerator(root string, filter Filter) (*Enumerator, error) {
	return nil, ErrUnsupported
}

// Devices always fails outside linux
func (e *Enumerator) Devices(ctx context.Context) ([]Device, error) {
	return nil, ErrUnsupported
}

// ReadExpressCap always fails outside linux
func (e *Enumerator) ReadExpressCap(dev Device) ([]byte, error) {
	return nil, ErrUnsupported
}
