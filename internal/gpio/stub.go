//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealProvider is not available on non-Linux platforms.
type RealProvider struct{}

// NewRealProvider returns an error on non-Linux platforms.
func NewRealProvider(consumer string) (*RealProvider, error) {
	return nil, errUnsupported
}

// RequestEdgeInput is not implemented on non-Linux platforms.
func (p *RealProvider) RequestEdgeInput(line Line) (EdgeSource, error) {
	return nil, errUnsupported
}

// RequestInputs is not implemented on non-Linux platforms.
func (p *RealProvider) RequestInputs(chip string, offsets []int) (InputGroup, error) {
	return nil, errUnsupported
}

// RequestOutputs is not implemented on non-Linux platforms.
func (p *RealProvider) RequestOutputs(chip string, offsets []int, initial []int) (OutputGroup, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (p *RealProvider) Close() error {
	return nil
}
