// Package device provides port-mapped I/O device models for the 8080
// emulator. A device is attached to one or more of the 256 ports and
// services the IN and OUT instructions addressed to them.
package device

// Device is the interface every port-mapped device implements.
type Device interface {
	// Reset returns the device to its initial state.
	Reset()
	// In reads a byte from the device for an IN instruction.
	In(port uint8) (uint8, error)
	// Out delivers a byte to the device for an OUT instruction.
	Out(port uint8, value uint8) error
}
