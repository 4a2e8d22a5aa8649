package gattbutton

import "tinygo.org/x/bluetooth"

// Value is a characteristic whose value the server can update; writing
// notifies subscribed centrals.
type Value interface {
	Write(p []byte) (int, error)
}

// Stack is the part of the BLE peripheral API the service uses.
type Stack interface {
	AddService(svc *bluetooth.Service) error
	Advertise(localName string, uuids ...bluetooth.UUID) error
	// Value returns the updatable view of a characteristic registered
	// through AddService.
	Value(h *bluetooth.Characteristic) Value
}
