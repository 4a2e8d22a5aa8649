//go:build !darwin

package gattbutton

import "tinygo.org/x/bluetooth"

// AdapterStack drives a real adapter. Enable it before use.
type AdapterStack struct {
	Adapter *bluetooth.Adapter
}

func (s AdapterStack) AddService(svc *bluetooth.Service) error {
	return s.Adapter.AddService(svc)
}

func (s AdapterStack) Advertise(localName string, uuids ...bluetooth.UUID) error {
	adv := s.Adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    localName,
		ServiceUUIDs: uuids,
	}); err != nil {
		return err
	}
	return adv.Start()
}

func (AdapterStack) Value(h *bluetooth.Characteristic) Value { return h }
