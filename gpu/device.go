// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// OpenNoop opens a device and queue on the noop backend. Uploads and
// submissions succeed immediately without touching real hardware, which
// makes it suitable for headless runs and tests. The returned function
// releases the device and instance.
func OpenNoop() (hal.Device, hal.Queue, func(), error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("gpu: create noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("gpu: noop backend reported no adapters")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, nil, fmt.Errorf("gpu: open noop device: %w", err)
	}
	cleanup := func() {
		open.Device.Destroy()
		instance.Destroy()
	}
	return open.Device, open.Queue, cleanup, nil
}

// FromProvider extracts the hal device and queue from a shared device
// provider. Providers either return hal objects directly from Device and
// Queue, or expose them through HalDevice/HalQueue.
func FromProvider(provider gpucontext.DeviceProvider) (hal.Device, hal.Queue, error) {
	if provider == nil {
		return nil, nil, ErrNilDevice
	}
	device, dok := provider.Device().(hal.Device)
	queue, qok := provider.Queue().(hal.Queue)
	if dok && qok && device != nil && queue != nil {
		return device, queue, nil
	}

	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, nil, ErrProviderUnsupported
	}
	device, dok = hp.HalDevice().(hal.Device)
	queue, qok = hp.HalQueue().(hal.Queue)
	if !dok || !qok || device == nil || queue == nil {
		return nil, nil, ErrProviderUnsupported
	}
	return device, queue, nil
}
