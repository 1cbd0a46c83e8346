package interop

import (
	"github.com/cockroachdb/errors"
	"github.com/oidn-go/interop/internal/d3d12"
	"github.com/oidn-go/interop/oidn"
	"golang.org/x/exp/slog"
)

func newDX12Device(adapter Adapter, opts CreateOptions, logger *slog.Logger) (*Device, Queue, error) {
	if adapter.DXGIAdapter == nil {
		panic("a DX12-tagged adapter requires DXGIAdapter")
	}

	desc, err := adapter.DXGIAdapter.Desc()
	if err != nil {
		return nil, Queue{}, errors.Mark(err, ErrMissingFeature)
	}
	if desc.SoftwareAdapter {
		return nil, Queue{}, errors.Wrapf(ErrMissingFeature, "adapter %q is a software adapter", desc.Description)
	}

	engine := opts.Engine
	if engine == nil {
		engine, err = oidn.DefaultDriver()
		if err != nil {
			return nil, Queue{}, errors.Mark(err, ErrOidnUnsupported)
		}
	}

	device := &Device{
		logger:   logger,
		backend:  BackendDX12,
		engine:   engine,
		registry: newAllocationRegistry(),
	}

	rawEngineDevice := engine.NewDeviceByLUID(desc.AdapterLUID)
	err = device.adoptEngineDevice(rawEngineDevice, oidn.ExternalMemoryTypeD3D12Resource)
	if err != nil {
		return nil, Queue{}, err
	}

	dxDevice, err := d3d12.CreateDevice(adapter.DXGIAdapter)
	if err != nil {
		device.oidnDevice.Release()
		return nil, Queue{}, errors.Mark(err, ErrRequestDevice)
	}

	dxQueue, err := dxDevice.CreateCommandQueue()
	if err != nil {
		device.oidnDevice.Release()
		dxDevice.Release()
		return nil, Queue{}, errors.Mark(err, ErrRequestDevice)
	}

	device.dxDevice = dxDevice
	device.dxQueue = dxQueue

	return device, Queue{backend: BackendDX12, dx12: dxQueue}, nil
}
