package interop

import (
	"github.com/cockroachdb/errors"
	"github.com/oidn-go/interop/internal/d3d12"
	"github.com/oidn-go/interop/oidn"
)

// allocateSharedDX12 creates one shared committed resource and imports
// its NT handle into OIDN. Direct3D zero-initializes committed
// resources, so no explicit clear submission is needed on this backend.
func (d *Device) allocateSharedDX12(size int) (buf *SharedBuffer, err error) {
	if d.backend != BackendDX12 {
		panic("the DX12 allocator was dispatched on a " + d.backend.String() + " device")
	}

	resource, err := d.dxDevice.CreateSharedBuffer(size)
	if err != nil {
		return nil, errors.Mark(err, ErrOutOfMemory)
	}
	defer func() {
		if err != nil {
			resource.Release()
		}
	}()

	osHandle, err := d.dxDevice.CreateSharedHandle(resource)
	if err != nil {
		return nil, errors.Mark(err, ErrOutOfMemory)
	}
	defer func() {
		if err != nil {
			d3d12.CloseSharedHandle(osHandle)
		}
	}()

	rawEngineBuffer := d.engine.NewSharedBufferFromWin32Handle(d.oidnDevice.Raw(), d.supportedMemoryTypes, osHandle, size)
	if rawEngineBuffer == 0 {
		code, message := d.oidnDevice.Error()
		return nil, &OidnError{Code: code, Message: message}
	}

	id := d.registry.register(allocationRecord{
		Size:           size,
		AllocationSize: size,
	})

	return &SharedBuffer{
		device:     d,
		id:         id,
		backend:    BackendDX12,
		size:       size,
		osHandle:   osHandle,
		dxResource: resource,
		oidnBuffer: oidn.BufferFromRaw(d.engine, rawEngineBuffer),
	}, nil
}
