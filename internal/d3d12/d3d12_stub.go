//go:build !windows

package d3d12

// Adapter is unavailable off Windows; no value can be constructed.
type Adapter struct{}

func EnumAdapters() ([]*Adapter, error) {
	return nil, ErrNotAvailable
}

func (a *Adapter) Desc() (AdapterDesc, error) {
	return AdapterDesc{}, ErrNotAvailable
}

func (a *Adapter) Release() {}

type Device struct{}

func CreateDevice(adapter *Adapter) (*Device, error) {
	return nil, ErrNotAvailable
}

func (d *Device) CreateSharedBuffer(byteSize int) (*Resource, error) {
	return nil, ErrNotAvailable
}

func (d *Device) CreateSharedHandle(resource *Resource) (uintptr, error) {
	return 0, ErrNotAvailable
}

func (d *Device) CreateCommandQueue() (*CommandQueue, error) {
	return nil, ErrNotAvailable
}

func (d *Device) Release() {}

type Resource struct{}

func (r *Resource) Size() int { return 0 }

func (r *Resource) Release() {}

func CloseSharedHandle(handle uintptr) {}

type CommandQueue struct{}

func (q *CommandQueue) WaitIdle() error {
	return ErrNotAvailable
}

func (q *CommandQueue) Release() {}
