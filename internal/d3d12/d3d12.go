// Package d3d12 is a minimal binding to the Direct3D 12 and DXGI APIs,
// covering only what cross-API buffer sharing needs: adapter identity
// (LUID), device creation, committed shared buffer resources, NT shared
// handles, and a command queue with a fence-based drain.
//
// The real implementation is Windows-only; on other platforms every
// entry point reports ErrNotAvailable.
package d3d12

import "github.com/cockroachdb/errors"

// ErrNotAvailable is returned on platforms without Direct3D 12, or when
// d3d12.dll cannot be loaded.
var ErrNotAvailable = errors.New("Direct3D 12 is not available on this platform")

// LUID is a locally-unique adapter identifier, in the byte layout
// Direct3D reports it.
type LUID [8]byte

// AdapterDesc is the subset of DXGI_ADAPTER_DESC1 the pairing logic
// consumes.
type AdapterDesc struct {
	Description     string
	VendorID        uint32
	DeviceID        uint32
	AdapterLUID     LUID
	SoftwareAdapter bool
}
