package interop

// Backend identifies which native graphics ecosystem a Device and the
// buffers created from it belong to. Every buffer-creation call on a
// Device dispatches through the allocator matching the Device's own
// tag; forcing a mismatch is a programming error and panics.
type Backend uint32

const (
	BackendUnknown Backend = iota
	BackendVulkan
	BackendDX12
)

var backendMapping = make(map[Backend]string)

func (b Backend) String() string {
	str, ok := backendMapping[b]
	if !ok {
		return "BackendUnknown"
	}
	return str
}

func init() {
	backendMapping[BackendUnknown] = "BackendUnknown"
	backendMapping[BackendVulkan] = "BackendVulkan"
	backendMapping[BackendDX12] = "BackendDX12"
}
