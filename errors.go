package interop

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/oidn-go/interop/oidn"
)

// Device-pairing failures. Callers are expected to treat any of these as
// fatal for the adapter at hand and move on to the next one; no fallback
// is attempted internally.
var (
	// ErrRequestDevice marks failures of the native graphics device
	// request. The underlying driver error is attached.
	ErrRequestDevice = errors.New("the graphics device request failed")
	// ErrOidnUnsupported is returned when OIDN cannot create a device
	// for the adapter. Engine errors other than "no device" are only
	// retrievable after committing, so a null handle is reported
	// generically.
	ErrOidnUnsupported = errors.New("OIDN could not create a device for this adapter (does this adapter support OIDN?)")
	// ErrOidnImportUnsupported is returned when the committed OIDN
	// device and this platform share no external-memory handle type.
	ErrOidnImportUnsupported = errors.New("OIDN does not support the required import method")
	// ErrMissingFeature is returned when the adapter lacks the API
	// version or external-memory extension cross-API sharing requires.
	ErrMissingFeature = errors.New("a required feature is missing")
	// ErrUnsupportedBackend is returned for adapter backend kinds other
	// than Vulkan and Direct3D 12.
	ErrUnsupportedBackend = errors.New("the adapter's backend is not supported")
)

// Buffer-allocation failures.
var (
	// ErrInvalidSize rejects zero-byte requests before any native
	// allocation is attempted.
	ErrInvalidSize = errors.New("the requested buffer size is not allowed")
	// ErrOutOfMemory covers every physical-resource failure on the
	// allocation path: no qualifying memory type, native allocation or
	// bind failure, and handle-export failure. From the caller's
	// standpoint these are all resource exhaustion.
	ErrOutOfMemory = errors.New("out of memory")
)

// OidnError reports that the engine rejected an imported handle, with
// the engine's own error code and message.
type OidnError struct {
	Code    oidn.Error
	Message string
}

func (e *OidnError) Error() string {
	return fmt.Sprintf("OIDN shared buffer creation failed with error %s: %s", e.Code, e.Message)
}
