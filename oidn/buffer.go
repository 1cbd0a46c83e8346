package oidn

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Buffer wraps an OIDNBuffer handle. Shared buffers created from
// imported external memory address the same bytes as the exporting API's
// buffer object.
type Buffer struct {
	driver Driver
	handle BufferHandle
}

// BufferFromRaw adopts an already-created buffer handle. Ownership
// transfers to the returned Buffer.
func BufferFromRaw(driver Driver, handle BufferHandle) *Buffer {
	if handle == 0 {
		panic("attempted to adopt a null buffer handle")
	}
	return &Buffer{driver: driver, handle: handle}
}

// Raw returns the underlying OIDNBuffer handle.
func (b *Buffer) Raw() BufferHandle {
	return b.handle
}

// Size returns the buffer's byte size as reported by the engine.
func (b *Buffer) Size() int {
	return b.driver.GetBufferSize(b.handle)
}

// Read copies len(dst) bytes starting at byteOffset into dst. The
// engine performs any needed device-to-host transfer and blocks until
// it completes.
func (b *Buffer) Read(byteOffset int, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	if byteOffset < 0 || byteOffset+len(dst) > b.Size() {
		return errors.Newf("read of %d bytes at offset %d is out of bounds for a %d-byte buffer", len(dst), byteOffset, b.Size())
	}
	b.driver.ReadBuffer(b.handle, byteOffset, len(dst), unsafe.Pointer(&dst[0]))
	return nil
}

// Write copies len(src) bytes from src into the buffer at byteOffset,
// blocking until the transfer completes.
func (b *Buffer) Write(byteOffset int, src []byte) error {
	if len(src) == 0 {
		return nil
	}
	if byteOffset < 0 || byteOffset+len(src) > b.Size() {
		return errors.Newf("write of %d bytes at offset %d is out of bounds for a %d-byte buffer", len(src), byteOffset, b.Size())
	}
	b.driver.WriteBuffer(b.handle, byteOffset, len(src), unsafe.Pointer(&src[0]))
	return nil
}

// Release drops this wrapper's reference on the buffer.
func (b *Buffer) Release() {
	if b.handle == 0 {
		return
	}
	b.driver.ReleaseBuffer(b.handle)
	b.handle = 0
}
