package device

import (
	"fmt"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
)

// A named sub-range of the device memory pool. Buffers satisfy the build
// engine's buffer contract: the engine only ever sees the (address, size)
// pair and addresses data through pool offsets.
type Buffer struct {
	device *Device
	name   string
	addr   uint64
	size   uint64
}

// Address returns the engine-visible device address of the buffer start.
func (b *Buffer) Address() uint64 {
	return b.addr
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 {
	return b.size
}

// Name returns the buffer name.
func (b *Buffer) Name() string {
	return b.name
}

// Write copies host data into the buffer at the given byte offset.
func (b *Buffer) Write(offset uint64, data []byte) error {
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("device (%s): write of %d bytes at offset %d overflows buffer %s", b.device.Name, len(data), offset, b.name)
	}
	return b.device.writeData(b.addr+offset, data)
}

// Read copies buffer contents at the given byte offset back to host data.
func (b *Buffer) Read(offset uint64, data []byte) error {
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("device (%s): read of %d bytes at offset %d overflows buffer %s", b.device.Name, len(data), offset, b.name)
	}
	return b.device.readData(b.addr+offset, data)
}

// Write host data into the pool at an engine address.
func (d *Device) writeData(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	offset, err := d.resolve(addr, uint64(len(data)))
	if err != nil {
		return err
	}

	errCode := cl.EnqueueWriteBuffer(
		d.cmdQueue,
		d.pool,
		cl.TRUE,
		offset,
		uint64(len(data)),
		unsafe.Pointer(&data[0]),
		0,
		nil,
		nil,
	)
	if errCode != cl.SUCCESS {
		return fmt.Errorf("device (%s): could not write %d bytes at %#x (error: %s; code %d)", d.Name, len(data), addr, ErrorName(errCode), errCode)
	}
	return nil
}

// Read pool contents at an engine address back to host data. The read blocks
// until every previously enqueued command has completed.
func (d *Device) readData(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	offset, err := d.resolve(addr, uint64(len(data)))
	if err != nil {
		return err
	}

	errCode := cl.EnqueueReadBuffer(
		d.cmdQueue,
		d.pool,
		cl.TRUE,
		offset,
		uint64(len(data)),
		unsafe.Pointer(&data[0]),
		0,
		nil,
		nil,
	)
	if errCode != cl.SUCCESS {
		return fmt.Errorf("device (%s): could not read %d bytes at %#x (error: %s; code %d)", d.Name, len(data), addr, ErrorName(errCode), errCode)
	}
	return nil
}
