package edd

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bootinspect/internal/common"
)

// Byte dumps captured from INT 13h/48h under QEMU and Bochs.
var qemuDriveParameters = []byte{
	0x1e, 0x0, 0x2, 0x0, 0x2, 0x0, 0x0, 0x0, 0x10, 0x0, 0x0, 0x0, 0x3f, 0x0, 0x0, 0x0, 0x91,
	0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x2, 0xff, 0xff, 0xff, 0xff, 0xdd, 0xbe, 0x24, 0x0,
	0x0, 0x0, 0x50, 0x43, 0x49, 0x20, 0x41, 0x54, 0x41, 0x20, 0x20, 0x20, 0x20, 0x20, 0x0, 0x1,
	0x1, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0xcd,
}

var bochsDriveParameters = []byte{
	0x1e, 0x0, 0x2, 0x0, 0x1, 0x0, 0x0, 0x0, 0x1, 0x0, 0x0, 0x0, 0x12, 0x0, 0x0, 0x0, 0x91,
	0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x2, 0xff, 0xff, 0xff, 0xff, 0xdd, 0xbe, 0x24, 0x0,
	0x0, 0x0, 0x49, 0x53, 0x41, 0x20, 0x41, 0x54, 0x41, 0x20, 0x20, 0x20, 0x20, 0x20, 0xf0,
	0x1, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0xdd,
}

var qemuFDPT = []byte{
	0xf0, 0x1, 0xf6, 0x3, 0xe0, 0xcb, 0xe, 0x1, 0x0, 0x0, 0x10, 0x0, 0x0, 0x0, 0x11, 0x3b,
}

var bochsFDPT = []byte{
	0xf0, 0x1, 0xf6, 0x3, 0xe0, 0xcb, 0xe, 0x1, 0x0, 0x0, 0x90, 0x0, 0x0, 0x0, 0x11, 0xbb,
}

// fixChecksum recomputes the trailing wraparound checksum byte.
func fixChecksum(buf []byte) []byte {
	var sum uint8
	for _, b := range buf[:len(buf)-1] {
		sum += b
	}
	buf[len(buf)-1] = -sum
	return buf
}

func faultOf(t *testing.T, err error) common.Fault {
	t.Helper()
	require.Error(t, err)
	f := common.FaultOf(err)
	require.NotEqual(t, common.FaultNone, f.Kind, "error carries no fault: %v", err)
	return f
}

func TestDecodeDriveParametersQEMU(t *testing.T) {
	p, err := DecodeDriveParameters(qemuDriveParameters, nil)
	require.NoError(t, err)

	assert.Equal(t, uint16(30), p.BufferSize)
	assert.Equal(t, InfoFlags.Of(InfoSuppliedGeometryValid), p.InformationFlags)
	assert.Equal(t, uint32(2), p.Cylinders)
	assert.Equal(t, uint32(16), p.Heads)
	assert.Equal(t, uint32(63), p.SectorsPerTrack)
	assert.Equal(t, uint64(145), p.Sectors)
	assert.Equal(t, uint16(512), p.BytesPerSector)
	assert.Nil(t, p.FixedDiskParameterTable)

	require.NotNil(t, p.DevicePathInformation)
	assert.Equal(t, PCIBus{Bus: 0, Slot: 1, Function: 1}, p.DevicePathInformation.HostBus)
	assert.Equal(t, ATA{Slave: false}, p.DevicePathInformation.Interface)
}

func TestDecodeDriveParametersBochs(t *testing.T) {
	p, err := DecodeDriveParameters(bochsDriveParameters, nil)
	require.NoError(t, err)

	assert.Equal(t, uint16(30), p.BufferSize)
	assert.Equal(t, InfoFlags.Of(InfoSuppliedGeometryValid), p.InformationFlags)
	assert.Equal(t, uint32(1), p.Cylinders)
	assert.Equal(t, uint32(1), p.Heads)
	assert.Equal(t, uint32(18), p.SectorsPerTrack)
	assert.Equal(t, uint64(145), p.Sectors)
	assert.Equal(t, uint16(512), p.BytesPerSector)

	require.NotNil(t, p.DevicePathInformation)
	assert.Equal(t, ISABus{BaseAddress: 0x1f0}, p.DevicePathInformation.HostBus)
	assert.Equal(t, ATA{Slave: false}, p.DevicePathInformation.Interface)
}

func TestDecodeDriveParametersRejections(t *testing.T) {
	mutate := func(f func(buf []byte)) []byte {
		buf := append([]byte(nil), qemuDriveParameters[:30]...)
		f(buf)
		return buf
	}

	tests := []struct {
		name  string
		buf   []byte
		field string
	}{
		{
			name:  "short buffer",
			buf:   qemuDriveParameters[:20],
			field: "",
		},
		{
			name:  "pre-1.1 buffer size",
			buf:   mutate(func(b []byte) { b[0] = 16 }),
			field: "buffer size",
		},
		{
			name:  "geometry valid but zero cylinders",
			buf:   mutate(func(b []byte) { b[4], b[5], b[6], b[7] = 0, 0, 0, 0 }),
			field: "cylinders",
		},
		{
			name:  "geometry valid but zero heads",
			buf:   mutate(func(b []byte) { b[8], b[9], b[10], b[11] = 0, 0, 0, 0 }),
			field: "heads",
		},
		{
			name:  "geometry valid but zero sectors per track",
			buf:   mutate(func(b []byte) { b[12], b[13], b[14], b[15] = 0, 0, 0, 0 }),
			field: "sectors per track",
		},
		{
			name:  "zero bytes per sector",
			buf:   mutate(func(b []byte) { b[24], b[25] = 0, 0 }),
			field: "bytes per sector",
		},
		{
			name: "removable without line change",
			buf: mutate(func(b []byte) {
				binary.LittleEndian.PutUint16(b[2:4], uint16(InfoRemovable|InfoLockable))
			}),
			field: "information flags",
		},
		{
			name: "removable without lockable",
			buf: mutate(func(b []byte) {
				binary.LittleEndian.PutUint16(b[2:4], uint16(InfoRemovable|InfoSupportsLineChange))
			}),
			field: "information flags",
		},
		{
			name: "no media on a fixed drive",
			buf: mutate(func(b []byte) {
				binary.LittleEndian.PutUint16(b[2:4], uint16(InfoNoMediaPresent))
			}),
			field: "information flags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDriveParameters(tt.buf, nil)
			f := faultOf(t, err)
			if tt.field != "" {
				assert.Equal(t, common.FaultInvalidValueForField, f.Kind)
				assert.Equal(t, tt.field, f.Field)
			} else {
				assert.Equal(t, common.FaultNotEnoughBytesFor, f.Kind)
			}
		})
	}
}

func TestZeroGeometryAllowedWhenNotSupplied(t *testing.T) {
	buf := append([]byte(nil), qemuDriveParameters[:30]...)
	binary.LittleEndian.PutUint16(buf[2:4], 0)
	for i := 4; i < 16; i++ {
		buf[i] = 0
	}

	p, err := DecodeDriveParameters(buf, nil)
	require.NoError(t, err)
	assert.Zero(t, p.Cylinders)
	assert.Zero(t, p.Heads)
	assert.Zero(t, p.SectorsPerTrack)
}

func TestDecodeFDPT(t *testing.T) {
	qemu, err := DecodeFixedDiskParameterTable(qemuFDPT)
	require.NoError(t, err)
	assert.Equal(t, &FixedDiskParameterTable{
		IOPortBase:          0x1f0,
		ControlPortBase:     0x3f6,
		HeadPrefix:          HeadRegisterFlags.FromBits(0xa0 | uint8(HeadLBAEnabled)),
		IRQ:                 14,
		SectorCount:         1,
		DMAChannel:          0,
		DMAType:             0,
		PIOType:             0,
		HardwareOptionFlags: HWOptionFlags.Of(HWLBATranslation),
		ExtensionRevision:   17,
		Checksum:            0x3b,
	}, qemu)

	bochs, err := DecodeFixedDiskParameterTable(bochsFDPT)
	require.NoError(t, err)
	assert.Equal(t, HWOptionFlags.Of(HWLBATranslation, HW32BitTransferMode), bochs.HardwareOptionFlags)
	assert.Equal(t, uint8(0xbb), bochs.Checksum)
}

// Any single-byte mutation must be caught, the checksum is verified before
// anything else is looked at.
func TestFDPTChecksumLaw(t *testing.T) {
	for i := range qemuFDPT {
		buf := append([]byte(nil), qemuFDPT...)
		buf[i] ^= 0x5a

		_, err := DecodeFixedDiskParameterTable(buf)
		f := faultOf(t, err)
		assert.Equal(t, common.FaultInvalidValueForField, f.Kind, "byte %d", i)
		assert.Equal(t, "checksum", f.Field, "byte %d", i)
	}
}

func TestFDPTValidationFailures(t *testing.T) {
	mutate := func(f func(buf []byte)) []byte {
		buf := append([]byte(nil), qemuFDPT...)
		f(buf)
		return fixChecksum(buf)
	}

	tests := []struct {
		name  string
		buf   []byte
		field string
	}{
		{
			name:  "wrong extension revision",
			buf:   mutate(func(b []byte) { b[14] = 0x10 }),
			field: "extension revision",
		},
		{
			name:  "head prefix fixed bits wrong",
			buf:   mutate(func(b []byte) { b[4] = 0x60 }),
			field: "head prefix",
		},
		{
			name:  "head prefix head nibble set",
			buf:   mutate(func(b []byte) { b[4] = 0xa5 }),
			field: "head prefix",
		},
		{
			name:  "irq high nibble set",
			buf:   mutate(func(b []byte) { b[6] = 0x1e }),
			field: "irq",
		},
		{
			name:  "pio type high nibble set",
			buf:   mutate(func(b []byte) { b[9] = 0x10 }),
			field: "pio type",
		},
		{
			name: "atapi without interrupt drq",
			buf: mutate(func(b []byte) {
				binary.LittleEndian.PutUint16(b[10:12], uint16(HWAtapi))
			}),
			field: "hardware specific option flags",
		},
		{
			name: "translation type without chs translation",
			buf: mutate(func(b []byte) {
				binary.LittleEndian.PutUint16(b[10:12], uint16(HWTranslationTypeFirstBit))
			}),
			field: "hardware specific option flags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFixedDiskParameterTable(tt.buf)
			f := faultOf(t, err)
			assert.Equal(t, common.FaultInvalidValueForField, f.Kind)
			assert.Equal(t, tt.field, f.Field)
		})
	}
}

// ---------- FDPT resolution through injected memory ----------

type memStub map[uint32][]byte

func (m memStub) ReadBytes(linear uint32, n int) ([]byte, error) {
	b, ok := m[linear]
	if !ok || len(b) < n {
		return nil, errors.New("unmapped address")
	}
	return b[:n], nil
}

func TestResolveFDPT(t *testing.T) {
	// seg:offset F000:1234 linearizes to 0xF1234.
	const farPtr = 0xf000_1234
	mem := memStub{0xf1234: qemuFDPT}

	buf := append([]byte(nil), qemuDriveParameters[:30]...)
	binary.LittleEndian.PutUint32(buf[26:30], farPtr)

	p, err := DecodeDriveParameters(buf, mem)
	require.NoError(t, err)
	require.NotNil(t, p.FixedDiskParameterTable)
	assert.Equal(t, uint16(0x1f0), p.FixedDiskParameterTable.IOPortBase)
	assert.Equal(t, uint16(0x3f6), p.FixedDiskParameterTable.ControlPortBase)
}

func TestResolveFDPTSentinel(t *testing.T) {
	p := &DriveParameters{BufferSize: 30}
	require.NoError(t, p.ResolveFDPT(0xffffffff, memStub{}))
	assert.Nil(t, p.FixedDiskParameterTable)
}

func TestResolveFDPTShortRecord(t *testing.T) {
	p := &DriveParameters{BufferSize: 26}
	err := p.ResolveFDPT(0xf000_1234, memStub{})
	f := faultOf(t, err)
	assert.Equal(t, common.FaultNotEnoughBytesFor, f.Kind)
}

func TestResolveFDPTUnreadableMemory(t *testing.T) {
	p := &DriveParameters{BufferSize: 30}
	err := p.ResolveFDPT(0xf000_1234, memStub{})
	require.Error(t, err)

	var e *common.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, common.ContextIo, e.Context)
}

func TestNilMemoryReaderLeavesFDPTUnresolved(t *testing.T) {
	const farPtr = 0xf000_1234
	buf := append([]byte(nil), qemuDriveParameters[:30]...)
	binary.LittleEndian.PutUint32(buf[26:30], farPtr)

	p, err := DecodeDriveParameters(buf, nil)
	require.NoError(t, err)
	assert.Nil(t, p.FixedDiskParameterTable)
}
