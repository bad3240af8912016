package edd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bootinspect/internal/common"
)

// makeDevicePath builds a valid 36-byte record with a correct checksum.
func makeDevicePath(hostBus, iface string, interfacePath, devicePath [8]byte) []byte {
	buf := make([]byte, devicePathSize)
	buf[0], buf[1] = 0xdd, 0xbe
	buf[2] = devicePathSize
	copy(buf[6:10], hostBus)
	copy(buf[10:18], iface)
	copy(buf[18:26], interfacePath[:])
	copy(buf[26:34], devicePath[:])
	return fixChecksum(buf)
}

func TestDecodeDevicePathVariants(t *testing.T) {
	tests := []struct {
		name          string
		hostBus       string
		iface         string
		interfacePath [8]byte
		devicePath    [8]byte
		wantBus       HostBus
		wantIface     Interface
	}{
		{
			name:          "pci ata slave",
			hostBus:       "PCI ",
			iface:         "ATA     ",
			interfacePath: [8]byte{0, 1, 2},
			devicePath:    [8]byte{1},
			wantBus:       PCIBus{Bus: 0, Slot: 1, Function: 2},
			wantIface:     ATA{Slave: true},
		},
		{
			name:          "isa atapi",
			hostBus:       "ISA ",
			iface:         "ATAPI   ",
			interfacePath: [8]byte{0xf0, 0x01},
			devicePath:    [8]byte{1, 3},
			wantBus:       ISABus{BaseAddress: 0x1f0},
			wantIface:     ATAPI{Slave: true, LUN: 3},
		},
		{
			name:       "pci scsi",
			hostBus:    "PCI ",
			iface:      "SCSI    ",
			devicePath: [8]byte{5},
			wantBus:    PCIBus{},
			wantIface:  SCSI{LUN: 5},
		},
		{
			name:       "pci usb",
			hostBus:    "PCI ",
			iface:      "USB     ",
			devicePath: [8]byte{7},
			wantBus:    PCIBus{},
			wantIface:  USB{TBD: 7},
		},
		{
			name:       "pci 1394",
			hostBus:    "PCI ",
			iface:      "1394    ",
			devicePath: [8]byte{0xef, 0xbe, 0xad, 0xde, 0x78, 0x56, 0x34, 0x12},
			wantBus:    PCIBus{},
			wantIface:  IEEE1394{GUID: 0x12345678deadbeef},
		},
		{
			name:       "pci fibre",
			hostBus:    "PCI ",
			iface:      "FIBRE   ",
			devicePath: [8]byte{0x42, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
			wantBus:    PCIBus{},
			wantIface:  Fibre{WWN: 0x42},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := makeDevicePath(tt.hostBus, tt.iface, tt.interfacePath, tt.devicePath)
			d, err := DecodeDevicePathInformation(buf)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBus, d.HostBus)
			assert.Equal(t, tt.wantIface, d.Interface)
		})
	}
}

func TestDecodeDevicePathRejections(t *testing.T) {
	valid := func() []byte {
		return makeDevicePath("PCI ", "ATA     ", [8]byte{0, 1, 2}, [8]byte{})
	}

	tests := []struct {
		name   string
		mutate func(buf []byte)
		kind   common.FaultKind
		field  string
	}{
		{
			name:   "bad signature",
			mutate: func(b []byte) { b[0] = 0xde },
			kind:   common.FaultInvalidValueForField,
			field:  "bedd",
		},
		{
			name:   "reserved byte set",
			mutate: func(b []byte) { b[4] = 1 },
			kind:   common.FaultInvalidValuesForReservedBits,
		},
		{
			name:   "trailing reserved byte set",
			mutate: func(b []byte) { b[34] = 1 },
			kind:   common.FaultInvalidValuesForReservedBits,
		},
		{
			name:   "wrong length",
			mutate: func(b []byte) { b[2] = 30 },
			kind:   common.FaultInvalidValueForField,
			field:  "length",
		},
		{
			name:   "unknown host bus",
			mutate: func(b []byte) { copy(b[6:10], "XEN ") },
			kind:   common.FaultInvalidValueForField,
			field:  "host bus type",
		},
		{
			name:   "unknown interface",
			mutate: func(b []byte) { copy(b[10:18], "NVME    ") },
			kind:   common.FaultInvalidValueForField,
			field:  "interface type",
		},
		{
			name:   "pci interface path tail not zero",
			mutate: func(b []byte) { b[18+3] = 1 },
			kind:   common.FaultInvalidValuesForReservedBits,
			field:  "PCI interface path",
		},
		{
			name:   "ata device path tail not zero",
			mutate: func(b []byte) { b[26+1] = 1 },
			kind:   common.FaultInvalidValuesForReservedBits,
			field:  "ATA device path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := valid()
			tt.mutate(buf)
			fixChecksum(buf)

			_, err := DecodeDevicePathInformation(buf)
			f := faultOf(t, err)
			assert.Equal(t, tt.kind, f.Kind)
			if tt.field != "" {
				assert.Equal(t, tt.field, f.Field)
			}
		})
	}
}

// Mutating any interior byte without re-deriving the checksum fails on the
// checksum check, which runs before the tag fields are interpreted.
func TestDevicePathChecksumLaw(t *testing.T) {
	for i := 6; i < 34; i++ {
		buf := makeDevicePath("PCI ", "ATA     ", [8]byte{0, 1, 2}, [8]byte{})
		buf[i] ^= 0x5a

		_, err := DecodeDevicePathInformation(buf)
		f := faultOf(t, err)
		assert.Equal(t, common.FaultInvalidValueForField, f.Kind, "byte %d", i)
		assert.Equal(t, "checksum", f.Field, "byte %d", i)
	}
}

func TestDecodeDevicePathShortBuffer(t *testing.T) {
	_, err := DecodeDevicePathInformation(make([]byte, 10))
	f := faultOf(t, err)
	assert.Equal(t, common.FaultNotEnoughBytesFor, f.Kind)
}
