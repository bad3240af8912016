// Package edd decodes the records returned by the BIOS INT 13h extension
// service 48h: the drive parameters buffer, the optional device path
// information extension that follows it, and the fixed disk parameter
// table the buffer can point at.
//
// References:
// https://wiki.sensi.org/download/doc/ata_edd_11.pdf
// http://www.o3one.org/hwdocs/bios_doc/bios_specs_edd30.pdf
package edd

import (
	"encoding/binary"
	"fmt"
	"strings"

	"bootinspect/internal/common"
	"bootinspect/internal/flagset"
)

const (
	driveParametersSize = 30
	devicePathSize      = 36
	fdptSize            = 16

	// DriveParametersBufferSize is what the caller hands INT 13h/48h to
	// receive the drive parameters plus the device path extension.
	DriveParametersBufferSize = driveParametersSize + devicePathSize

	// The configuration parameters pointer holds this when the BIOS
	// supplied no fixed disk parameter table.
	fdptAbsent = 0xffffffff
)

// MemoryReader reads bytes at a linear physical address so the decoder can
// follow the FDPT far pointer. Hosted callers have no BIOS memory and pass
// nil, leaving the table unresolved.
type MemoryReader interface {
	ReadBytes(linear uint32, n int) ([]byte, error)
}

// DriveParameters is the validated result of INT 13h/48h.
type DriveParameters struct {
	BufferSize       uint16
	InformationFlags flagset.Set[uint16, InfoFlag]
	Cylinders        uint32
	Heads            uint32
	SectorsPerTrack  uint32
	Sectors          uint64
	BytesPerSector   uint16

	// Nil when the respective optional record is absent.
	FixedDiskParameterTable *FixedDiskParameterTable
	DevicePathInformation   *DevicePathInformation
}

// DecodeDriveParameters validates and decodes a drive parameters buffer.
// Any structural violation aborts the decode; there is no partial result.
//
// The buffer layout, all little endian:
//
//	off 0  u16  buffer size (26 for EDD 1.0, 30 from 1.1 on)
//	off 2  u16  information flags
//	off 4  u32  cylinders
//	off 8  u32  heads
//	off 12 u32  sectors per track
//	off 16 u64  total sectors
//	off 24 u16  bytes per sector
//	off 26 u32  configuration parameters (seg:offset far pointer to FDPT)
//	off 30      optional device path information, announced by 0xBEDD
func DecodeDriveParameters(buf []byte, mem MemoryReader) (*DriveParameters, error) {
	if len(buf) < driveParametersSize {
		return nil, common.ParsingError(
			common.NotEnoughBytesFor("drive parameters"), common.FacilityDriveParameters)
	}

	bufferSize := binary.LittleEndian.Uint16(buf[0:2])
	if bufferSize != 26 && bufferSize != driveParametersSize {
		return nil, common.ParsingError(
			common.InvalidValueForField("buffer size", uint64(bufferSize)),
			common.FacilityDriveParameters)
	}

	p := &DriveParameters{
		BufferSize:       bufferSize,
		InformationFlags: InfoFlags.FromBits(binary.LittleEndian.Uint16(buf[2:4])),
		Cylinders:        binary.LittleEndian.Uint32(buf[4:8]),
		Heads:            binary.LittleEndian.Uint32(buf[8:12]),
		SectorsPerTrack:  binary.LittleEndian.Uint32(buf[12:16]),
		Sectors:          binary.LittleEndian.Uint64(buf[16:24]),
		BytesPerSector:   binary.LittleEndian.Uint16(buf[24:26]),
	}

	if p.InformationFlags.Has(InfoSuppliedGeometryValid) {
		if p.Cylinders == 0 {
			return nil, badField("cylinders", 0)
		}
		if p.Heads == 0 {
			return nil, badField("heads", 0)
		}
		if p.SectorsPerTrack == 0 {
			return nil, badField("sectors per track", 0)
		}
	}

	if p.BytesPerSector == 0 {
		return nil, badField("bytes per sector", 0)
	}

	// A removable drive must report both line change and locking support,
	// and only a removable drive may report an empty tray.
	if p.InformationFlags.Has(InfoRemovable) {
		if !p.InformationFlags.Has(InfoSupportsLineChange) {
			return nil, badField("information flags", uint64(p.InformationFlags.Bits()))
		}
		if !p.InformationFlags.Has(InfoLockable) {
			return nil, badField("information flags", uint64(p.InformationFlags.Bits()))
		}
	}
	if p.InformationFlags.Has(InfoNoMediaPresent) && !p.InformationFlags.Has(InfoRemovable) {
		return nil, badField("information flags", uint64(p.InformationFlags.Bits()))
	}

	fdptPtr := binary.LittleEndian.Uint32(buf[26:30])
	if mem != nil && fdptPtr != fdptAbsent && bufferSize == driveParametersSize {
		if err := p.ResolveFDPT(fdptPtr, mem); err != nil {
			return nil, err
		}
	}

	if len(buf) >= driveParametersSize+2 &&
		binary.LittleEndian.Uint16(buf[30:32]) == devicePathSignature {
		dpi, err := DecodeDevicePathInformation(buf[driveParametersSize:])
		if err != nil {
			return nil, err
		}
		p.DevicePathInformation = dpi
	}

	return p, nil
}

func badField(field string, raw uint64) error {
	return common.ParsingError(
		common.InvalidValueForField(field, raw), common.FacilityDriveParameters)
}

// ResolveFDPT follows the configuration parameters far pointer and decodes
// the fixed disk parameter table it addresses. The pointer is seg:offset
// with the offset in the low word; 0xFFFFFFFF means no table.
func (p *DriveParameters) ResolveFDPT(addr uint32, mem MemoryReader) error {
	if addr == fdptAbsent {
		return nil
	}
	// The pointer field only exists in the EDD 1.1 record.
	if p.BufferSize != driveParametersSize {
		return common.ParsingError(
			common.NotEnoughBytesFor("fixed disk parameter table"),
			common.FacilityFixedDiskParameterTable)
	}

	linear := (addr>>16)*16 + (addr & 0xffff)
	raw, err := mem.ReadBytes(linear, fdptSize)
	if err != nil || len(raw) < fdptSize {
		return common.NewError(
			common.NotEnoughBytesFor("fixed disk parameter table"),
			common.ContextIo, common.FacilityFixedDiskParameterTable)
	}

	fdpt, err := DecodeFixedDiskParameterTable(raw)
	if err != nil {
		return err
	}
	p.FixedDiskParameterTable = fdpt
	return nil
}

func (p *DriveParameters) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Drive Parameters:\n")
	fmt.Fprintf(&b, "  Buffer Size: %d\n", p.BufferSize)
	fmt.Fprintf(&b, "  Information Flags: %s\n", p.InformationFlags)
	fmt.Fprintf(&b, "  Cylinders: %d\n", p.Cylinders)
	fmt.Fprintf(&b, "  Heads: %d\n", p.Heads)
	fmt.Fprintf(&b, "  Sectors per Track: %d\n", p.SectorsPerTrack)
	fmt.Fprintf(&b, "  Total Sectors: %d\n", p.Sectors)
	fmt.Fprintf(&b, "  Bytes per Sector: %d\n", p.BytesPerSector)
	if p.FixedDiskParameterTable != nil {
		b.WriteString(p.FixedDiskParameterTable.String())
	} else {
		fmt.Fprintf(&b, "  Configuration Parameters: Not Present\n")
	}
	if p.DevicePathInformation != nil {
		b.WriteString(p.DevicePathInformation.String())
	} else {
		fmt.Fprintf(&b, "  Device Path Information: Not Present\n")
	}
	return b.String()
}
