package edd

import (
	"encoding/binary"
	"fmt"
	"strings"

	"bootinspect/internal/common"
	"bootinspect/internal/flagset"
)

// FixedDiskParameterTable is the translated FDPT a drive parameters buffer
// can point at through its configuration parameters field.
type FixedDiskParameterTable struct {
	IOPortBase          uint16
	ControlPortBase     uint16
	HeadPrefix          flagset.Set[uint8, HeadRegisterFlag]
	IRQ                 uint8
	SectorCount         uint8
	DMAChannel          uint8
	DMAType             uint8
	PIOType             uint8
	HardwareOptionFlags flagset.Set[uint16, HWOptionFlag]
	ExtensionRevision   uint8
	Checksum            uint8
}

// DecodeFixedDiskParameterTable validates and decodes a 16-byte FDPT.
//
//	off 0  u16 I/O port base
//	off 2  u16 control port base
//	off 4  u8  head register prefix
//	off 5  u8  BIOS internal
//	off 6  u8  IRQ (low nibble)
//	off 7  u8  sector count for multi-sector transfers
//	off 8  u8  DMA channel (low nibble) / DMA type (high nibble)
//	off 9  u8  PIO type (low nibble)
//	off 10 u16 hardware specific option flags
//	off 12 u16 unused
//	off 14 u8  extension revision
//	off 15 u8  checksum over the preceding 15 bytes
func DecodeFixedDiskParameterTable(buf []byte) (*FixedDiskParameterTable, error) {
	if len(buf) < fdptSize {
		return nil, common.ParsingError(
			common.NotEnoughBytesFor("fixed disk parameter table"),
			common.FacilityFixedDiskParameterTable)
	}

	var sum uint8
	for _, b := range buf[:fdptSize-1] {
		sum += b
	}
	if sum+buf[fdptSize-1] != 0 {
		return nil, badFDPTField("checksum", uint64(buf[fdptSize-1]))
	}

	if buf[14] != 0x11 {
		return nil, badFDPTField("extension revision", uint64(buf[14]))
	}

	// Bits 7/5 of the head prefix are fixed to 1/0 and the head number
	// nibble must be clear in the template byte.
	headPrefix := buf[4]
	if headPrefix&0b1000_1111 != 0b1000_0000 {
		return nil, badFDPTField("head prefix", uint64(headPrefix))
	}

	if buf[6]&0xf0 != 0 {
		return nil, badFDPTField("irq", uint64(buf[6]))
	}
	if buf[9]&0xf0 != 0 {
		return nil, badFDPTField("pio type", uint64(buf[9]))
	}

	hwFlags := HWOptionFlags.FromBits(binary.LittleEndian.Uint16(buf[10:12]))
	if hwFlags.Has(HWAtapi) && !hwFlags.Has(HWAtapiUsesInterruptDRQ) {
		return nil, badFDPTField("hardware specific option flags", uint64(hwFlags.Bits()))
	}
	// The translation type bits only mean anything with CHS translation on.
	if !hwFlags.Has(HWCHSTranslation) &&
		(hwFlags.Has(HWTranslationTypeFirstBit) || hwFlags.Has(HWTranslationTypeSecondBit)) {
		return nil, badFDPTField("hardware specific option flags", uint64(hwFlags.Bits()))
	}

	return &FixedDiskParameterTable{
		IOPortBase:          binary.LittleEndian.Uint16(buf[0:2]),
		ControlPortBase:     binary.LittleEndian.Uint16(buf[2:4]),
		HeadPrefix:          HeadRegisterFlags.FromBits(headPrefix),
		IRQ:                 buf[6],
		SectorCount:         buf[7],
		DMAChannel:          buf[8] & 0xf,
		DMAType:             buf[8] >> 4,
		PIOType:             buf[9],
		HardwareOptionFlags: hwFlags,
		ExtensionRevision:   buf[14],
		Checksum:            buf[15],
	}, nil
}

func badFDPTField(field string, raw uint64) error {
	return common.ParsingError(
		common.InvalidValueForField(field, raw), common.FacilityFixedDiskParameterTable)
}

func (t *FixedDiskParameterTable) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fixed Disk Parameter Table:\n")
	fmt.Fprintf(&b, "  I/O Port Base: %#X\n", t.IOPortBase)
	fmt.Fprintf(&b, "  Control Port Base: %#X\n", t.ControlPortBase)
	fmt.Fprintf(&b, "  Head Prefix: %s\n", t.HeadPrefix)
	fmt.Fprintf(&b, "  IRQ: %d\n", t.IRQ)
	fmt.Fprintf(&b, "  Sector Count: %d\n", t.SectorCount)
	fmt.Fprintf(&b, "  DMA Channel: %d\n", t.DMAChannel)
	fmt.Fprintf(&b, "  DMA Type: %d\n", t.DMAType)
	fmt.Fprintf(&b, "  PIO Type: %d\n", t.PIOType)
	fmt.Fprintf(&b, "  Hardware Specific Option Flags: %s\n", t.HardwareOptionFlags)
	fmt.Fprintf(&b, "  Extension Revision: %d\n", t.ExtensionRevision)
	fmt.Fprintf(&b, "  Checksum: %#X\n", t.Checksum)
	return b.String()
}
