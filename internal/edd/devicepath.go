package edd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"bootinspect/internal/common"
)

const devicePathSignature = 0xbedd

// HostBus tells which bus the drive controller sits on.
type HostBus interface {
	fmt.Stringer
	hostBus()
}

type PCIBus struct {
	Bus      uint8
	Slot     uint8
	Function uint8
}

func (PCIBus) hostBus() {}

func (b PCIBus) String() string {
	return fmt.Sprintf("PCI (Bus: %d, Slot: %d, Function: %d)", b.Bus, b.Slot, b.Function)
}

type ISABus struct {
	BaseAddress uint16
}

func (ISABus) hostBus() {}

func (b ISABus) String() string {
	return fmt.Sprintf("ISA (Base Address: %#X)", b.BaseAddress)
}

// Interface tells how the drive is attached to its controller.
type Interface interface {
	fmt.Stringer
	deviceInterface()
}

type ATA struct {
	Slave bool
}

func (ATA) deviceInterface() {}

func (i ATA) String() string {
	return fmt.Sprintf("ATA (Is Slave: %t)", i.Slave)
}

type ATAPI struct {
	Slave bool
	LUN   uint8
}

func (ATAPI) deviceInterface() {}

func (i ATAPI) String() string {
	return fmt.Sprintf("ATAPI (Is Slave: %t, LUN: %d)", i.Slave, i.LUN)
}

type SCSI struct {
	LUN uint8
}

func (SCSI) deviceInterface() {}

func (i SCSI) String() string {
	return fmt.Sprintf("SCSI (LUN: %d)", i.LUN)
}

type USB struct {
	TBD uint8
}

func (USB) deviceInterface() {}

func (i USB) String() string {
	return fmt.Sprintf("USB (TBD: %d)", i.TBD)
}

type IEEE1394 struct {
	GUID uint64
}

func (IEEE1394) deviceInterface() {}

func (i IEEE1394) String() string {
	return fmt.Sprintf("1394 (GUID: %#X)", i.GUID)
}

type Fibre struct {
	WWN uint8
}

func (Fibre) deviceInterface() {}

func (i Fibre) String() string {
	return fmt.Sprintf("FIBRE (WWN: %#X)", i.WWN)
}

// DevicePathInformation is the EDD 3.0 extension telling where the drive
// physically lives.
type DevicePathInformation struct {
	HostBus   HostBus
	Interface Interface
}

// DecodeDevicePathInformation validates and decodes a 36-byte device path
// record.
//
//	off 0  u16   signature 0xBEDD
//	off 2  u8    length, always 36
//	off 3        3 reserved bytes
//	off 6  [4]u8 host bus type tag
//	off 10 [8]u8 interface type tag
//	off 18 [8]u8 interface path (host bus specific)
//	off 26 [8]u8 device path (interface specific)
//	off 34 u8    reserved
//	off 35 u8    checksum over the preceding 35 bytes
func DecodeDevicePathInformation(buf []byte) (*DevicePathInformation, error) {
	if len(buf) < devicePathSize {
		return nil, common.ParsingError(
			common.NotEnoughBytesFor("device path information"),
			common.FacilityDevicePathInformation)
	}

	if sig := binary.LittleEndian.Uint16(buf[0:2]); sig != devicePathSignature {
		return nil, badPathField("bedd", uint64(sig))
	}

	if buf[3] != 0 || buf[4] != 0 || buf[5] != 0 || buf[34] != 0 {
		return nil, common.ParsingError(
			common.InvalidValuesForReservedBits("reserved"),
			common.FacilityDevicePathInformation)
	}

	if buf[2] != devicePathSize {
		return nil, badPathField("length", uint64(buf[2]))
	}

	var sum uint8
	for _, b := range buf[:devicePathSize-1] {
		sum += b
	}
	if sum+buf[devicePathSize-1] != 0 {
		return nil, badPathField("checksum", uint64(buf[devicePathSize-1]))
	}

	hostBus, err := decodeHostBus(buf[6:10], buf[18:26])
	if err != nil {
		return nil, err
	}
	iface, err := decodeInterface(buf[10:18], buf[26:34])
	if err != nil {
		return nil, err
	}

	return &DevicePathInformation{HostBus: hostBus, Interface: iface}, nil
}

func decodeHostBus(tag, path []byte) (HostBus, error) {
	switch {
	case bytes.HasPrefix(tag, []byte("PCI")):
		if !allZero(path[3:]) {
			return nil, reservedPathBytes("PCI interface path")
		}
		return PCIBus{Bus: path[0], Slot: path[1], Function: path[2]}, nil

	case bytes.HasPrefix(tag, []byte("ISA")):
		if !allZero(path[2:]) {
			return nil, reservedPathBytes("ISA interface path")
		}
		return ISABus{BaseAddress: binary.LittleEndian.Uint16(path[0:2])}, nil
	}
	return nil, badPathField("host bus type", uint64(binary.LittleEndian.Uint32(tag)))
}

func decodeInterface(tag, path []byte) (Interface, error) {
	switch {
	// ATAPI before ATA, the shorter tag is a prefix of the longer one.
	case bytes.HasPrefix(tag, []byte("ATAPI")):
		if !allZero(path[2:]) {
			return nil, reservedPathBytes("ATAPI device path")
		}
		return ATAPI{Slave: path[0] == 1, LUN: path[1]}, nil

	case bytes.HasPrefix(tag, []byte("ATA")):
		if !allZero(path[1:]) {
			return nil, reservedPathBytes("ATA device path")
		}
		return ATA{Slave: path[0] == 1}, nil

	case bytes.HasPrefix(tag, []byte("SCSI")):
		if !allZero(path[1:]) {
			return nil, reservedPathBytes("SCSI device path")
		}
		return SCSI{LUN: path[0]}, nil

	case bytes.HasPrefix(tag, []byte("USB")):
		if !allZero(path[1:]) {
			return nil, reservedPathBytes("USB device path")
		}
		return USB{TBD: path[0]}, nil

	case bytes.HasPrefix(tag, []byte("1394")):
		return IEEE1394{GUID: binary.LittleEndian.Uint64(path)}, nil

	case bytes.HasPrefix(tag, []byte("FIBRE")):
		return Fibre{WWN: path[0]}, nil
	}
	return nil, badPathField("interface type", uint64(binary.LittleEndian.Uint64(tag)))
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func badPathField(field string, raw uint64) error {
	return common.ParsingError(
		common.InvalidValueForField(field, raw), common.FacilityDevicePathInformation)
}

func reservedPathBytes(field string) error {
	return common.ParsingError(
		common.InvalidValuesForReservedBits(field), common.FacilityDevicePathInformation)
}

func (d *DevicePathInformation) String() string {
	var b strings.Builder
	b.WriteString("Device Path Information:\n")
	fmt.Fprintf(&b, "  Host Bus: %s\n", d.HostBus)
	fmt.Fprintf(&b, "  Interface: %s\n", d.Interface)
	return b.String()
}
