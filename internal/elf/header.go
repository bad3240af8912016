// Package elf decodes ELF executables the way a loader needs them: a
// validated header, lazy iterators over the program and section header
// tables, byte-range access to segments and random access to sections.
// Both the 32- and the 64-bit class decode into the same accessor surface,
// with every narrow field widened to uint64.
//
// https://refspecs.linuxfoundation.org/elf/gabi4+/ch4.eheader.html
package elf

import (
	"encoding/binary"
	"fmt"
	"strings"

	"bootinspect/internal/common"
)

// Class selects the field widths used throughout the file.
type Class uint8

const (
	ClassElf32 Class = 1
	ClassElf64 Class = 2
)

func (c Class) String() string {
	switch c {
	case ClassElf32:
		return "ELF32"
	case ClassElf64:
		return "ELF64"
	}
	return "UNKNOWN"
}

func (c Class) headerSize() int {
	if c == ClassElf32 {
		return 52
	}
	return 64
}

func (c Class) programEntrySize() int {
	if c == ClassElf32 {
		return elf32ProgramEntrySize
	}
	return elf64ProgramEntrySize
}

func (c Class) sectionEntrySize() int {
	if c == ClassElf32 {
		return elf32SectionEntrySize
	}
	return elf64SectionEntrySize
}

const (
	encodingLittleEndian = 1
	encodingBigEndian    = 2

	identifierSize = 16
)

var elfMagic = [4]byte{0x7f, 'E', 'L', 'F'}

// ObjectType is the file type halfword. Values 0xFE00..0xFFFF are reserved
// for OS and processor specific types and decode as valid but opaque.
type ObjectType uint16

const (
	TypeNone        ObjectType = 0
	TypeRelocatable ObjectType = 1
	TypeExecutable  ObjectType = 2
	TypeDynamic     ObjectType = 3
	TypeCore        ObjectType = 4
)

func validObjectType(v uint16) bool {
	return v <= 4 || v >= 0xfe00
}

func (t ObjectType) String() string {
	switch t {
	case TypeNone:
		return "NONE (No file type)"
	case TypeRelocatable:
		return "REL (Relocatable file)"
	case TypeExecutable:
		return "EXEC (Executable file)"
	case TypeDynamic:
		return "DYN (Shared object file)"
	case TypeCore:
		return "CORE (Core file)"
	}
	switch {
	case t >= 0xfe00 && t <= 0xfeff:
		return fmt.Sprintf("OS-SPECIFIC(%#x)", uint16(t))
	case t >= 0xff00:
		return fmt.Sprintf("PROCESSOR-SPECIFIC(%#x)", uint16(t))
	}
	return fmt.Sprintf("INVALID(%#x)", uint16(t))
}

// Machine is the target architecture halfword. Only the values this tool
// routinely meets get names; everything else renders numerically.
type Machine uint16

const (
	MachineNone   Machine = 0
	MachineSparc  Machine = 2
	MachineI386   Machine = 3
	MachineMips   Machine = 8
	MachinePpc    Machine = 20
	MachineArm    Machine = 40
	MachineX86_64 Machine = 62
	MachineArm64  Machine = 183
	MachineRiscV  Machine = 243
)

func (m Machine) String() string {
	switch m {
	case MachineNone:
		return "None"
	case MachineSparc:
		return "SPARC"
	case MachineI386:
		return "Intel 80386"
	case MachineMips:
		return "MIPS"
	case MachinePpc:
		return "PowerPC"
	case MachineArm:
		return "ARM"
	case MachineX86_64:
		return "x86-64"
	case MachineArm64:
		return "AArch64"
	case MachineRiscV:
		return "RISC-V"
	}
	return fmt.Sprintf("MACHINE(%#x)", uint16(m))
}

// Header is a validated ELF header. Offsets and the entrypoint are widened
// to uint64 regardless of class.
type Header struct {
	Class               Class
	Type                ObjectType
	Machine             Machine
	Entrypoint          uint64
	ProgramHeaderOffset uint64
	SectionHeaderOffset uint64
	Flags               uint32

	Size                   uint16
	ProgramHeaderEntrySize uint16
	ProgramHeaderEntries   uint16
	SectionHeaderEntrySize uint16
	SectionHeaderEntries   uint16
	StringTableIndex       uint16
}

// DecodeHeader validates and decodes an ELF header from the start of buf.
// Only little-endian files are supported.
func DecodeHeader(buf []byte) (*Header, error) {
	if len(buf) < identifierSize {
		return nil, headerError(common.NotEnoughBytesFor("ELF identifier"))
	}

	if [4]byte(buf[0:4]) != elfMagic {
		return nil, headerError(
			common.InvalidValueForField("magic", uint64(binary.LittleEndian.Uint32(buf[0:4]))))
	}

	class := Class(buf[4])
	if class != ClassElf32 && class != ClassElf64 {
		return nil, headerError(common.InvalidValueForField("class", uint64(buf[4])))
	}

	switch buf[5] {
	case encodingLittleEndian:
	case encodingBigEndian:
		return nil, headerError(common.UnsupportedEndianness())
	default:
		return nil, headerError(common.InvalidValueForField("encoding", uint64(buf[5])))
	}

	if len(buf) < class.headerSize() {
		return nil, headerError(common.NotEnoughBytesFor("ELF header"))
	}

	h := &Header{
		Class:   class,
		Type:    ObjectType(binary.LittleEndian.Uint16(buf[16:18])),
		Machine: Machine(binary.LittleEndian.Uint16(buf[18:20])),
	}

	if !validObjectType(uint16(h.Type)) {
		return nil, headerError(common.InvalidValueForField("type", uint64(h.Type)))
	}

	if version := binary.LittleEndian.Uint32(buf[20:24]); version != 1 {
		return nil, headerError(common.InvalidValueForField("version", uint64(version)))
	}

	var rest []byte
	if class == ClassElf32 {
		h.Entrypoint = uint64(binary.LittleEndian.Uint32(buf[24:28]))
		h.ProgramHeaderOffset = uint64(binary.LittleEndian.Uint32(buf[28:32]))
		h.SectionHeaderOffset = uint64(binary.LittleEndian.Uint32(buf[32:36]))
		rest = buf[36:]
	} else {
		h.Entrypoint = binary.LittleEndian.Uint64(buf[24:32])
		h.ProgramHeaderOffset = binary.LittleEndian.Uint64(buf[32:40])
		h.SectionHeaderOffset = binary.LittleEndian.Uint64(buf[40:48])
		rest = buf[48:]
	}

	h.Flags = binary.LittleEndian.Uint32(rest[0:4])
	h.Size = binary.LittleEndian.Uint16(rest[4:6])
	h.ProgramHeaderEntrySize = binary.LittleEndian.Uint16(rest[6:8])
	h.ProgramHeaderEntries = binary.LittleEndian.Uint16(rest[8:10])
	h.SectionHeaderEntrySize = binary.LittleEndian.Uint16(rest[10:12])
	h.SectionHeaderEntries = binary.LittleEndian.Uint16(rest[12:14])
	h.StringTableIndex = binary.LittleEndian.Uint16(rest[14:16])

	if int(h.Size) != class.headerSize() {
		return nil, headerError(common.InvalidValueForField("size", uint64(h.Size)))
	}
	if int(h.ProgramHeaderEntrySize) != class.programEntrySize() {
		return nil, headerError(
			common.InvalidValueForField("phentsize", uint64(h.ProgramHeaderEntrySize)))
	}
	if int(h.SectionHeaderEntrySize) != class.sectionEntrySize() {
		return nil, headerError(
			common.InvalidValueForField("shentsize", uint64(h.SectionHeaderEntrySize)))
	}

	return h, nil
}

func headerError(fault common.Fault) error {
	return common.ParsingError(fault, common.FacilityElfHeader)
}

func (h *Header) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Class: %s\n", h.Class)
	fmt.Fprintf(&b, "File type: %s\n", h.Type)
	fmt.Fprintf(&b, "Machine: %s\n", h.Machine)
	fmt.Fprintf(&b, "Entrypoint: %#x\n", h.Entrypoint)
	fmt.Fprintf(&b, "Header size: %d\n", h.Size)
	fmt.Fprintf(&b, "Program header offset: %d\n", h.ProgramHeaderOffset)
	fmt.Fprintf(&b, "Program header entries: %d\n", h.ProgramHeaderEntries)
	fmt.Fprintf(&b, "Program header entry size: %d\n", h.ProgramHeaderEntrySize)
	fmt.Fprintf(&b, "Section header offset: %d\n", h.SectionHeaderOffset)
	fmt.Fprintf(&b, "Section header entries: %d\n", h.SectionHeaderEntries)
	fmt.Fprintf(&b, "Section header entry size: %d\n", h.SectionHeaderEntrySize)
	fmt.Fprintf(&b, "String table index: %d\n", h.StringTableIndex)
	return b.String()
}
