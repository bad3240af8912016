package elf

import (
	"encoding/binary"
	"fmt"
	"strings"

	"bootinspect/internal/common"
	"bootinspect/internal/flagset"
)

const (
	elf32ProgramEntrySize = 32
	elf64ProgramEntrySize = 56
)

// ProgramType is the program header entry type word. The named values sit
// below 8; everything from there up belongs to the OS-specific or the
// processor-specific range and is valid but opaque.
type ProgramType uint32

const (
	ProgramNull               ProgramType = 0
	ProgramLoad               ProgramType = 1
	ProgramDynamic            ProgramType = 2
	ProgramInterpreter        ProgramType = 3
	ProgramNote               ProgramType = 4
	ProgramSharedLibrary      ProgramType = 5
	ProgramProgramHeader      ProgramType = 6
	ProgramThreadLocalStorage ProgramType = 7

	programOsSpecificLo ProgramType = 8
	programProcessorLo  ProgramType = 0x60000000
)

// OsSpecific reports whether the type falls in the OS-specific range.
func (t ProgramType) OsSpecific() bool {
	return t >= programOsSpecificLo && t < programProcessorLo
}

// ProcessorSpecific reports whether the type falls in the
// processor-specific range.
func (t ProgramType) ProcessorSpecific() bool {
	return t >= programProcessorLo
}

func (t ProgramType) String() string {
	switch t {
	case ProgramNull:
		return "NULL"
	case ProgramLoad:
		return "LOAD"
	case ProgramDynamic:
		return "DYNAMIC"
	case ProgramInterpreter:
		return "INTERP"
	case ProgramNote:
		return "NOTE"
	case ProgramSharedLibrary:
		return "SHLIB"
	case ProgramProgramHeader:
		return "PHDR"
	case ProgramThreadLocalStorage:
		return "TLS"
	}
	if t.OsSpecific() {
		return fmt.Sprintf("OS-SPECIFIC(%#x)", uint32(t))
	}
	return fmt.Sprintf("PROCESSOR-SPECIFIC(%#x)", uint32(t))
}

// ProgramFlag is one of the three segment permission bits.
type ProgramFlag uint32

const (
	SegmentExecutable ProgramFlag = 0x1
	SegmentWritable   ProgramFlag = 0x2
	SegmentReadable   ProgramFlag = 0x4
)

func (f ProgramFlag) String() string {
	switch f {
	case SegmentExecutable:
		return "EXECUTABLE"
	case SegmentWritable:
		return "WRITABLE"
	case SegmentReadable:
		return "READABLE"
	}
	return "UNKNOWN"
}

var ProgramFlags = flagset.NewType[uint32, ProgramFlag](func(bit int) bool { return bit > 2 })

// ProgramHeaderEntry describes one segment. Narrow 32-bit class fields are
// widened to uint64.
type ProgramHeaderEntry struct {
	Type            ProgramType
	Flags           flagset.Set[uint32, ProgramFlag]
	Offset          uint64
	VirtualAddress  uint64
	PhysicalAddress uint64
	FileSize        uint64
	MemorySize      uint64
	Alignment       uint64
}

// The two classes order their fields differently: the 32-bit layout keeps
// the flags word next to the alignment, the 64-bit layout moves it up
// behind the type word.
func decodeProgramHeaderEntry(buf []byte, class Class, fac common.Facility) (*ProgramHeaderEntry, error) {
	if len(buf) < class.programEntrySize() {
		return nil, common.ParsingError(common.NotEnoughBytesFor("program header entry"), fac)
	}

	e := &ProgramHeaderEntry{Type: ProgramType(binary.LittleEndian.Uint32(buf[0:4]))}
	if class == ClassElf32 {
		e.Offset = uint64(binary.LittleEndian.Uint32(buf[4:8]))
		e.VirtualAddress = uint64(binary.LittleEndian.Uint32(buf[8:12]))
		e.PhysicalAddress = uint64(binary.LittleEndian.Uint32(buf[12:16]))
		e.FileSize = uint64(binary.LittleEndian.Uint32(buf[16:20]))
		e.MemorySize = uint64(binary.LittleEndian.Uint32(buf[20:24]))
		e.Flags = ProgramFlags.FromBits(binary.LittleEndian.Uint32(buf[24:28]))
		e.Alignment = uint64(binary.LittleEndian.Uint32(buf[28:32]))
	} else {
		e.Flags = ProgramFlags.FromBits(binary.LittleEndian.Uint32(buf[4:8]))
		e.Offset = binary.LittleEndian.Uint64(buf[8:16])
		e.VirtualAddress = binary.LittleEndian.Uint64(buf[16:24])
		e.PhysicalAddress = binary.LittleEndian.Uint64(buf[24:32])
		e.FileSize = binary.LittleEndian.Uint64(buf[32:40])
		e.MemorySize = binary.LittleEndian.Uint64(buf[40:48])
		e.Alignment = binary.LittleEndian.Uint64(buf[48:56])
	}

	return e, nil
}

func (e *ProgramHeaderEntry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\n", e.Type)
	fmt.Fprintf(&b, "Offset: %#x\n", e.Offset)
	fmt.Fprintf(&b, "Virtual Address: %#x\n", e.VirtualAddress)
	fmt.Fprintf(&b, "Physical Address: %#x\n", e.PhysicalAddress)
	fmt.Fprintf(&b, "Size on file: %d\n", e.FileSize)
	fmt.Fprintf(&b, "Size in memory: %d\n", e.MemorySize)
	fmt.Fprintf(&b, "Flags: %s\n", e.Flags)
	fmt.Fprintf(&b, "Address Alignment: %#x\n", e.Alignment)
	return b.String()
}
