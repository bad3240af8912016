package elf

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	"bootinspect/internal/common"
	"bootinspect/internal/flagset"
)

const (
	elf32SectionEntrySize = 40
	elf64SectionEntrySize = 64
)

// SectionType is the section header entry type word. Unlike program header
// types the value space has gaps: 12, 13 and everything between 19 and the
// OS-specific range is invalid.
type SectionType uint32

const (
	SectionNull         SectionType = 0
	SectionProgbits     SectionType = 1
	SectionSymtab       SectionType = 2
	SectionStrtab       SectionType = 3
	SectionRela         SectionType = 4
	SectionHash         SectionType = 5
	SectionDynamic      SectionType = 6
	SectionNote         SectionType = 7
	SectionNoBits       SectionType = 8
	SectionRel          SectionType = 9
	SectionShlib        SectionType = 10
	SectionDynSym       SectionType = 11
	SectionInitArray    SectionType = 14
	SectionFiniArray    SectionType = 15
	SectionPreinitArray SectionType = 16
	SectionGroup        SectionType = 17
	SectionSymtabIndex  SectionType = 18

	sectionOsSpecificLo SectionType = 0x60000000
	sectionProcessorLo  SectionType = 0x70000000
	sectionUserLo       SectionType = 0x80000000
)

func validSectionType(v uint32) bool {
	switch {
	case v <= 18:
		return v != 12 && v != 13
	case v >= uint32(sectionOsSpecificLo):
		return true
	}
	return false
}

func (t SectionType) OsSpecific() bool {
	return t >= sectionOsSpecificLo && t < sectionProcessorLo
}

func (t SectionType) ProcessorSpecific() bool {
	return t >= sectionProcessorLo && t < sectionUserLo
}

func (t SectionType) UserSpecific() bool {
	return t >= sectionUserLo
}

func (t SectionType) String() string {
	switch t {
	case SectionNull:
		return "NULL"
	case SectionProgbits:
		return "PROGBITS"
	case SectionSymtab:
		return "SYMTAB"
	case SectionStrtab:
		return "STRTAB"
	case SectionRela:
		return "RELA"
	case SectionHash:
		return "HASH"
	case SectionDynamic:
		return "DYNAMIC"
	case SectionNote:
		return "NOTE"
	case SectionNoBits:
		return "NOBITS"
	case SectionRel:
		return "REL"
	case SectionShlib:
		return "SHLIB"
	case SectionDynSym:
		return "DYNSYM"
	case SectionInitArray:
		return "INIT_ARRAY"
	case SectionFiniArray:
		return "FINI_ARRAY"
	case SectionPreinitArray:
		return "PREINIT_ARRAY"
	case SectionGroup:
		return "GROUP"
	case SectionSymtabIndex:
		return "SYMTAB_INDEX"
	}
	switch {
	case t.OsSpecific():
		return fmt.Sprintf("OS_SPECIFIC(%#x)", uint32(t))
	case t.ProcessorSpecific():
		return fmt.Sprintf("PROCESSOR_SPECIFIC(%#x)", uint32(t))
	case t.UserSpecific():
		return fmt.Sprintf("USER_SPECIFIC(%#x)", uint32(t))
	}
	return fmt.Sprintf("INVALID(%#x)", uint32(t))
}

// SectionFlag is one bit of the section flags word. The word is 32 bits
// wide in the 32-bit class and 64 bits wide in the 64-bit class; both
// widen into the same uint64 set.
type SectionFlag uint64

const (
	SectionWriteable              SectionFlag = 0x1
	SectionAllocated              SectionFlag = 0x2
	SectionExecutableInstructions SectionFlag = 0x4
	SectionMerge                  SectionFlag = 0x10
	SectionStrings                SectionFlag = 0x20
	SectionInfoLink               SectionFlag = 0x40
	SectionLinkOrder              SectionFlag = 0x80
	SectionOsNonconforming        SectionFlag = 0x100
	SectionInGroup                SectionFlag = 0x200
	SectionTls                    SectionFlag = 0x400
)

func (f SectionFlag) String() string {
	switch f {
	case SectionWriteable:
		return "WRITEABLE"
	case SectionAllocated:
		return "ALLOCATED"
	case SectionExecutableInstructions:
		return "EXECUTABLE_INSTRUCTIONS"
	case SectionMerge:
		return "MERGE"
	case SectionStrings:
		return "STRINGS"
	case SectionInfoLink:
		return "INFO_LINK"
	case SectionLinkOrder:
		return "LINK_ORDER"
	case SectionOsNonconforming:
		return "OS_NONCONFORMING"
	case SectionInGroup:
		return "IN_GROUP"
	case SectionTls:
		return "TLS"
	}
	return "UNKNOWN"
}

// Bit 3 is unassigned and everything above TLS is reserved.
var SectionFlags = flagset.NewType[uint64, SectionFlag](func(bit int) bool {
	return bit == 3 || bit > 10
})

// SectionHeaderEntry describes one section. Narrow 32-bit class fields are
// widened to uint64.
type SectionHeaderEntry struct {
	NameIndex        uint32
	Type             SectionType
	Flags            flagset.Set[uint64, SectionFlag]
	Address          uint64
	Offset           uint64
	Size             uint64
	Link             uint32
	Info             uint32
	AddressAlignment uint64
	EntrySize        uint64
}

func decodeSectionHeaderEntry(buf []byte, class Class, fac common.Facility) (*SectionHeaderEntry, error) {
	if len(buf) < class.sectionEntrySize() {
		return nil, common.ParsingError(common.NotEnoughBytesFor("section header entry"), fac)
	}

	e := &SectionHeaderEntry{
		NameIndex: binary.LittleEndian.Uint32(buf[0:4]),
		Type:      SectionType(binary.LittleEndian.Uint32(buf[4:8])),
	}
	if !validSectionType(uint32(e.Type)) {
		return nil, common.ParsingError(
			common.InvalidValueForField("type", uint64(e.Type)), fac)
	}

	if class == ClassElf32 {
		e.Flags = SectionFlags.FromBits(uint64(binary.LittleEndian.Uint32(buf[8:12])))
		e.Address = uint64(binary.LittleEndian.Uint32(buf[12:16]))
		e.Offset = uint64(binary.LittleEndian.Uint32(buf[16:20]))
		e.Size = uint64(binary.LittleEndian.Uint32(buf[20:24]))
		e.Link = binary.LittleEndian.Uint32(buf[24:28])
		e.Info = binary.LittleEndian.Uint32(buf[28:32])
		e.AddressAlignment = uint64(binary.LittleEndian.Uint32(buf[32:36]))
		e.EntrySize = uint64(binary.LittleEndian.Uint32(buf[36:40]))
	} else {
		e.Flags = SectionFlags.FromBits(binary.LittleEndian.Uint64(buf[8:16]))
		e.Address = binary.LittleEndian.Uint64(buf[16:24])
		e.Offset = binary.LittleEndian.Uint64(buf[24:32])
		e.Size = binary.LittleEndian.Uint64(buf[32:40])
		e.Link = binary.LittleEndian.Uint32(buf[40:44])
		e.Info = binary.LittleEndian.Uint32(buf[44:48])
		e.AddressAlignment = binary.LittleEndian.Uint64(buf[48:56])
		e.EntrySize = binary.LittleEndian.Uint64(buf[56:64])
	}

	return e, nil
}

func (e *SectionHeaderEntry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name index: %d\n", e.NameIndex)
	fmt.Fprintf(&b, "Type: %s\n", e.Type)
	fmt.Fprintf(&b, "Address: %#x\n", e.Address)
	fmt.Fprintf(&b, "Offset: %#x\n", e.Offset)
	fmt.Fprintf(&b, "Address Alignment: %#x\n", e.AddressAlignment)
	fmt.Fprintf(&b, "Size: %d\n", e.Size)
	fmt.Fprintf(&b, "Flags: %s\n", e.Flags)
	return b.String()
}

// Section is a typed view over a section's payload bytes. Only string
// tables materialize today; requesting any other kind is a typed error,
// never a silent fallback.
type Section interface {
	section()
}

// materialize turns a header entry plus its payload into a Section view.
func (e *SectionHeaderEntry) materialize(data []byte, fac common.Facility) (Section, error) {
	if e.Type == SectionStrtab {
		return StringTable{data: data}, nil
	}
	return nil, common.ParsingError(common.UnsupportedSectionKind(e.Type.String()), fac)
}

// StringTable is a NUL-delimited string pool section.
type StringTable struct {
	data []byte
}

func (StringTable) section() {}

// Lookup returns the NUL-terminated string starting at index. ok is false
// when the index is out of range or no terminator follows it; the error
// reports bytes that are not valid UTF-8.
func (t StringTable) Lookup(index int) (string, bool, error) {
	if index < 0 || index >= len(t.data) {
		return "", false, nil
	}

	end := index
	for end < len(t.data) && t.data[end] != 0 {
		end++
	}
	if end == len(t.data) {
		return "", false, nil
	}

	raw := t.data[index:end]
	if !utf8.Valid(raw) {
		return "", false, common.ParsingError(
			common.InvalidValueForType("utf-8 string", uint64(index)),
			common.FacilityElfSectionHeader)
	}
	return string(raw), true, nil
}
