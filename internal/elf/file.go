package elf

import (
	"bootinspect/internal/common"
)

// File is a whole ELF image with a validated header. Table positions are
// re-derived from the header on every access instead of being cached.
type File struct {
	bytes  []byte
	header *Header
}

// NewFile validates the header and checks that both header tables fit the
// buffer in full. No entry past the buffer boundary is ever read.
func NewFile(buf []byte) (*File, error) {
	header, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}

	// An empty table reads nothing, so its offset is allowed to point
	// anywhere, including past the end of the buffer.
	size := uint64(len(buf))
	sectionTable := uint64(header.SectionHeaderEntrySize) * uint64(header.SectionHeaderEntries)
	if sectionTable > 0 &&
		(size < header.SectionHeaderOffset || size-header.SectionHeaderOffset < sectionTable) {
		return nil, common.ParsingError(
			common.NotEnoughBytesFor("section header"), common.FacilityElfFile)
	}

	programTable := uint64(header.ProgramHeaderEntrySize) * uint64(header.ProgramHeaderEntries)
	if programTable > 0 &&
		(size < header.ProgramHeaderOffset || size-header.ProgramHeaderOffset < programTable) {
		return nil, common.ParsingError(
			common.NotEnoughBytesFor("program header"), common.FacilityElfFile)
	}

	return &File{bytes: buf, header: header}, nil
}

func (f *File) Header() *Header {
	return f.header
}

// ProgramHeaders returns a fresh iterator over the program header table.
func (f *File) ProgramHeaders() *ProgramHeaderIter {
	var table []byte
	if f.header.ProgramHeaderEntries > 0 {
		table = f.bytes[f.header.ProgramHeaderOffset:]
	}
	return &ProgramHeaderIter{
		bytes: table,
		class: f.header.Class,
		count: int(f.header.ProgramHeaderEntries),
		index: -1,
	}
}

// Sections returns a fresh iterator over the section header table.
func (f *File) Sections() *SectionHeaderIter {
	var table []byte
	if f.header.SectionHeaderEntries > 0 {
		table = f.bytes[f.header.SectionHeaderOffset:]
	}
	return &SectionHeaderIter{
		bytes: table,
		class: f.header.Class,
		count: int(f.header.SectionHeaderEntries),
		index: -1,
	}
}

// SectionAt materializes the section at index into a typed view. ok is
// false when the index is out of range or the entry's payload range falls
// outside the file.
func (f *File) SectionAt(index int) (Section, bool, error) {
	if index < 0 || index >= int(f.header.SectionHeaderEntries) {
		return nil, false, nil
	}

	fac := common.FacilitySectionHeaderEntry(uint16(index))
	offset := f.header.SectionHeaderOffset + uint64(index)*uint64(f.header.SectionHeaderEntrySize)
	entry, err := decodeSectionHeaderEntry(f.bytes[offset:], f.header.Class, fac)
	if err != nil {
		return nil, false, err
	}

	if entry.Offset > uint64(len(f.bytes)) || entry.Size > uint64(len(f.bytes))-entry.Offset {
		return nil, false, nil
	}
	data := f.bytes[entry.Offset : entry.Offset+entry.Size]

	sec, err := entry.materialize(data, fac)
	if err != nil {
		return nil, false, err
	}
	return sec, true, nil
}

// Segment returns the file-backed byte range [offset, offset+filesize) of
// a program header entry, or ok=false when the range exceeds the buffer.
func (f *File) Segment(e *ProgramHeaderEntry) ([]byte, bool) {
	if e.Offset > uint64(len(f.bytes)) || e.FileSize > uint64(len(f.bytes))-e.Offset {
		return nil, false
	}
	return f.bytes[e.Offset : e.Offset+e.FileSize], true
}

// ProgramHeaderIter walks the program header table one entry per step. A
// malformed entry yields an error for that entry only; iteration keeps
// going until exactly the header's entry count has been produced.
type ProgramHeaderIter struct {
	bytes []byte
	class Class
	count int
	index int
}

// Next advances the iterator. It returns false once the table is done.
func (it *ProgramHeaderIter) Next() bool {
	it.index++
	return it.index < it.count
}

// Entry decodes the current entry. Calling it outside a successful Next
// yields an error, not a panic.
func (it *ProgramHeaderIter) Entry() (*ProgramHeaderEntry, error) {
	if it.index < 0 || it.index >= it.count {
		return nil, common.ParsingError(
			common.NotEnoughBytesFor("program header entry"), common.FacilityElfProgramHeader)
	}
	offset := it.index * it.class.programEntrySize()
	return decodeProgramHeaderEntry(
		it.bytes[offset:], it.class, common.FacilityProgramHeaderEntry(uint16(it.index)))
}

// SectionHeaderIter walks the section header table the same way.
type SectionHeaderIter struct {
	bytes []byte
	class Class
	count int
	index int
}

func (it *SectionHeaderIter) Next() bool {
	it.index++
	return it.index < it.count
}

func (it *SectionHeaderIter) Entry() (*SectionHeaderEntry, error) {
	if it.index < 0 || it.index >= it.count {
		return nil, common.ParsingError(
			common.NotEnoughBytesFor("section header entry"), common.FacilityElfSectionHeader)
	}
	offset := it.index * it.class.sectionEntrySize()
	return decodeSectionHeaderEntry(
		it.bytes[offset:], it.class, common.FacilitySectionHeaderEntry(uint16(it.index)))
}
