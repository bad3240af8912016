package common

// Error taxonomy shared by the EDD and ELF decoders. Every failure carries
// what happened (Fault), what the caller was doing (Context) and which
// sub-decoder produced it (Facility). Decoders never recover internally;
// the first violation aborts the decode and surfaces here.

import (
	"errors"
	"fmt"
)

// FaultKind is the closed set of failure kinds.
type FaultKind int

const (
	FaultNone FaultKind = iota
	FaultInvalidValueForField
	FaultInvalidValuesForReservedBits
	FaultUnsupportedEndianness
	FaultInvalidValueForType
	FaultInvalidSizeForType
	FaultInvalidAddressForType
	FaultNotEnoughBytesFor
	FaultUnsupportedSectionKind
)

// Fault is one concrete failure. Only the fields relevant to Kind are set.
type Fault struct {
	Kind FaultKind

	Field    string // offending field, for field-level kinds
	Value    uint64 // raw value that failed validation
	Resource string // what the buffer was too short for
	TypeName string // destination record type, for conversion kinds
	Size     int    // actual size, for FaultInvalidSizeForType
	Address  uint64 // for FaultInvalidAddressForType
}

func (f Fault) String() string {
	switch f.Kind {
	case FaultInvalidValueForField:
		return fmt.Sprintf("invalid value %#x for field %q", f.Value, f.Field)
	case FaultInvalidValuesForReservedBits:
		return fmt.Sprintf("nonzero reserved bits in %q", f.Field)
	case FaultUnsupportedEndianness:
		return "unsupported endianness (big endian)"
	case FaultInvalidValueForType:
		return fmt.Sprintf("invalid value %#x for type %s", f.Value, f.TypeName)
	case FaultInvalidSizeForType:
		return fmt.Sprintf("incorrect size %d for type %s", f.Size, f.TypeName)
	case FaultInvalidAddressForType:
		return fmt.Sprintf("incorrect address %#x for type %s", f.Address, f.TypeName)
	case FaultNotEnoughBytesFor:
		return fmt.Sprintf("not enough bytes for %q", f.Resource)
	case FaultUnsupportedSectionKind:
		return fmt.Sprintf("unsupported section kind %q", f.Field)
	default:
		return "none"
	}
}

// Context tags what the caller was doing when the error happened. Decoder
// errors are always Parsing; the remaining values belong to the tool layer.
type Context int

const (
	ContextNone Context = iota
	ContextParsing
	ContextLoading
	ContextIo
)

func (c Context) String() string {
	switch c {
	case ContextParsing:
		return "parsing"
	case ContextLoading:
		return "loading"
	case ContextIo:
		return "I/O"
	default:
		return "none"
	}
}

// Facility identifies the sub-decoder that produced an error. Table-element
// facilities carry the entry index.
type Facility struct {
	kind  facilityKind
	index uint16
}

type facilityKind int

const (
	facNone facilityKind = iota
	facDriveParameters
	facFixedDiskParameterTable
	facDevicePathInformation
	facElfFile
	facElfHeader
	facElfSectionHeader
	facElfProgramHeader
	facElfSectionHeaderEntry
	facElfProgramHeaderEntry
)

var (
	FacilityNone                    = Facility{kind: facNone}
	FacilityDriveParameters         = Facility{kind: facDriveParameters}
	FacilityFixedDiskParameterTable = Facility{kind: facFixedDiskParameterTable}
	FacilityDevicePathInformation   = Facility{kind: facDevicePathInformation}
	FacilityElfFile                 = Facility{kind: facElfFile}
	FacilityElfHeader               = Facility{kind: facElfHeader}
	FacilityElfSectionHeader        = Facility{kind: facElfSectionHeader}
	FacilityElfProgramHeader        = Facility{kind: facElfProgramHeader}
)

// FacilitySectionHeaderEntry tags a failure in section header entry n.
func FacilitySectionHeaderEntry(n uint16) Facility {
	return Facility{kind: facElfSectionHeaderEntry, index: n}
}

// FacilityProgramHeaderEntry tags a failure in program header entry n.
func FacilityProgramHeaderEntry(n uint16) Facility {
	return Facility{kind: facElfProgramHeaderEntry, index: n}
}

func (f Facility) String() string {
	switch f.kind {
	case facDriveParameters:
		return "EDD: drive parameters"
	case facFixedDiskParameterTable:
		return "EDD: fixed disk parameter table"
	case facDevicePathInformation:
		return "EDD: device path information"
	case facElfFile:
		return "ELF file"
	case facElfHeader:
		return "ELF header"
	case facElfSectionHeader:
		return "ELF section header"
	case facElfProgramHeader:
		return "ELF program header"
	case facElfSectionHeaderEntry:
		return fmt.Sprintf("ELF section header entry %d", f.index)
	case facElfProgramHeaderEntry:
		return fmt.Sprintf("ELF program header entry %d", f.index)
	default:
		return "none"
	}
}

// Error is the one error type the decoders return.
type Error struct {
	Fault    Fault    // what happened?
	Context  Context  // what were you doing?
	Facility Facility // where did it happen?
}

func (e *Error) Error() string {
	return fmt.Sprintf("(what)=%s (context)=%s (where)=%s", e.Fault, e.Context, e.Facility)
}

// NewError builds an error with an explicit context.
func NewError(fault Fault, ctx Context, fac Facility) *Error {
	return &Error{Fault: fault, Context: ctx, Facility: fac}
}

// ParsingError builds a decode-time error.
func ParsingError(fault Fault, fac Facility) *Error {
	return &Error{Fault: fault, Context: ContextParsing, Facility: fac}
}

// Fault constructors, one per kind.

func InvalidValueForField(field string, value uint64) Fault {
	return Fault{Kind: FaultInvalidValueForField, Field: field, Value: value}
}

func InvalidValuesForReservedBits(field string) Fault {
	return Fault{Kind: FaultInvalidValuesForReservedBits, Field: field}
}

func UnsupportedEndianness() Fault {
	return Fault{Kind: FaultUnsupportedEndianness}
}

func InvalidValueForType(typeName string, value uint64) Fault {
	return Fault{Kind: FaultInvalidValueForType, TypeName: typeName, Value: value}
}

func InvalidSizeForType(typeName string, size int) Fault {
	return Fault{Kind: FaultInvalidSizeForType, TypeName: typeName, Size: size}
}

func InvalidAddressForType(typeName string, address uint64) Fault {
	return Fault{Kind: FaultInvalidAddressForType, TypeName: typeName, Address: address}
}

func NotEnoughBytesFor(resource string) Fault {
	return Fault{Kind: FaultNotEnoughBytesFor, Resource: resource}
}

func UnsupportedSectionKind(kind string) Fault {
	return Fault{Kind: FaultUnsupportedSectionKind, Field: kind}
}

// FaultOf extracts the Fault out of err if it is (or wraps) an *Error.
// The zero Fault means err carried no taxonomy information.
func FaultOf(err error) Fault {
	var e *Error
	if errors.As(err, &e) {
		return e.Fault
	}
	return Fault{}
}

// FacilityOf extracts the Facility out of err if it is (or wraps) an *Error.
func FacilityOf(err error) Facility {
	var e *Error
	if errors.As(err, &e) {
		return e.Facility
	}
	return FacilityNone
}
