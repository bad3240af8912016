package edd

import "bootinspect/internal/flagset"

// InfoFlag is one bit of the information flags word in the drive
// parameters buffer.
type InfoFlag uint16

const (
	InfoDmaBoundaryErrorsHandledTransparently InfoFlag = 0x01
	InfoSuppliedGeometryValid                 InfoFlag = 0x02
	InfoRemovable                             InfoFlag = 0x04
	InfoSupportsWriteWithVerify               InfoFlag = 0x08
	InfoSupportsLineChange                    InfoFlag = 0x10
	InfoLockable                              InfoFlag = 0x20
	InfoNoMediaPresent                        InfoFlag = 0x40
)

func (f InfoFlag) String() string {
	switch f {
	case InfoDmaBoundaryErrorsHandledTransparently:
		return "DMA_BOUNDARY_ERRORS_HANDLED_TRANSPARENTLY"
	case InfoSuppliedGeometryValid:
		return "SUPPLIED_GEOMETRY_VALID"
	case InfoRemovable:
		return "REMOVABLE"
	case InfoSupportsWriteWithVerify:
		return "SUPPORTS_WRITE_WITH_VERIFY"
	case InfoSupportsLineChange:
		return "SUPPORTS_LINE_CHANGE"
	case InfoLockable:
		return "LOCKABLE"
	case InfoNoMediaPresent:
		return "NO_MEDIA_PRESENT"
	}
	return "UNKNOWN"
}

// Bits 7..15 are reserved by EDD 1.1.
var InfoFlags = flagset.NewType[uint16, InfoFlag](func(bit int) bool { return bit > 6 })

// HeadRegisterFlag is one of the two flag bits in the FDPT head register
// prefix byte. The low nibble carries the head number and bits 5/7 are
// fixed, so only bits 4 and 6 are flags.
type HeadRegisterFlag uint8

const (
	HeadSlave      HeadRegisterFlag = 0x10
	HeadLBAEnabled HeadRegisterFlag = 0x40
)

func (f HeadRegisterFlag) String() string {
	switch f {
	case HeadSlave:
		return "SLAVE"
	case HeadLBAEnabled:
		return "LBA_ENABLED"
	}
	return "UNKNOWN"
}

var HeadRegisterFlags = flagset.NewType[uint8, HeadRegisterFlag](func(bit int) bool {
	return bit != 4 && bit != 6
})

// HWOptionFlag is one bit of the FDPT hardware specific option flags word.
type HWOptionFlag uint16

const (
	HWFastPIO                  HWOptionFlag = 0x001
	HWFastDMA                  HWOptionFlag = 0x002
	HWBlockPIO                 HWOptionFlag = 0x004
	HWCHSTranslation           HWOptionFlag = 0x008
	HWLBATranslation           HWOptionFlag = 0x010
	HWRemovableMedia           HWOptionFlag = 0x020
	HWAtapi                    HWOptionFlag = 0x040
	HW32BitTransferMode        HWOptionFlag = 0x080
	HWAtapiUsesInterruptDRQ    HWOptionFlag = 0x100
	HWTranslationTypeFirstBit  HWOptionFlag = 0x200
	HWTranslationTypeSecondBit HWOptionFlag = 0x400
)

func (f HWOptionFlag) String() string {
	switch f {
	case HWFastPIO:
		return "FAST_PIO"
	case HWFastDMA:
		return "FAST_DMA"
	case HWBlockPIO:
		return "BLOCK_PIO"
	case HWCHSTranslation:
		return "CHS_TRANSLATION"
	case HWLBATranslation:
		return "LBA_TRANSLATION"
	case HWRemovableMedia:
		return "REMOVABLE_MEDIA"
	case HWAtapi:
		return "ATAPI"
	case HW32BitTransferMode:
		return "32_BIT_TRANSFER_MODE"
	case HWAtapiUsesInterruptDRQ:
		return "ATAPI_USES_INTERRUPT_DRQ"
	case HWTranslationTypeFirstBit:
		return "TRANSLATION_TYPE_FIRST_BIT"
	case HWTranslationTypeSecondBit:
		return "TRANSLATION_TYPE_SECOND_BIT"
	}
	return "UNKNOWN"
}

var HWOptionFlags = flagset.NewType[uint16, HWOptionFlag](func(bit int) bool { return bit > 10 })
