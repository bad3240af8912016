package common

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorRendering(t *testing.T) {
	err := ParsingError(InvalidValueForField("checksum", 0x3b), FacilityFixedDiskParameterTable)
	assert.Equal(t,
		`(what)=invalid value 0x3b for field "checksum" (context)=parsing (where)=EDD: fixed disk parameter table`,
		err.Error())

	err = NewError(NotEnoughBytesFor("program header"), ContextIo, FacilityElfFile)
	assert.Contains(t, err.Error(), `not enough bytes for "program header"`)
	assert.Contains(t, err.Error(), "(context)=I/O")
}

func TestIndexedFacilities(t *testing.T) {
	assert.Equal(t, "ELF section header entry 7", FacilitySectionHeaderEntry(7).String())
	assert.Equal(t, "ELF program header entry 0", FacilityProgramHeaderEntry(0).String())
	assert.NotEqual(t, FacilitySectionHeaderEntry(1), FacilitySectionHeaderEntry(2))
}

func TestFaultOfUnwrapsWrappedErrors(t *testing.T) {
	inner := ParsingError(UnsupportedEndianness(), FacilityElfHeader)
	wrapped := fmt.Errorf("loading kernel: %w", inner)

	f := FaultOf(wrapped)
	assert.Equal(t, FaultUnsupportedEndianness, f.Kind)
	assert.Equal(t, FacilityElfHeader, FacilityOf(wrapped))

	assert.Equal(t, FaultNone, FaultOf(errors.New("plain")).Kind)
	assert.Equal(t, FacilityNone, FacilityOf(errors.New("plain")))
}

func TestChainBoundedDepth(t *testing.T) {
	c := NewChain(3)
	for i := 0; i < 5; i++ {
		c.Push(fmt.Errorf("error %d", i))
	}

	assert.Equal(t, 3, c.Len())
	assert.True(t, c.Truncated())
	assert.Contains(t, c.String(), "truncated to 3")

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Truncated())
}

func TestChainRenderOrders(t *testing.T) {
	c := NewChain(0)
	c.Push(errors.New("checksum mismatch in device path information"))
	c.Push(errors.New("could not identify boot device"))

	leafFirst := c.String()
	require.True(t, strings.HasPrefix(leafFirst, "Error:\n"))
	assert.Less(t,
		strings.Index(leafFirst, "checksum mismatch"),
		strings.Index(leafFirst, "could not identify"))
	assert.Contains(t, leafFirst, "Causing:")

	rootFirst := c.RootToLeaf()
	assert.Less(t,
		strings.Index(rootFirst, "could not identify"),
		strings.Index(rootFirst, "checksum mismatch"))
	assert.Contains(t, rootFirst, "Due to:")
}
