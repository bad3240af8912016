package image

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bootSector() []byte {
	sec := make([]byte, SectorSize)
	sec[510] = 0x55
	sec[511] = 0xAA
	return sec
}

func TestScanFlatImage(t *testing.T) {
	// Boot sector, one stage sector, kernel at sector 2.
	img := bootSector()
	img = append(img, make([]byte, SectorSize)...)
	img = append(img, 0x7f, 'E', 'L', 'F', 2, 1, 1)

	k, err := Scan(img)
	require.NoError(t, err)
	assert.Equal(t, int64(2*SectorSize), k.Offset)
	assert.Equal(t, "flat", k.Scheme)
	assert.Equal(t, "raw", k.Codec)
	assert.True(t, bytes.HasPrefix(k.Data, elfMagic))
}

func TestScanCompressedKernel(t *testing.T) {
	var blob bytes.Buffer
	gw := gzip.NewWriter(&blob)
	_, err := gw.Write([]byte("\x7fELF pretend kernel"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	img := bootSector()
	img = append(img, blob.Bytes()...)

	k, err := Scan(img)
	require.NoError(t, err)
	assert.Equal(t, int64(SectorSize), k.Offset)
	assert.Equal(t, "gzip", k.Codec)
	assert.True(t, bytes.HasPrefix(k.Data, elfMagic))
}

func TestScanMissingBootSignature(t *testing.T) {
	img := make([]byte, 4*SectorSize)
	copy(img[SectorSize:], elfMagic)

	_, err := Scan(img)
	assert.ErrorIs(t, err, ErrNoBootSignature)

	_, err = Scan(img[:100])
	assert.ErrorIs(t, err, ErrNoBootSignature)
}

func TestScanNoKernel(t *testing.T) {
	img := bootSector()
	img = append(img, make([]byte, 3*SectorSize)...)

	_, err := Scan(img)
	assert.ErrorIs(t, err, ErrNoKernel)
}

// The kernel only counts on a sector boundary; stray magic mid-sector
// stays invisible.
func TestScanIgnoresUnalignedMagic(t *testing.T) {
	img := bootSector()
	sec := make([]byte, SectorSize)
	copy(sec[100:], elfMagic)
	img = append(img, sec...)

	_, err := Scan(img)
	assert.ErrorIs(t, err, ErrNoKernel)
}
