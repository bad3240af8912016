package image

// Boot-disk image probing: verify the boot sector, then locate the
// kernel executable. Flat images keep the kernel on a 512-byte sector
// boundary after the stage sectors; partitioned images are probed
// through their partition table instead.

import (
	"bytes"
	"errors"
	"os"

	befile "github.com/diskfs/go-diskfs/backend/file"
	"github.com/diskfs/go-diskfs/partition"

	"bootinspect/internal/kernel"
)

const SectorSize = 512

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

var (
	ErrNoBootSignature = errors.New("image: missing 0x55aa boot sector signature")
	ErrNoKernel        = errors.New("image: no kernel executable found")
)

// Kernel is a kernel payload located inside a boot image.
type Kernel struct {
	Offset int64  // byte offset of the payload in the image
	Scheme string // "flat", or the partition table type that held it
	Codec  string // compressor that wrapped the payload, "raw" when none
	Data   []byte // unwrapped executable bytes
}

// Probe reads a boot image from disk and locates its kernel. The flat
// layout is tried first; images that carry a partition table instead
// are probed partition by partition.
func Probe(path string) (*Kernel, error) {
	img, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	k, err := Scan(img)
	if err == nil {
		return k, nil
	}
	if !errors.Is(err, ErrNoKernel) {
		return nil, err
	}
	return probePartitions(path, img)
}

// Scan walks a flat image: boot sector first, then the kernel on some
// sector boundary behind the later stages.
func Scan(img []byte) (*Kernel, error) {
	if len(img) < SectorSize || img[510] != 0x55 || img[511] != 0xAA {
		return nil, ErrNoBootSignature
	}
	for off := SectorSize; off+len(elfMagic) <= len(img); off += SectorSize {
		if k, ok := kernelAt(img, int64(off)); ok {
			k.Scheme = "flat"
			return k, nil
		}
	}
	return nil, ErrNoKernel
}

func kernelAt(img []byte, off int64) (*Kernel, bool) {
	rest := img[off:]
	if bytes.HasPrefix(rest, elfMagic) {
		return &Kernel{Offset: off, Codec: "raw", Data: rest}, true
	}
	if c := kernel.Detect(rest); c != "raw" {
		out, err := kernel.Decompress(rest, c)
		if err == nil && bytes.HasPrefix(out, elfMagic) {
			return &Kernel{Offset: off, Codec: c, Data: out}, true
		}
	}
	return nil, false
}

func probePartitions(path string, img []byte) (*Kernel, error) {
	b, err := befile.OpenFromPath(path, true)
	if err != nil {
		return nil, err
	}
	table, err := partition.Read(b, SectorSize, SectorSize)
	if err != nil {
		return nil, ErrNoKernel
	}
	for _, p := range table.GetPartitions() {
		start := p.GetStart()
		if start <= 0 || start >= int64(len(img)) {
			continue
		}
		if k, ok := kernelAt(img, start); ok {
			k.Scheme = table.Type()
			return k, nil
		}
	}
	return nil, ErrNoKernel
}
