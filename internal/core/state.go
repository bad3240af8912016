package core

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"bootinspect/internal/common"
	"bootinspect/internal/edd"
	"bootinspect/internal/elf"
	"bootinspect/internal/image"
	"bootinspect/internal/kernel"
)

// ArtifactKind denotes the currently loaded artifact type.
type ArtifactKind int

const (
	KindNone ArtifactKind = iota
	KindEDDDump
	KindKernelElf
	KindDiskImage
)

func (k ArtifactKind) String() string {
	switch k {
	case KindEDDDump:
		return "edd-dump"
	case KindKernelElf:
		return "kernel-elf"
	case KindDiskImage:
		return "disk-image"
	default:
		return "none"
	}
}

// State holds one loaded artifact and whatever was decoded from it.
// Decode failures land in Diag as a leaf-to-root chain, so the frontend
// can show the summary and what caused it.
type State struct {
	Kind   ArtifactKind
	Source string

	Drive  *edd.DriveParameters
	Elf    *elf.File
	Kernel *image.Kernel

	// Raw keeps the bytes the decoders ran over.
	Raw []byte

	Diag *common.Chain
	log  log.Logger
}

func New(logger log.Logger) *State {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &State{
		Kind: KindNone,
		Diag: common.NewChain(0),
		log:  logger,
	}
}

func (s *State) Info() string {
	return fmt.Sprintf("Kind: %s", s.Kind.String())
}

// ---------------------------- EDD register dump ----------------------------

// LoadEDDDump decodes a raw INT 13h extended drive parameters dump.
// There is no BIOS memory in hosted mode, so the disk parameter table
// far pointer is left unresolved.
func (s *State) LoadEDDDump(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	level.Debug(s.log).Log("msg", "decoding drive parameters", "path", path, "bytes", len(b))

	dp, err := edd.DecodeDriveParameters(b, nil)
	if err != nil {
		return s.fail(err, "could not identify the boot device")
	}

	s.reset()
	s.Kind = KindEDDDump
	s.Source = path
	s.Drive = dp
	s.Raw = b
	level.Info(s.log).Log("msg", "drive parameters decoded",
		"buffer_size", dp.BufferSize, "sectors", dp.Sectors)
	return nil
}

// ---------------------------- Kernel executable ----------------------------

// LoadKernelElf decodes a kernel executable, unwrapping the compressor
// named by codec first ("auto" detects by magic, "raw" skips).
func (s *State) LoadKernelElf(path, codec string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	payload, err := kernel.Decompress(b, codec)
	if err != nil {
		return s.fail(err, "could not unwrap the kernel payload")
	}
	level.Debug(s.log).Log("msg", "decoding kernel executable", "path", path, "bytes", len(payload))

	f, err := elf.NewFile(payload)
	if err != nil {
		return s.fail(err, "could not load the kernel executable")
	}

	s.reset()
	s.Kind = KindKernelElf
	s.Source = path
	s.Elf = f
	s.Raw = payload
	h := f.Header()
	level.Info(s.log).Log("msg", "kernel executable decoded",
		"class", h.Class, "machine", h.Machine, "entrypoint", fmt.Sprintf("%#x", h.Entrypoint))
	return nil
}

// ---------------------------- Boot-disk image ----------------------------

// LoadDiskImage probes a whole boot image and decodes the kernel it
// carries.
func (s *State) LoadDiskImage(path string) error {
	k, err := image.Probe(path)
	if err != nil {
		return s.fail(err, "could not locate a kernel in the image")
	}
	level.Debug(s.log).Log("msg", "kernel located", "path", path,
		"offset", k.Offset, "scheme", k.Scheme, "codec", k.Codec)

	f, err := elf.NewFile(k.Data)
	if err != nil {
		return s.fail(err, "could not load the kernel executable")
	}

	s.reset()
	s.Kind = KindDiskImage
	s.Source = path
	s.Kernel = k
	s.Elf = f
	s.Raw = k.Data
	level.Info(s.log).Log("msg", "disk image decoded",
		"kernel_offset", k.Offset, "entrypoint", fmt.Sprintf("%#x", f.Header().Entrypoint))
	return nil
}

// ---------------------------- failure plumbing ----------------------------

func (s *State) reset() {
	s.Drive = nil
	s.Elf = nil
	s.Kernel = nil
	s.Raw = nil
	s.Diag.Clear()
}

// fail records cause and summary in the diagnostic chain, leaf first,
// and returns the wrapped error.
func (s *State) fail(cause error, summary string) error {
	s.Diag.Clear()
	s.Diag.Push(cause)
	s.Diag.Push(fmt.Errorf("%s", summary))
	level.Error(s.log).Log("msg", summary, "err", cause)
	return fmt.Errorf("%s: %w", summary, cause)
}

// Diagnostics renders the last failure chain, innermost error first.
func (s *State) Diagnostics() string {
	return s.Diag.String()
}
