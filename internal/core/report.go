package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Report is a JSON snapshot of a decoded artifact, for piping into
// other tooling.
type Report struct {
	Kind   string
	Source string

	Drive  *driveReport  `json:",omitempty"`
	Kernel *kernelReport `json:",omitempty"`
}

type driveReport struct {
	BufferSize      uint16
	Flags           string
	Cylinders       uint32
	Heads           uint32
	SectorsPerTrack uint32
	Sectors         uint64
	BytesPerSector  uint16
	HostBus         string `json:",omitempty"`
	Interface       string `json:",omitempty"`
}

type kernelReport struct {
	Class      string
	Type       string
	Machine    string
	Entrypoint string

	ImageOffset int64  `json:",omitempty"`
	Codec       string `json:",omitempty"`

	Segments []segmentReport
	Sections []sectionReport
	Errors   []string `json:",omitempty"`
}

type segmentReport struct {
	Type           string
	Flags          string
	VirtualAddress string
	FileSize       uint64
	MemorySize     uint64
}

type sectionReport struct {
	Type string
	Size uint64
}

func (s *State) ToReport() *Report {
	r := &Report{Kind: s.Kind.String(), Source: s.Source}

	if s.Drive != nil {
		d := &driveReport{
			BufferSize:      s.Drive.BufferSize,
			Flags:           s.Drive.InformationFlags.String(),
			Cylinders:       s.Drive.Cylinders,
			Heads:           s.Drive.Heads,
			SectorsPerTrack: s.Drive.SectorsPerTrack,
			Sectors:         s.Drive.Sectors,
			BytesPerSector:  s.Drive.BytesPerSector,
		}
		if dp := s.Drive.DevicePathInformation; dp != nil {
			d.HostBus = dp.HostBus.String()
			d.Interface = dp.Interface.String()
		}
		r.Drive = d
	}

	if s.Elf != nil {
		h := s.Elf.Header()
		k := &kernelReport{
			Class:      h.Class.String(),
			Type:       h.Type.String(),
			Machine:    h.Machine.String(),
			Entrypoint: fmt.Sprintf("%#x", h.Entrypoint),
		}
		if s.Kernel != nil {
			k.ImageOffset = s.Kernel.Offset
			k.Codec = s.Kernel.Codec
		}

		it := s.Elf.ProgramHeaders()
		for it.Next() {
			e, err := it.Entry()
			if err != nil {
				k.Errors = append(k.Errors, err.Error())
				continue
			}
			k.Segments = append(k.Segments, segmentReport{
				Type:           e.Type.String(),
				Flags:          e.Flags.String(),
				VirtualAddress: fmt.Sprintf("%#x", e.VirtualAddress),
				FileSize:       e.FileSize,
				MemorySize:     e.MemorySize,
			})
		}
		sit := s.Elf.Sections()
		for sit.Next() {
			e, err := sit.Entry()
			if err != nil {
				k.Errors = append(k.Errors, err.Error())
				continue
			}
			k.Sections = append(k.Sections, sectionReport{
				Type: e.Type.String(),
				Size: e.Size,
			})
		}
		r.Kernel = k
	}
	return r
}

func (s *State) SaveReport(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s.ToReport())
}
