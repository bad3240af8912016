package main

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"bootinspect/internal/core"
)

func usage() {
	fmt.Println(`bootinspect - boot artifact decoder (Go)
Usage:
  bootinspect edd <dumpPath>                  # INT 13h/48h drive parameters dump
  bootinspect elf header <kernelPath>
  bootinspect elf segments <kernelPath>
  bootinspect elf sections <kernelPath>
  bootinspect elf str <kernelPath>            # section names via the string table
  bootinspect image <diskImagePath>           # probe a whole boot image
  bootinspect view <path>                     # TUI browser, artifact kind guessed
  bootinspect report <outPath.json>           # JSON report of the loaded artifact
  bootinspect info
  bootinspect help

Compressed kernels (gzip, zstd, lz4, xz, bzip2) are unwrapped by magic.
Pass -v first for decode tracing.`)
}

func main() {
	args := os.Args[1:]

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	lvl := level.AllowInfo()
	if len(args) > 0 && args[0] == "-v" {
		lvl = level.AllowDebug()
		args = args[1:]
	}
	logger = level.NewFilter(logger, lvl)

	if len(args) == 0 {
		usage()
		return
	}

	st := core.New(logger)

	i := 0
	for i < len(args) {
		switch args[i] {
		case "help", "-h", "--help":
			usage()
			return

		case "edd":
			if i+1 >= len(args) {
				usage()
				os.Exit(1)
			}
			if err := st.LoadEDDDump(args[i+1]); err != nil {
				fail(st)
			}
			fmt.Print(st.Drive.String())
			i += 2

		case "elf":
			if i+2 >= len(args) {
				usage()
				os.Exit(1)
			}
			action, path := args[i+1], args[i+2]
			if err := st.LoadKernelElf(path, "auto"); err != nil {
				fail(st)
			}
			if err := runElf(st, action); err != nil {
				fmt.Fprintln(os.Stderr, "elf:", err)
				os.Exit(2)
			}
			i += 3

		case "image":
			if i+1 >= len(args) {
				usage()
				os.Exit(1)
			}
			if err := st.LoadDiskImage(args[i+1]); err != nil {
				fail(st)
			}
			k := st.Kernel
			fmt.Printf("kernel at %#x (%s, %s)\n", k.Offset, k.Scheme, k.Codec)
			fmt.Print(st.Elf.Header().String())
			i += 2

		case "view":
			if i+1 >= len(args) {
				usage()
				os.Exit(1)
			}
			if err := runView(st, args[i+1]); err != nil {
				fmt.Fprintln(os.Stderr, "view:", err)
				os.Exit(2)
			}
			i += 2

		case "report":
			if i+1 >= len(args) {
				usage()
				os.Exit(1)
			}
			if st.Kind == core.KindNone {
				fmt.Fprintln(os.Stderr, "nothing loaded to report")
				os.Exit(2)
			}
			if err := st.SaveReport(args[i+1]); err != nil {
				fmt.Fprintln(os.Stderr, "report:", err)
				os.Exit(2)
			}
			i += 2

		case "info":
			fmt.Println(st.Info())
			i++

		default:
			usage()
			os.Exit(1)
		}
	}
}

func runElf(st *core.State, action string) error {
	switch action {
	case "header":
		fmt.Print(st.Elf.Header().String())
		return nil

	case "segments":
		i := 0
		it := st.Elf.ProgramHeaders()
		for it.Next() {
			e, err := it.Entry()
			if err != nil {
				fmt.Printf("-- segment %d: %v\n", i, err)
			} else {
				fmt.Printf("-- segment %d\n%s", i, e.String())
			}
			i++
		}
		return nil

	case "sections":
		i := 0
		it := st.Elf.Sections()
		for it.Next() {
			e, err := it.Entry()
			if err != nil {
				fmt.Printf("-- section %d: %v\n", i, err)
			} else {
				fmt.Printf("-- section %d\n%s", i, e.String())
			}
			i++
		}
		return nil

	case "str":
		return printSectionNames(st)

	default:
		return fmt.Errorf("unknown elf action: %s", action)
	}
}

func fail(st *core.State) {
	fmt.Fprint(os.Stderr, st.Diagnostics())
	os.Exit(2)
}
