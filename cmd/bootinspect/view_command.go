package main

import (
	"fmt"
	"os"

	"bootinspect/internal/core"
	"bootinspect/internal/elf"
	"bootinspect/internal/kernel"
	"bootinspect/internal/tui/view"
)

// runView loads path, guessing the artifact kind from its content, and
// opens the browser on it.
func runView(st *core.State, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var loadErr error
	switch {
	case len(b) >= 512 && b[510] == 0x55 && b[511] == 0xAA:
		loadErr = st.LoadDiskImage(path)
	case isKernelPayload(b):
		loadErr = st.LoadKernelElf(path, "auto")
	default:
		loadErr = st.LoadEDDDump(path)
	}
	if loadErr != nil {
		fmt.Fprint(os.Stderr, st.Diagnostics())
		return loadErr
	}
	return view.Run(st)
}

func isKernelPayload(b []byte) bool {
	if len(b) >= 4 && b[0] == 0x7f && b[1] == 'E' && b[2] == 'L' && b[3] == 'F' {
		return true
	}
	return kernel.Detect(b) != "raw"
}

// printSectionNames resolves every section's name through the string
// table the header points at.
func printSectionNames(st *core.State) error {
	strndx := int(st.Elf.Header().StringTableIndex)
	sec, ok, err := st.Elf.SectionAt(strndx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no string table at index %d", strndx)
	}
	table, isTable := sec.(elf.StringTable)
	if !isTable {
		return fmt.Errorf("section %d is not a string table", strndx)
	}

	i := 0
	it := st.Elf.Sections()
	for it.Next() {
		e, err := it.Entry()
		if err != nil {
			fmt.Printf("%3d  <%v>\n", i, err)
			i++
			continue
		}
		name, found, err := table.Lookup(int(e.NameIndex))
		switch {
		case err != nil:
			fmt.Printf("%3d  <%v>\n", i, err)
		case !found:
			fmt.Printf("%3d  <name index %d out of range>\n", i, e.NameIndex)
		default:
			fmt.Printf("%3d  %-20s %s\n", i, name, e.Type)
		}
		i++
	}
	return nil
}
