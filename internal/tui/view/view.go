package view

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"bootinspect/internal/core"
)

// One browsable line of the artifact: its place in the list, the
// decoded record behind it, and the raw payload bytes when there are
// any to show.
type row struct {
	label  string
	detail string
	data   []byte
}

type viewer struct {
	app    *tview.Application
	pages  *tview.Pages
	grid   *tview.Grid
	header *tview.TextView
	list   *tview.TextView
	detail *tview.TextView
	footer *tview.TextView

	st    *core.State
	rows  []row
	index int
}

func Run(st *core.State) error {
	if st == nil || st.Kind == core.KindNone {
		return fmt.Errorf("view: nothing loaded")
	}

	v := &viewer{
		app:    tview.NewApplication(),
		pages:  tview.NewPages(),
		grid:   tview.NewGrid(),
		header: tview.NewTextView(),
		list:   tview.NewTextView(),
		detail: tview.NewTextView(),
		footer: tview.NewTextView(),
		st:     st,
	}
	v.rows = buildRows(st)

	v.style()
	v.layout()
	v.bindKeys()

	v.drawHeader()
	v.drawList()
	v.drawDetail()

	v.pages.AddAndSwitchToPage("main", v.grid, true)
	v.app.SetRoot(v.pages, true)
	v.app.SetFocus(v.list)
	return v.app.Run()
}

func (v *viewer) style() {
	tview.Styles.PrimitiveBackgroundColor = tcell.ColorNavy
	tview.Styles.ContrastBackgroundColor = tcell.ColorBlue
	tview.Styles.BorderColor = tcell.ColorSkyblue
	tview.Styles.PrimaryTextColor = tcell.ColorWhite

	v.header.SetBorder(true)
	v.header.SetDynamicColors(true)
	v.header.SetTitle(" bootinspect ")
	v.header.SetTitleColor(tcell.ColorSkyblue)

	v.footer.SetBorder(true)
	v.footer.SetDynamicColors(true)
	fmt.Fprint(v.footer, footerText())

	for _, tv := range []*tview.TextView{v.list, v.detail} {
		tv.SetBorder(true)
		tv.SetTitleAlign(tview.AlignLeft)
		tv.SetBackgroundColor(tcell.ColorBlue)
		tv.SetDynamicColors(true)
	}
	v.list.SetScrollable(false)
	v.detail.SetScrollable(true)
	v.list.SetTitle(" records ")
	v.detail.SetTitle(" decoded ")
}

func footerText() string {
	lbl := func(fn, t string) string { return fmt.Sprintf("[black:white] %s [-:-:-] [yellow]%s[-]", fn, t) }
	return lbl("↑↓", "Select") + "  " + lbl("F3", "Hex") + "  " + lbl("F10", "Quit")
}

func (v *viewer) layout() {
	v.grid.SetRows(3, 0, 2).SetColumns(40, 0).SetBorders(false)
	v.grid.AddItem(v.header, 0, 0, 1, 2, 0, 0, false)
	v.grid.AddItem(v.list, 1, 0, 1, 1, 0, 0, true)
	v.grid.AddItem(v.detail, 1, 1, 1, 1, 0, 0, false)
	v.grid.AddItem(v.footer, 2, 0, 1, 2, 0, 0, false)
}

func (v *viewer) drawHeader() {
	v.header.Clear()
	fmt.Fprintf(v.header, "[yellow]%s[-]: [white]%s[-]", v.st.Kind, v.st.Source)
}

func (v *viewer) drawList() {
	v.list.Clear()
	for i, r := range v.rows {
		if i == v.index {
			fmt.Fprintf(v.list, "[black:teal]%s[-:-:-]\n", r.label)
		} else {
			fmt.Fprintf(v.list, "%s\n", r.label)
		}
	}
}

func (v *viewer) drawDetail() {
	v.detail.Clear()
	if v.index >= 0 && v.index < len(v.rows) {
		fmt.Fprint(v.detail, v.rows[v.index].detail)
	}
}

func (v *viewer) bindKeys() {
	v.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch ev.Key() {
		case tcell.KeyUp:
			v.move(-1)
			return nil
		case tcell.KeyDown:
			v.move(+1)
			return nil
		case tcell.KeyPgUp:
			v.move(-15)
			return nil
		case tcell.KeyPgDn:
			v.move(+15)
			return nil
		case tcell.KeyHome:
			v.setIndex(0)
			return nil
		case tcell.KeyEnd:
			v.setIndex(len(v.rows) - 1)
			return nil
		case tcell.KeyF3, tcell.KeyEnter:
			v.hex()
			return nil
		case tcell.KeyF10, tcell.KeyEsc:
			v.app.Stop()
			return nil
		}
		return ev
	})
}

func (v *viewer) setIndex(i int) {
	if len(v.rows) == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(v.rows) {
		i = len(v.rows) - 1
	}
	v.index = i
	v.drawList()
	v.drawDetail()
}

func (v *viewer) move(d int) { v.setIndex(v.index + d) }

func (v *viewer) hex() {
	if v.index < 0 || v.index >= len(v.rows) {
		return
	}
	r := v.rows[v.index]
	if len(r.data) == 0 {
		return
	}
	const max = 256 * 1024
	b := r.data
	if len(b) > max {
		b = b[:max]
	}
	tv := tview.NewTextView()
	tv.SetText(hexDump(b))
	tv.SetScrollable(true)
	tv.SetBorder(true)
	tv.SetTitle(fmt.Sprintf(" Hex: %s ", r.label))
	v.pages.AddAndSwitchToPage("hex", tv, true)
	tv.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEsc || ev.Key() == tcell.KeyF10 {
			v.pages.RemovePage("hex")
			v.app.SetFocus(v.list)
			return nil
		}
		return ev
	})
}

// ---------------------------- rows ----------------------------

func buildRows(st *core.State) []row {
	var rows []row

	if st.Drive != nil {
		rows = append(rows, row{
			label:  "drive parameters",
			detail: st.Drive.String(),
			data:   st.Raw,
		})
		if t := st.Drive.FixedDiskParameterTable; t != nil {
			rows = append(rows, row{label: "fixed disk parameter table", detail: t.String()})
		}
		if d := st.Drive.DevicePathInformation; d != nil {
			rows = append(rows, row{label: "device path information", detail: d.String()})
		}
	}

	if st.Elf != nil {
		rows = append(rows, row{
			label:  "header",
			detail: st.Elf.Header().String(),
			data:   st.Raw,
		})

		i := 0
		it := st.Elf.ProgramHeaders()
		for it.Next() {
			e, err := it.Entry()
			if err != nil {
				rows = append(rows, row{label: fmt.Sprintf("segment %d (invalid)", i), detail: err.Error()})
			} else {
				r := row{label: fmt.Sprintf("segment %d: %s", i, e.Type), detail: e.String()}
				if data, ok := st.Elf.Segment(e); ok {
					r.data = data
				}
				rows = append(rows, r)
			}
			i++
		}

		i = 0
		sit := st.Elf.Sections()
		for sit.Next() {
			e, err := sit.Entry()
			if err != nil {
				rows = append(rows, row{label: fmt.Sprintf("section %d (invalid)", i), detail: err.Error()})
			} else {
				rows = append(rows, row{label: fmt.Sprintf("section %d: %s", i, e.Type), detail: e.String()})
			}
			i++
		}
	}
	return rows
}

func hexDump(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var out bytes.Buffer
	const cols = 16
	for i := 0; i < len(b); i += cols {
		end := i + cols
		if end > len(b) {
			end = len(b)
		}
		chunk := b[i:end]
		fmt.Fprintf(&out, "%08x  ", i)
		for j := 0; j < cols; j++ {
			if i+j < len(b) {
				fmt.Fprintf(&out, "%02x ", b[i+j])
			} else {
				out.WriteString("   ")
			}
		}
		out.WriteString(" ")
		for _, c := range chunk {
			if c >= 32 && c < 127 {
				out.WriteByte(c)
			} else {
				out.WriteByte('.')
			}
		}
		out.WriteByte('\n')
	}
	return out.String()
}
