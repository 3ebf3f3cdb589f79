// Package tui shows the recorded bus trace of a run in a terminal UI.
package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"lautenbacher.net/fpgaspi/hardware"
	"lautenbacher.net/fpgaspi/recipe"
)

const viewerTitle = " FPGA SPI Trace "

// TraceViewer displays bus events and recipe outcomes until the user
// quits with q.
type TraceViewer struct {
	app      *tview.Application
	events   []hardware.Event
	outcomes []recipe.Outcome
}

func NewTraceViewer(events []hardware.Event, outcomes []recipe.Outcome) *TraceViewer {
	return &TraceViewer{
		app:      tview.NewApplication(),
		events:   events,
		outcomes: outcomes,
	}
}

// Run blocks until the viewer is closed.
func (v *TraceViewer) Run() error {
	intro := tview.NewTextView()
	intro.SetBorder(true).SetTitle(viewerTitle).SetTitleColor(tcell.ColorLightBlue)
	intro.SetText(formatOutcomes(v.outcomes) + "\nHit [#ff0000]q[-] to exit")
	intro.SetTextAlign(tview.AlignCenter)
	intro.SetDynamicColors(true)
	intro.SetBackgroundColor(tcell.ColorDarkSlateGray)

	table := tview.NewTable().SetBorders(false).SetFixed(1, 0)
	table.SetBorder(true).SetTitle(" Transactions ").SetTitleColor(tcell.ColorLightBlue)
	for col, h := range []string{"#", "time", "event"} {
		table.SetCell(0, col, tview.NewTableCell(h).SetTextColor(tcell.ColorYellow).SetSelectable(false))
	}
	for i, row := range formatRows(v.events) {
		for col, text := range row {
			cell := tview.NewTableCell(text)
			if v.events[i].Err != nil {
				cell.SetTextColor(tcell.ColorRed)
			}
			table.SetCell(i+1, col, cell)
		}
	}
	table.SetSelectable(true, false)

	layout := tview.NewFlex().SetDirection(tview.FlexRow)
	layout.AddItem(intro, len(v.outcomes)+3, 1, false)
	layout.AddItem(table, 0, 1, true)

	v.app.SetRoot(layout, true).SetFocus(table)
	v.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'q', 'Q':
			v.app.Stop()
			return nil
		}
		return event
	})
	return v.app.Run()
}

// formatRows renders one table row per event, times relative to the
// first event.
func formatRows(events []hardware.Event) [][]string {
	rows := make([][]string, len(events))
	for i, e := range events {
		elapsed := e.Time.Sub(events[0].Time)
		rows[i] = []string{fmt.Sprintf("%d", i+1), fmt.Sprintf("+%s", elapsed), e.String()}
	}
	return rows
}

func formatOutcomes(outcomes []recipe.Outcome) string {
	var buf strings.Builder
	for _, o := range outcomes {
		color := "green"
		if !o.Match {
			color = "red"
		}
		fmt.Fprintf(&buf, "[%s]%s = %s[-] (expected %s)\n", color, o.Name, o.Got, o.Expected)
	}
	return buf.String()
}
