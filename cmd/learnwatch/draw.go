package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/learnkit/pkg/ttt"
)

// Styles
var (
	styleDefault = tcell.StyleDefault
	styleTitle   = tcell.StyleDefault.Bold(true).Foreground(tcell.ColorWhite)
	styleHeader  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleState   = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleAccept  = tcell.StyleDefault.Foreground(tcell.ColorPurple)
	styleTemp    = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleTree    = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleStatus  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleLog     = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleBorder  = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

func (app *App) draw() {
	app.screen.Clear()
	w, h := app.screen.Size()

	app.drawText(1, 0, styleTitle, "learnwatch - TTT")

	split := w / 2
	app.drawHypothesis(1, 2, split-2, h-3)
	app.drawTree(split+1, 2, w-split-2, h-3)
	for y := 2; y < h-1; y++ {
		app.screen.SetContent(split, y, '│', nil, styleBorder)
	}

	app.drawStatusBar(w, h)
	app.screen.Show()
}

func (app *App) drawHypothesis(x, y, w, h int) {
	app.drawText(x, y, styleHeader, "Hypothesis")
	row := y + 1

	hyp := app.learner.Hypothesis()
	app.drawText(x, row, styleDefault, fmt.Sprintf("states: %d  queries: %d  rounds: %d",
		hyp.NumStates(), app.mq.Queries(), app.rounds))
	row++
	if app.lastCE != "" {
		app.drawText(x, row, styleDefault, truncate("last ce: "+app.lastCE, w))
		row++
	}
	row++

	for _, s := range hyp.States() {
		if row >= y+h-len(app.logTail(5))-2 {
			app.drawText(x, row, styleDefault, "...")
			row++
			break
		}
		style := styleState
		marker := " "
		if s.Accepting() {
			style = styleAccept
			marker = "*"
		}
		app.drawText(x, row, style, truncate(fmt.Sprintf("q%d%s <%s>", s.ID(), marker, s.AccessSequence()), w))
		row++
	}

	// Recent log lines at the bottom of the panel.
	tail := app.logTail(5)
	logY := y + h - len(tail)
	for i, line := range tail {
		app.drawText(x, logY+i, styleLog, truncate(line, w))
	}
}

func (app *App) logTail(n int) []string {
	if len(app.log) <= n {
		return app.log
	}
	return app.log[len(app.log)-n:]
}

func (app *App) drawTree(x, y, w, h int) {
	app.drawText(x, y, styleHeader, "Discrimination tree")
	if !app.started {
		app.drawText(x, y+1, styleDefault, "(not started)")
		return
	}
	row := y + 1
	app.drawTreeNode(app.learner.TreeSnapshot(), "", x, &row, y+h, w)
}

func (app *App) drawTreeNode(n *ttt.TreeView, prefix string, x int, row *int, maxY, w int) {
	if *row >= maxY {
		return
	}

	var text string
	style := styleTree
	if n.Leaf {
		if n.StateID >= 0 {
			text = fmt.Sprintf("q%d", n.StateID)
			style = styleState
		} else {
			text = "·"
		}
	} else {
		text = "[" + n.Discriminator + "]"
		if n.Temp {
			style = styleTemp
			text += " ~"
		}
	}
	app.drawText(x, *row, style, truncate(prefix+text, w))
	*row++

	for i, c := range n.Children {
		edge := "0"
		if n.Edges[i] {
			edge = "1"
		}
		app.drawTreeNode(c, prefix+edge+"─", x, row, maxY, w)
	}
}

func (app *App) drawStatusBar(w, h int) {
	for x := 0; x < w; x++ {
		app.screen.SetContent(x, h-1, ' ', nil, styleStatus)
	}
	status := app.message
	if status == "" {
		status = "space: step  r: run  q: quit"
	}
	app.drawText(1, h-1, styleStatus, truncate(status, w-2))
}

func (app *App) drawText(x, y int, style tcell.Style, text string) {
	col := x
	for _, r := range text {
		app.screen.SetContent(col, y, r, nil, style)
		col++
	}
}

func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= w {
		return s
	}
	if w <= 1 {
		return string(runes[:w])
	}
	return string(runes[:w-1]) + "…"
}
