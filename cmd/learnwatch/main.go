// Command learnwatch is a TUI that animates a TTT learning run against a
// target automaton, one counterexample at a time.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/learnkit/pkg/acex"
	"github.com/ha1tch/learnkit/pkg/dfa"
	"github.com/ha1tch/learnkit/pkg/dfafile"
	"github.com/ha1tch/learnkit/pkg/oracle"
	"github.com/ha1tch/learnkit/pkg/ttt"
)

const usageText = `learnwatch - watch a TTT learning run

Usage:
  learnwatch <target.json> [--analyzer name]

Keys:
  space   perform one learning step
  r       run to completion
  q, esc  quit
`

// App holds all viewer state.
type App struct {
	screen  tcell.Screen
	target  *dfa.DFA
	mq      *oracle.Counting
	eq      oracle.Equivalence
	learner *ttt.Learner

	started bool
	done    bool
	rounds  int
	message string
	lastCE  string
	log     []string
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "--help" {
		fmt.Print(usageText)
		os.Exit(1)
	}

	analyzerName := "binary-search"
	for i := 2; i < len(os.Args); i++ {
		if os.Args[i] == "--analyzer" && i+1 < len(os.Args) {
			analyzerName = os.Args[i+1]
			i++
		}
	}
	analyzer, err := acex.ByName(analyzerName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
	target, err := dfafile.ParseJSON(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}

	app := &App{
		target: target,
		mq:     oracle.NewCounting(oracle.NewSimulation(target)),
		eq:     oracle.NewSimEquivalence(target),
	}
	app.learner = ttt.New(target.Alphabet(), app.mq, ttt.Options{Analyzer: analyzer})
	app.message = "space: step  r: run  q: quit"

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing screen: %v\n", err)
		os.Exit(1)
	}
	app.screen = screen
	defer screen.Fini()

	app.run()
}

func (app *App) run() {
	for {
		app.draw()
		ev := app.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventResize:
			app.screen.Sync()
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape || ev.Rune() == 'q':
				return
			case ev.Rune() == ' ':
				app.step()
			case ev.Rune() == 'r':
				for app.step() {
				}
			}
		}
	}
}

// step performs one learning step: the initial Start, or one equivalence
// query plus refinement. Returns false when learning is finished or failed.
func (app *App) step() bool {
	if app.done {
		return false
	}
	ctx := context.Background()

	if !app.started {
		if err := app.learner.Start(ctx); err != nil {
			app.fail(err)
			return false
		}
		app.started = true
		app.logf("started: %d state(s)", app.learner.Hypothesis().NumStates())
		return true
	}

	hyp := app.learner.DFA().Complete()
	ce, err := app.eq.FindCounterexample(hyp, app.target.Alphabet())
	if err != nil {
		app.fail(err)
		return false
	}
	if ce == nil {
		app.done = true
		app.message = "equivalent - learning finished (q to quit)"
		app.logf("finished with %d states", app.learner.Hypothesis().NumStates())
		return false
	}

	app.rounds++
	app.lastCE = fmt.Sprintf("%s -> %v", ce.Word(), ce.Output)
	if _, err := app.learner.Refine(ctx, ce); err != nil {
		app.fail(err)
		return false
	}
	app.logf("round %d: ce %s, now %d states", app.rounds, app.lastCE,
		app.learner.Hypothesis().NumStates())
	return true
}

func (app *App) fail(err error) {
	app.done = true
	app.message = fmt.Sprintf("error: %v", err)
}

func (app *App) logf(format string, args ...any) {
	app.log = append(app.log, fmt.Sprintf(format, args...))
	if len(app.log) > 200 {
		app.log = app.log[len(app.log)-200:]
	}
}
