// Command learn infers DFAs: actively with the TTT algorithm against a
// target automaton, or passively with blue-fringe RPNI from a sample file.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ha1tch/learnkit/pkg/acex"
	"github.com/ha1tch/learnkit/pkg/dfa"
	"github.com/ha1tch/learnkit/pkg/dfafile"
	"github.com/ha1tch/learnkit/pkg/oracle"
	"github.com/ha1tch/learnkit/pkg/rpni"
	"github.com/ha1tch/learnkit/pkg/ttt"
)

const usage = `learn - DFA learning toolkit

Usage:
  learn <command> [options]

Commands:
  active     Learn a DFA from a target automaton with TTT
  rpni       Learn a DFA from a sample file with blue-fringe RPNI
  dot        Generate Graphviz DOT output for a model
  png        Render a model to PNG
  info       Show model information

Examples:
  learn active target.json -o learned.json
  learn active target.json --analyzer linear-fwd --depth 8
  learn active target.json --random 500 --seed 42
  learn rpni samples.txt -o learned.json --order canonical
  learn dot learned.json | dot -Tpng -o learned.png
  learn png learned.json -o learned.png
  learn info learned.json

Use "learn <command> -h" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "active":
		cmdActive(args)
	case "rpni":
		cmdRPNI(args)
	case "dot":
		cmdDot(args)
	case "png":
		cmdPNG(args)
	case "info":
		cmdInfo(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func loadModel(path string) *dfa.DFA {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("Error reading %s: %v", path, err)
	}
	d, err := dfafile.ParseJSON(data)
	if err != nil {
		fatal("Error parsing %s: %v", path, err)
	}
	return d
}

func writeModel(d *dfa.DFA, name, output string, pretty bool) {
	data, err := dfafile.ToJSON(d, name, pretty)
	if err != nil {
		fatal("Error serializing model: %v", err)
	}
	if output == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(output, append(data, '\n'), 0644); err != nil {
		fatal("Error writing %s: %v", output, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", output)
}

func cmdActive(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: learn active <target.json> [-o output] [--analyzer name] [--depth n] [--random n] [--seed n] [--first-block] [--pretty]")
		os.Exit(1)
	}

	input := args[0]
	var output string
	analyzerName := "binary-search"
	depth := 0
	randomSamples := 0
	var seed int64 = 1
	firstBlock := false
	pretty := false

	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-o", "--output":
			if i+1 < len(args) {
				output = args[i+1]
				i++
			}
		case "--analyzer":
			if i+1 < len(args) {
				analyzerName = args[i+1]
				i++
			}
		case "--depth":
			if i+1 < len(args) {
				fmt.Sscanf(args[i+1], "%d", &depth)
				i++
			}
		case "--random":
			if i+1 < len(args) {
				fmt.Sscanf(args[i+1], "%d", &randomSamples)
				i++
			}
		case "--seed":
			if i+1 < len(args) {
				fmt.Sscanf(args[i+1], "%d", &seed)
				i++
			}
		case "--first-block":
			firstBlock = true
		case "--pretty":
			pretty = true
		}
	}

	analyzer, err := acex.ByName(analyzerName)
	if err != nil {
		fatal("Error: %v", err)
	}

	target := loadModel(input)
	mq := oracle.NewCounting(oracle.NewSimulation(target))
	var eq oracle.Equivalence
	switch {
	case randomSamples > 0:
		maxLength := depth
		if maxLength == 0 {
			maxLength = 2*target.NumStates() + 4
		}
		eq = oracle.NewRandomWordEquivalence(target, maxLength, randomSamples, seed)
	case depth > 0:
		eq = oracle.NewBFSEquivalence(target, depth)
	default:
		eq = oracle.NewSimEquivalence(target)
	}

	learner := ttt.New(target.Alphabet(), mq, ttt.Options{
		Analyzer:       analyzer,
		FirstBlockOnly: firstBlock,
	})
	learned, err := learner.Run(context.Background(), eq)
	if err != nil {
		fatal("Learning failed: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Learned %d states with %d membership queries (%s)\n",
		learned.NumStates(), mq.Queries(), analyzer.Name())
	writeModel(learned, "learned", output, pretty)
}

func cmdRPNI(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: learn rpni <samples.txt> [-o output] [--order canonical|fifo|lex] [--parallel] [--nondet] [--pretty]")
		os.Exit(1)
	}

	input := args[0]
	var output string
	orderName := "canonical"
	parallel := false
	nondet := false
	pretty := false

	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-o", "--output":
			if i+1 < len(args) {
				output = args[i+1]
				i++
			}
		case "--order":
			if i+1 < len(args) {
				orderName = args[i+1]
				i++
			}
		case "--parallel":
			parallel = true
		case "--nondet":
			nondet = true
		case "--pretty":
			pretty = true
		}
	}

	var order rpni.Order
	switch orderName {
	case "canonical":
		order = rpni.OrderCanonical
	case "fifo":
		order = rpni.OrderFIFO
	case "lex":
		order = rpni.OrderLexMin
	default:
		fatal("Unknown order %q", orderName)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		fatal("Error reading %s: %v", input, err)
	}
	alphabet, err := dfafile.SampleAlphabet(strings.NewReader(string(data)))
	if err != nil {
		fatal("Error scanning alphabet: %v", err)
	}
	samples, err := dfafile.ParseSamples(strings.NewReader(string(data)), alphabet)
	if err != nil {
		fatal("Error parsing samples: %v", err)
	}

	learner := rpni.New(alphabet, rpni.Options{
		Order:            order,
		Parallel:         parallel,
		NonDeterministic: nondet,
	})
	learned, err := learner.ComputeModel(context.Background(), samples)
	if err != nil {
		fatal("Learning failed: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Learned %d states from %d samples\n",
		learned.NumStates(), len(samples))
	writeModel(learned, "learned", output, pretty)
}

func cmdDot(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: learn dot <model.json> [--title title]")
		os.Exit(1)
	}

	title := ""
	for i := 1; i < len(args); i++ {
		if args[i] == "--title" && i+1 < len(args) {
			title = args[i+1]
			i++
		}
	}

	d := loadModel(args[0])
	fmt.Print(dfafile.GenerateDOT(d, title))
}

func cmdPNG(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: learn png <model.json> [-o output.png] [--title title]")
		os.Exit(1)
	}

	output := strings.TrimSuffix(args[0], ".json") + ".png"
	opts := dfafile.DefaultPNGOptions()
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-o", "--output":
			if i+1 < len(args) {
				output = args[i+1]
				i++
			}
		case "--title":
			if i+1 < len(args) {
				opts.Title = args[i+1]
				i++
			}
		}
	}

	d := loadModel(args[0])
	f, err := os.Create(output)
	if err != nil {
		fatal("Error creating %s: %v", output, err)
	}
	defer f.Close()
	if err := dfafile.RenderPNG(d, f, opts); err != nil {
		fatal("Error rendering: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", output)
}

func cmdInfo(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: learn info <model.json>")
		os.Exit(1)
	}

	d := loadModel(args[0])
	accepting := 0
	transitions := 0
	for s := 0; s < d.NumStates(); s++ {
		if d.IsAccepting(s) {
			accepting++
		}
		for i := 0; i < d.Alphabet().Size(); i++ {
			if d.Step(s, i) >= 0 {
				transitions++
			}
		}
	}
	minimal := d.Minimize()

	fmt.Printf("States:      %d\n", d.NumStates())
	fmt.Printf("Accepting:   %d\n", accepting)
	fmt.Printf("Alphabet:    %v\n", d.Alphabet().Symbols())
	fmt.Printf("Transitions: %d\n", transitions)
	fmt.Printf("Initial:     q%d\n", d.Initial())
	if minimal.NumStates() < d.NumStates() {
		fmt.Printf("Minimal:     no (%d states after minimization)\n", minimal.NumStates())
	} else {
		fmt.Printf("Minimal:     yes\n")
	}
}
