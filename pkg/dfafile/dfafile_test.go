package dfafile

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"testing"

	"github.com/ha1tch/learnkit/pkg/dfa"
	"github.com/ha1tch/learnkit/pkg/oracle"
	"github.com/ha1tch/learnkit/pkg/ttt"
	"github.com/ha1tch/learnkit/pkg/word"
)

func aStar() *dfa.DFA {
	d := dfa.New(word.MustAlphabet("a", "b"))
	ok := d.AddState(true)
	sink := d.AddState(false)
	d.SetInitial(ok)
	d.SetTransition(ok, 0, ok)
	d.SetTransition(ok, 1, sink)
	d.SetTransition(sink, 0, sink)
	d.SetTransition(sink, 1, sink)
	return d
}

func TestJSONRoundTrip(t *testing.T) {
	d := aStar()
	data, err := ToJSON(d, "a-star", true)
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	parsed, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}
	if !parsed.Isomorphic(d) {
		t.Error("Round-tripped automaton differs")
	}
}

func TestParseJSONErrors(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"bad json", `{`},
		{"bad initial", `{"alphabet":["a"],"states":1,"initial":5,"transitions":[]}`},
		{"unknown input", `{"alphabet":["a"],"states":1,"initial":0,"transitions":[{"from":0,"input":"x","to":0}]}`},
		{"state range", `{"alphabet":["a"],"states":1,"initial":0,"transitions":[{"from":0,"input":"a","to":7}]}`},
	}
	for _, c := range cases {
		if _, err := ParseJSON([]byte(c.json)); err == nil {
			t.Errorf("%s: expected parse error", c.name)
		}
	}
}

func TestParseSamples(t *testing.T) {
	input := `# even number of a's
+
+ a a
- a
- a b

+ b
`
	alphabet := word.MustAlphabet("a", "b")
	samples, err := ParseSamples(strings.NewReader(input), alphabet)
	if err != nil {
		t.Fatalf("ParseSamples failed: %v", err)
	}
	if len(samples) != 5 {
		t.Fatalf("Expected 5 samples, got %d", len(samples))
	}
	if !samples[0].Accept || samples[0].Word.Len() != 0 {
		t.Errorf("First sample wrong: %+v", samples[0])
	}
	if !samples[1].Word.Equal(word.New("a", "a")) {
		t.Errorf("Second sample wrong: %+v", samples[1])
	}
	if samples[2].Accept {
		t.Error("Third sample should reject")
	}
}

func TestParseSamplesErrors(t *testing.T) {
	alphabet := word.MustAlphabet("a", "b")
	if _, err := ParseSamples(strings.NewReader("? a b\n"), alphabet); err == nil {
		t.Error("Expected error for bad label")
	}
	_, err := ParseSamples(strings.NewReader("+ a x\n"), alphabet)
	if !errors.Is(err, word.ErrUnknownSymbol) {
		t.Errorf("Expected ErrUnknownSymbol, got %v", err)
	}
}

func TestSampleAlphabet(t *testing.T) {
	input := "+ b a\n- c b\n"
	alphabet, err := SampleAlphabet(strings.NewReader(input))
	if err != nil {
		t.Fatalf("SampleAlphabet failed: %v", err)
	}
	want := []string{"b", "a", "c"}
	if alphabet.Size() != len(want) {
		t.Fatalf("Expected %d symbols, got %d", len(want), alphabet.Size())
	}
	for i, sym := range want {
		if alphabet.Symbol(i) != sym {
			t.Errorf("Symbol(%d) = %q, want %q (first-occurrence order)", i, alphabet.Symbol(i), sym)
		}
	}
}

func TestGenerateDOT(t *testing.T) {
	dot := GenerateDOT(aStar(), "a-star")

	for _, want := range []string{
		"digraph DFA {",
		"__start -> q0;",
		"q0 [shape=doublecircle];",
		"q1 [shape=circle];",
		"label=\"a-star\";",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q", want)
		}
	}
	// Parallel edges collapse into one labeled edge.
	if !strings.Contains(dot, "q1 -> q1 [label=\"a, b\"];") {
		t.Errorf("Sink self-loop not grouped:\n%s", dot)
	}
}

func TestGenerateTreeDOT(t *testing.T) {
	target := aStar()
	l := ttt.New(target.Alphabet(), oracle.NewSimulation(target), ttt.Options{})
	if _, err := l.Run(context.Background(), oracle.NewSimEquivalence(target)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	dot := GenerateTreeDOT(l.TreeSnapshot(), "dt")
	if !strings.Contains(dot, "digraph DT {") {
		t.Fatalf("Not a DT digraph:\n%s", dot)
	}
	// Root discriminator is ε; both states appear as leaves.
	if !strings.Contains(dot, "ε") {
		t.Error("Root ε discriminator missing")
	}
	for _, leaf := range []string{"q0", "q1"} {
		if !strings.Contains(dot, leaf) {
			t.Errorf("Leaf %s missing", leaf)
		}
	}
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultPNGOptions()
	opts.Width = 320
	opts.Height = 240
	opts.Title = "a-star"
	if err := RenderPNG(aStar(), &buf, opts); err != nil {
		t.Fatalf("RenderPNG failed: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Output is not valid PNG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 320 || bounds.Dy() != 240 {
		t.Errorf("Expected 320x240 image, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}
