// Package dfafile provides file formats and rendering for learned automata:
// JSON serialization, sample files, Graphviz DOT output and native PNG
// rendering.
package dfafile

import (
	"encoding/json"
	"fmt"

	"github.com/ha1tch/learnkit/pkg/dfa"
	"github.com/ha1tch/learnkit/pkg/word"
)

// jsonDFA is the JSON representation of a DFA.
type jsonDFA struct {
	Name        string           `json:"name,omitempty"`
	Description string           `json:"description,omitempty"`
	Alphabet    []string         `json:"alphabet"`
	States      int              `json:"states"`
	Initial     int              `json:"initial"`
	Accepting   []int            `json:"accepting"`
	Transitions []jsonTransition `json:"transitions"`
}

type jsonTransition struct {
	From  int    `json:"from"`
	Input string `json:"input"`
	To    int    `json:"to"`
}

// ParseJSON parses a DFA from JSON.
func ParseJSON(data []byte) (*dfa.DFA, error) {
	var j jsonDFA
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}

	alphabet, err := word.NewAlphabet(j.Alphabet...)
	if err != nil {
		return nil, err
	}
	d := dfa.New(alphabet)
	accepting := make(map[int]bool, len(j.Accepting))
	for _, s := range j.Accepting {
		accepting[s] = true
	}
	for i := 0; i < j.States; i++ {
		d.AddState(accepting[i])
	}
	if j.Initial < 0 || j.Initial >= j.States {
		return nil, fmt.Errorf("initial state %d out of range", j.Initial)
	}
	d.SetInitial(j.Initial)

	for i, t := range j.Transitions {
		idx, err := alphabet.Index(t.Input)
		if err != nil {
			return nil, fmt.Errorf("transition %d: %w", i, err)
		}
		if t.From < 0 || t.From >= j.States || t.To < 0 || t.To >= j.States {
			return nil, fmt.Errorf("transition %d: state out of range", i)
		}
		d.SetTransition(t.From, idx, t.To)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// ToJSON serializes a DFA.
func ToJSON(d *dfa.DFA, name string, pretty bool) ([]byte, error) {
	j := jsonDFA{
		Name:     name,
		Alphabet: d.Alphabet().Symbols(),
		States:   d.NumStates(),
		Initial:  d.Initial(),
	}
	for s := 0; s < d.NumStates(); s++ {
		if d.IsAccepting(s) {
			j.Accepting = append(j.Accepting, s)
		}
		for i := 0; i < d.Alphabet().Size(); i++ {
			if to := d.Step(s, i); to >= 0 {
				j.Transitions = append(j.Transitions, jsonTransition{
					From:  s,
					Input: d.Alphabet().Symbol(i),
					To:    to,
				})
			}
		}
	}

	if pretty {
		return json.MarshalIndent(j, "", "  ")
	}
	return json.Marshal(j)
}
