package dfafile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ha1tch/learnkit/pkg/rpni"
	"github.com/ha1tch/learnkit/pkg/word"
)

// ParseSamples reads a sample file: one sample per line, a `+` or `-` label
// followed by whitespace-separated symbols. Blank lines and lines starting
// with `#` are ignored.
func ParseSamples(r io.Reader, alphabet *word.Alphabet) ([]rpni.Sample, error) {
	var samples []rpni.Sample
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		var accept bool
		switch fields[0] {
		case "+":
			accept = true
		case "-":
			accept = false
		default:
			return nil, fmt.Errorf("line %d: expected + or - label, got %q", lineNo, fields[0])
		}

		syms := fields[1:]
		for _, s := range syms {
			if !alphabet.Contains(s) {
				return nil, fmt.Errorf("line %d: %w: %q", lineNo, word.ErrUnknownSymbol, s)
			}
		}
		samples = append(samples, rpni.Sample{Word: word.New(syms...), Accept: accept})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// SampleAlphabet collects the distinct symbols occurring in a sample file,
// in first-occurrence order. Useful when the alphabet is not given
// explicitly.
func SampleAlphabet(r io.Reader) (*word.Alphabet, error) {
	var syms []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		for _, s := range fields[1:] {
			if !seen[s] {
				seen[s] = true
				syms = append(syms, s)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return word.NewAlphabet(syms...)
}
