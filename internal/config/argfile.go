package config

import (
	"os"
	"strings"
)

// tokenStream scans a sequence of argument vectors, transparently splicing
// in the contents of any "@file" token as a fresh argument vector at the
// point it is encountered. Each pushed vector carries its own cursor, so
// "parser state (option index) is saved, reset, and restored across the
// recursion" (spec.md §4.9) falls out of the stack discipline for free;
// nesting is not limited to one level, though spec.md only requires that
// much.
type tokenStream struct {
	stack []frame
}

type frame struct {
	tokens []string
	idx    int
}

func newTokenStream(args []string) *tokenStream {
	return &tokenStream{stack: []frame{{tokens: args}}}
}

// next returns the next token, expanding @file references as it goes.
// ok is false once every pushed vector is exhausted.
func (ts *tokenStream) next() (tok string, ok bool, err error) {
	for len(ts.stack) > 0 {
		top := &ts.stack[len(ts.stack)-1]
		if top.idx >= len(top.tokens) {
			ts.stack = ts.stack[:len(ts.stack)-1]
			continue
		}
		t := top.tokens[top.idx]
		top.idx++
		if len(t) > 1 && t[0] == '@' {
			lines, ferr := readArgFile(t[1:])
			if ferr != nil {
				return "", false, ferr
			}
			ts.stack = append(ts.stack, frame{tokens: lines})
			continue
		}
		return t, true, nil
	}
	return "", false, nil
}

// readArgFile reads path and splits it into a fresh argument vector, one
// argument per non-empty line.
func readArgFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, usageErrorf("cannot read argument file %q: %s", path, err)
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}
