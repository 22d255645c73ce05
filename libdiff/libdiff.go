// Package libdiff produces line-oriented diffs between serialized model
// documents, for inspection tooling. It works on the persisted text, not
// the live object graph, so two sessions over different documents can be
// compared without sharing a registry.
package libdiff

import (
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/dbinfrago/py-capellambse/tree/xmlio"
)

// Line is one line of a document diff.
type Line struct {
	Op   Op
	Text string
}

type Op int

const (
	Equal Op = iota
	Insert
	Delete
)

// Documents serializes both documents and diffs them line by line.
func Documents(from, to *xmlio.Document) ([]Line, error) {
	var fb, tb strings.Builder
	if err := (xmlio.XML{}).Persist(&fb, from); err != nil {
		return nil, err
	}
	if err := (xmlio.XML{}).Persist(&tb, to); err != nil {
		return nil, err
	}
	return Text(fb.String(), tb.String()), nil
}

// Text diffs two already-serialized documents line by line.
func Text(from, to string) []Line {
	cfg := diffpatch.New()
	fromRunes, toRunes, lines := cfg.DiffLinesToRunes(from, to)
	diffs := cfg.DiffCharsToLines(cfg.DiffMainRunes(fromRunes, toRunes, false), lines)

	var res []Line
	for _, d := range diffs {
		op := Equal
		switch d.Type {
		case diffpatch.DiffInsert:
			op = Insert
		case diffpatch.DiffDelete:
			op = Delete
		}
		for _, line := range splitLines(d.Text) {
			res = append(res, Line{Op: op, Text: line})
		}
	}
	return res
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Changed reports whether the diff contains any non-equal line.
func Changed(lines []Line) bool {
	for _, l := range lines {
		if l.Op != Equal {
			return true
		}
	}
	return false
}
