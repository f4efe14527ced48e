// Package source holds the immutable template text and the offset
// arithmetic every other package shares: byte ranges, lazy text extraction
// and line/column resolution.
package source

import (
	"fmt"
	"sort"

	"github.com/opal-lang/tagscan/core/invariant"
)

// Range is a half-open byte interval [Start, End) into a Source.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered.
func (r Range) Len() int { return r.End - r.Start }

// Empty reports whether the range covers no bytes.
func (r Range) Empty() bool { return r.End == r.Start }

// Contains reports whether offset lies inside the range.
func (r Range) Contains(offset int) bool { return offset >= r.Start && offset < r.End }

func (r Range) String() string { return fmt.Sprintf("%d..%d", r.Start, r.End) }

// Location is a human-facing position. Line and Column are 1-based; Column
// counts bytes.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (l Location) String() string { return fmt.Sprintf("%d:%d", l.Line, l.Column) }

// Source is an immutable template buffer.
type Source struct {
	Name  string
	Text  string
	lines *LineIndex
}

// New wraps text. The line table is built on first use.
func New(name, text string) *Source {
	return &Source{Name: name, Text: text}
}

// Len returns the size of the buffer in bytes.
func (s *Source) Len() int { return len(s.Text) }

// Read returns the text covered by r.
func (s *Source) Read(r Range) string {
	invariant.InRange(r.Start, 0, len(s.Text), "range start")
	invariant.InRange(r.End, r.Start, len(s.Text), "range end")
	return s.Text[r.Start:r.End]
}

// Lines returns the line table, building it once.
func (s *Source) Lines() *LineIndex {
	if s.lines == nil {
		s.lines = NewLineIndex(s.Text)
	}
	return s.lines
}

// PositionAt resolves a byte offset.
func (s *Source) PositionAt(offset int) Location {
	return s.Lines().PositionAt(offset)
}

// RangeLocation resolves both ends of a range.
func (s *Source) RangeLocation(r Range) (start, end Location) {
	return s.Lines().RangeLocation(r)
}

// LineIndex maps byte offsets to line/column pairs by binary search over the
// offsets at which each line begins.
type LineIndex struct {
	starts []int
	size   int
}

// NewLineIndex scans text once for '\n'. A "\r\n" pair ends a line at the
// '\n', so the '\r' is the last column of its line.
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts, size: len(text)}
}

// LineCount returns the number of lines, counting a trailing empty line.
func (li *LineIndex) LineCount() int { return len(li.starts) }

// LineStart returns the offset of the first byte of 1-based line n.
func (li *LineIndex) LineStart(line int) int {
	invariant.InRange(line, 1, len(li.starts), "line")
	return li.starts[line-1]
}

// LineRange returns the range of 1-based line n without its terminator.
func (li *LineIndex) LineRange(text string, line int) Range {
	start := li.LineStart(line)
	end := li.size
	if line < len(li.starts) {
		end = li.starts[line] - 1
	}
	if end > start && text[end-1] == '\r' {
		end--
	}
	return Range{Start: start, End: end}
}

// PositionAt resolves offset; offsets past the end clamp to the end.
func (li *LineIndex) PositionAt(offset int) Location {
	if offset < 0 {
		offset = 0
	}
	if offset > li.size {
		offset = li.size
	}
	// First line whose start is beyond offset, minus one.
	i := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	return Location{Line: i + 1, Column: offset - li.starts[i] + 1}
}

// RangeLocation resolves both ends of r.
func (li *LineIndex) RangeLocation(r Range) (start, end Location) {
	return li.PositionAt(r.Start), li.PositionAt(r.End)
}
