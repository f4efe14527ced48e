package source

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPositionAt(t *testing.T) {
	text := "div\n  span\r\n\n- hi"
	li := NewLineIndex(text)

	tests := []struct {
		name   string
		offset int
		want   Location
	}{
		{"start", 0, Location{1, 1}},
		{"end of first line", 3, Location{1, 4}},
		{"second line indent", 4, Location{2, 1}},
		{"span", 6, Location{2, 3}},
		{"carriage return", 10, Location{2, 7}},
		{"blank line", 12, Location{3, 1}},
		{"last line", 13, Location{4, 1}},
		{"end of input", len(text), Location{4, 5}},
		{"negative clamps", -5, Location{1, 1}},
		{"past end clamps", 100, Location{4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, li.PositionAt(tt.offset)); diff != "" {
				t.Errorf("PositionAt(%d) mismatch (-want +got):\n%s", tt.offset, diff)
			}
		})
	}
}

func TestRangeLocationAndRead(t *testing.T) {
	src := New("t.marko", "<div>\n  hi\n</div>")
	r := Range{Start: 8, End: 10}

	if got := src.Read(r); got != "hi" {
		t.Fatalf("Read = %q, want %q", got, "hi")
	}
	start, end := src.RangeLocation(r)
	if diff := cmp.Diff([]Location{{2, 3}, {2, 5}}, []Location{start, end}); diff != "" {
		t.Errorf("RangeLocation mismatch (-want +got):\n%s", diff)
	}
	if src.Lines().LineCount() != 3 {
		t.Errorf("LineCount = %d, want 3", src.Lines().LineCount())
	}
}

func TestLineRange(t *testing.T) {
	text := "a\r\nbc\n"
	li := NewLineIndex(text)

	got := []string{
		text[li.LineRange(text, 1).Start:li.LineRange(text, 1).End],
		text[li.LineRange(text, 2).Start:li.LineRange(text, 2).End],
		text[li.LineRange(text, 3).Start:li.LineRange(text, 3).End],
	}
	if diff := cmp.Diff([]string{"a", "bc", ""}, got); diff != "" {
		t.Errorf("LineRange mismatch (-want +got):\n%s", diff)
	}
}

func TestRangeHelpers(t *testing.T) {
	r := Range{Start: 2, End: 5}
	if r.Len() != 3 || r.Empty() || !r.Contains(4) || r.Contains(5) {
		t.Errorf("unexpected helpers for %v", r)
	}
	if r.String() != "2..5" {
		t.Errorf("String = %q", r.String())
	}
}
