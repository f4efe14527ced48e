package eventfmt

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/tagscan/runtime/scanner"
	"github.com/opal-lang/tagscan/runtime/tree"
)

const sample = `<div class="card" a=1 b="x${y}" ...rest>
  Hello ${name}!
  <img src="a.png">
  <!-- note -->
</div>
ul.list
  li/item(1) -- one
  li -- two`

func TestRoundTrip(t *testing.T) {
	inputs := map[string]string{
		"mixed document": sample,
		"error stream":   "div\n  span\n a",
		"empty":          "",
		"scripts":        "$ x = 1\n<% y %>\n$ {\n  z()\n}",
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			res := scanner.Parse(input, scanner.WithFilename("page.marko"))

			data, err := Marshal(res.Events)
			require.NoError(t, err)
			got, err := Unmarshal(data)
			require.NoError(t, err)

			want := res.Events
			if len(want) == 0 {
				want = []scanner.Event{}
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTripSharesTags(t *testing.T) {
	res := scanner.Parse(`<a>b</a>`)
	require.NoError(t, res.Err())

	data, err := Marshal(res.Events)
	require.NoError(t, err)
	got, err := Unmarshal(data)
	require.NoError(t, err)

	var tags []*scanner.Tag
	for _, ev := range got {
		if ev.Tag != nil {
			tags = append(tags, ev.Tag)
		}
	}
	require.Len(t, tags, 3, "openTagName, openTag and closeTag")
	assert.Same(t, tags[0], tags[1])
	assert.Same(t, tags[1], tags[2])
}

func TestDecodedStreamBuildsTheSameTree(t *testing.T) {
	res := scanner.Parse(sample)
	require.NoError(t, res.Err())

	data, err := Marshal(res.Events)
	require.NoError(t, err)
	events, err := Unmarshal(data)
	require.NoError(t, err)

	want := tree.Parse(sample)
	got := tree.Build(events)
	require.NoError(t, got.Err())
	assert.Equal(t, want.Root.String(), got.Root.String())
}

// scanFresh scans through a parser and handler instead of scanner.Parse.
func scanFresh(t *testing.T, input string) []scanner.Event {
	t.Helper()
	var events []scanner.Event
	p := scanner.New()
	require.NoError(t, p.Parse(input, scanner.HandlerFunc(func(ev *scanner.Event) {
		events = append(events, *ev)
	})))
	return events
}

func TestDigestIsDeterministic(t *testing.T) {
	first, err := Digest(scanner.Parse(sample).Events)
	require.NoError(t, err)
	second, err := Digest(scanFresh(t, sample))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := Digest(scanner.Parse(sample + "\np").Events)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestWriteReturnsDigest(t *testing.T) {
	events := scanner.Parse(sample).Events
	want, err := Digest(events)
	require.NoError(t, err)

	var buf bytes.Buffer
	written, err := Write(&buf, events)
	require.NoError(t, err)
	assert.Equal(t, want, written)

	_, read, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, read)
}

func TestReadRejectsBadInput(t *testing.T) {
	good, err := Marshal(scanner.Parse("div").Events)
	require.NoError(t, err)

	badVersion := append([]byte(nil), good...)
	binary.LittleEndian.PutUint16(badVersion[4:6], 9)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"empty", nil, "read preamble"},
		{"bad magic", append([]byte("NOPE"), good[4:]...), "invalid magic"},
		{"bad version", badVersion, "unsupported version"},
		{"truncated body", good[:len(good)-2], "CBOR decoding failed"},
		{"garbage body", append(append([]byte(nil), good[:preambleLen]...), 0xff, 0x00), "CBOR decoding failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScannerEventsValidates(t *testing.T) {
	tests := []struct {
		name   string
		stream Stream
		want   string
	}{
		{
			name:   "version",
			stream: Stream{Version: 2},
			want:   "unsupported stream version",
		},
		{
			name:   "kind",
			stream: Stream{Version: FormatVersion, Events: []Event{{Kind: "bogus"}}},
			want:   `unknown kind "bogus"`,
		},
		{
			name:   "tag index",
			stream: Stream{Version: FormatVersion, Events: []Event{{Kind: "openTag", Tag: 3}}},
			want:   "tag index 3 out of range",
		},
		{
			name: "body mode",
			stream: Stream{
				Version: FormatVersion,
				Tags:    []Tag{{Name: "a", BodyMode: "weird"}},
			},
			want: `unknown body mode "weird"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.stream.ScannerEvents()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCanonicalFlags(t *testing.T) {
	res := scanner.Parse(`<input a:=b c=1 ...d>`)
	require.NoError(t, res.Err())

	s := Canonicalize(res.Events)
	require.Len(t, s.Tags, 1)
	tag := s.Tags[0]
	assert.Equal(t, "html", tag.BodyMode)
	assert.NotZero(t, tag.Flags&TagOpenTagOnly)
	require.Len(t, tag.Attributes, 3)
	assert.Equal(t, AttrBound, tag.Attributes[0].Flags)
	assert.Zero(t, tag.Attributes[1].Flags)
	assert.Equal(t, AttrSpread, tag.Attributes[2].Flags)
}
