package linear

import (
	"strings"
	"testing"
)

func TestParseMarker(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Marker
		ok   bool
	}{
		{
			name: "spec marker",
			line: "<!-- foundry:specId=20260825_143000_auth; type=spec; v=1 -->",
			want: Marker{SpecID: "20260825_143000_auth", Type: "spec", Version: 1},
			ok:   true,
		},
		{
			name: "task marker",
			line: "<!-- foundry:specId=20260825_143000_auth; type=task; v=1; taskKey=implement-login -->",
			want: Marker{SpecID: "20260825_143000_auth", Type: "task", Version: 1, TaskKey: "implement-login"},
			ok:   true,
		},
		{
			name: "surrounding whitespace tolerated",
			line: "  <!-- foundry:specId=x; type=spec; v=1 -->  ",
			want: Marker{SpecID: "x", Type: "spec", Version: 1},
			ok:   true,
		},
		{name: "wrong prefix", line: "<!-- linearbot:specId=x; type=spec; v=1 -->"},
		{name: "missing suffix", line: "<!-- foundry:specId=x; type=spec; v=1"},
		{name: "unknown key", line: "<!-- foundry:specId=x; type=spec; v=1; color=red -->"},
		{name: "unsupported version", line: "<!-- foundry:specId=x; type=spec; v=2 -->"},
		{name: "bad type", line: "<!-- foundry:specId=x; type=epic; v=1 -->"},
		{name: "empty value", line: "<!-- foundry:specId=; type=spec; v=1 -->"},
		{name: "task without key", line: "<!-- foundry:specId=x; type=task; v=1 -->"},
		{name: "missing type", line: "<!-- foundry:specId=x; v=1 -->"},
		{name: "plain comment", line: "<!-- just a note -->"},
		{name: "not a comment", line: "# Heading"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseMarker(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("marker = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMarkerString_RoundTrip(t *testing.T) {
	for _, m := range []Marker{
		SpecMarker("20260825_143000_auth"),
		TaskMarker("20260825_143000_auth", "implement-login"),
	} {
		got, ok := ParseMarker(m.String())
		if !ok {
			t.Fatalf("ParseMarker(%q) not ok", m.String())
		}
		if got != m {
			t.Errorf("round trip = %+v, want %+v", got, m)
		}
	}
}

func TestExtractMarker_FirstNonBlankLineOnly(t *testing.T) {
	m := SpecMarker("20260825_143000_auth")

	doc := m.String() + "\n\n# Auth\n"
	if got, ok := ExtractMarker(doc); !ok || got != m {
		t.Errorf("ExtractMarker = %+v ok=%v", got, ok)
	}

	// Leading blank lines are skipped.
	if got, ok := ExtractMarker("\n\n" + m.String() + "\nbody"); !ok || got != m {
		t.Errorf("ExtractMarker with leading blanks = %+v ok=%v", got, ok)
	}

	// Prose before the marker makes the document unmarked.
	if _, ok := ExtractMarker("# Auth\n" + m.String() + "\n"); ok {
		t.Error("marker below prose should not be extracted")
	}

	if _, ok := ExtractMarker("# Plain document\n\nNo marker here.\n"); ok {
		t.Error("unmarked document reported a marker")
	}
}

func TestFindMarker_ScansTopOfDescription(t *testing.T) {
	m := TaskMarker("20260825_143000_auth", "implement-login")

	desc := "Some context first.\n\n" + m.String() + "\n\nDetails below.\n"
	if got, ok := FindMarker(desc); !ok || got != m {
		t.Errorf("FindMarker = %+v ok=%v", got, ok)
	}

	// Beyond the scan depth the marker is ignored.
	deep := strings.Repeat("filler line\n", findMarkerDepth) + m.String() + "\n"
	if _, ok := FindMarker(deep); ok {
		t.Error("marker past the scan depth should be ignored")
	}
}

func TestWithMarker_StripMarker_RoundTrip(t *testing.T) {
	m := SpecMarker("20260825_143000_auth")

	for _, body := range []string{
		"# Auth\n\nContent.\n",
		"",
		"no trailing newline",
		"\nleading blank line kept\n",
	} {
		doc := WithMarker(m, body)
		if got, ok := ExtractMarker(doc); !ok || got != m {
			t.Fatalf("ExtractMarker(WithMarker) = %+v ok=%v", got, ok)
		}
		if got := StripMarker(doc); got != body {
			t.Errorf("StripMarker = %q, want %q", got, body)
		}
	}
}

func TestStripMarker_UnmarkedUnchanged(t *testing.T) {
	doc := "# Plain\n\nNothing to strip.\n"
	if got := StripMarker(doc); got != doc {
		t.Errorf("StripMarker = %q, want unchanged", got)
	}
}
