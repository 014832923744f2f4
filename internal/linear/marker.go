package linear

import (
	"fmt"
	"strconv"
	"strings"
)

// Marker type values.
const (
	TypeSpec = "spec"
	TypeTask = "task"
)

const (
	markerPrefix  = "<!-- foundry:"
	markerSuffix  = " -->"
	markerVersion = 1

	// Issue descriptions may carry prose above the marker; documents may not.
	findMarkerDepth = 10
)

// Marker is the identity comment that ties a Linear document or issue to a
// foundry spec. Remote entities without a parseable marker are invisible to
// enumeration.
type Marker struct {
	SpecID  string
	Type    string
	Version int
	TaskKey string
}

// SpecMarker returns the marker for a spec document or its parent issue.
func SpecMarker(specID string) Marker {
	return Marker{SpecID: specID, Type: TypeSpec, Version: markerVersion}
}

// TaskMarker returns the marker for a task sub-issue.
func TaskMarker(specID, taskKey string) Marker {
	return Marker{SpecID: specID, Type: TypeTask, Version: markerVersion, TaskKey: taskKey}
}

// String renders the canonical marker comment:
//
//	<!-- foundry:specId=<id>; type=<spec|task>; v=1[; taskKey=<key>] -->
func (m Marker) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sspecId=%s; type=%s; v=%d", markerPrefix, m.SpecID, m.Type, m.Version)
	if m.TaskKey != "" {
		b.WriteString("; taskKey=" + m.TaskKey)
	}
	b.WriteString(markerSuffix)
	return b.String()
}

// ParseMarker parses a single line as a marker comment. The parse is strict:
// exact prefix and suffix, `; `-separated k=v pairs, no unknown keys, version
// 1 only, and task markers must carry a taskKey. Anything else reports false;
// a malformed marker is treated as absent, never as an error.
func ParseMarker(line string) (Marker, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, markerPrefix) || !strings.HasSuffix(line, markerSuffix) {
		return Marker{}, false
	}
	fields := line[len(markerPrefix) : len(line)-len(markerSuffix)]

	var m Marker
	for _, pair := range strings.Split(fields, "; ") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || value == "" {
			return Marker{}, false
		}
		switch key {
		case "specId":
			m.SpecID = value
		case "type":
			if value != TypeSpec && value != TypeTask {
				return Marker{}, false
			}
			m.Type = value
		case "v":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Marker{}, false
			}
			m.Version = n
		case "taskKey":
			m.TaskKey = value
		default:
			return Marker{}, false
		}
	}
	if m.SpecID == "" || m.Type == "" || m.Version != markerVersion {
		return Marker{}, false
	}
	if m.Type == TypeTask && m.TaskKey == "" {
		return Marker{}, false
	}
	return m, true
}

// ExtractMarker reads the marker of a document. Documents carry their marker
// on the first non-blank line; anything else on that line means the document
// is unmarked.
func ExtractMarker(doc string) (Marker, bool) {
	for _, line := range strings.Split(doc, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return ParseMarker(line)
	}
	return Marker{}, false
}

// FindMarker reads the marker of an issue description, scanning the first
// few lines rather than just the first.
func FindMarker(text string) (Marker, bool) {
	lines := strings.Split(text, "\n")
	if len(lines) > findMarkerDepth {
		lines = lines[:findMarkerDepth]
	}
	for _, line := range lines {
		if m, ok := ParseMarker(line); ok {
			return m, true
		}
	}
	return Marker{}, false
}

// WithMarker prepends the marker line and a blank separator to body.
func WithMarker(m Marker, body string) string {
	return m.String() + "\n\n" + body
}

// StripMarker returns the document body without its leading marker line and
// the blank line that follows it. Unmarked content comes back unchanged, so
// StripMarker(WithMarker(m, body)) == body.
func StripMarker(doc string) string {
	lines := strings.Split(doc, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, ok := ParseMarker(line); !ok {
			return doc
		}
		rest := lines[i+1:]
		if len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
			rest = rest[1:]
		}
		return strings.Join(rest, "\n")
	}
	return doc
}
