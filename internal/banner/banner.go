// Package banner renders the message shown for commands the fake shell does
// not know. Templates use shell-style placeholders: $name, ${name} and $$ for
// a literal dollar sign. Placeholders with no value are left untouched.
package banner

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`(?i)\$(?:(\$)|([_a-z][_a-z0-9]*)|\{([_a-z][_a-z0-9]*)\})`)

type segment struct {
	text string // literal text, or the raw placeholder when name is set
	name string
}

// Template is a parsed banner. It is immutable and safe for concurrent use.
type Template struct {
	segments []segment
}

// Parse splits text into literal runs and placeholders. It never fails:
// malformed placeholders are kept as literal text.
func Parse(text string) *Template {
	var segs []segment
	last := 0
	for _, m := range placeholder.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			segs = append(segs, segment{text: text[last:m[0]]})
		}
		switch {
		case m[2] >= 0:
			segs = append(segs, segment{text: "$"})
		case m[4] >= 0:
			segs = append(segs, segment{text: text[m[0]:m[1]], name: text[m[4]:m[5]]})
		default:
			segs = append(segs, segment{text: text[m[0]:m[1]], name: text[m[6]:m[7]]})
		}
		last = m[1]
	}
	if last < len(text) {
		segs = append(segs, segment{text: text[last:]})
	}
	return &Template{segments: segs}
}

// Load reads and parses the template file at path.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read banner %s: %w", path, err)
	}
	return Parse(string(data)), nil
}

// Render substitutes vars into the template.
func (t *Template) Render(vars map[string]string) string {
	var b strings.Builder
	for _, s := range t.segments {
		if s.name == "" {
			b.WriteString(s.text)
			continue
		}
		if v, ok := vars[s.name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(s.text)
		}
	}
	return b.String()
}
