package render

import (
	"sort"

	"github.com/pkg/errors"
)

// Style controls how a transcript is laid out: the header detail, the
// message line format, an optional divider line between turns, and whether
// turns are separated by a blank line.
type Style struct {
	Name         string
	Divider      string
	BlankBetween bool
	// Timestamps switches message lines to "{timestamp} <{author}> {text}".
	Timestamps bool
	// DetailedHeader adds id, create/update times and current node to the
	// header instead of the bare title.
	DetailedHeader bool
	// Raw dumps the stored row as JSON instead of a rendered transcript.
	Raw bool
}

var styles = map[string]Style{
	"default": {Name: "default", BlankBetween: true},
	"irc":     {Name: "irc", Divider: "--", Timestamps: true, DetailedHeader: true},
	"full": {
		Name:           "full",
		Divider:        "-------------------------------------------------------------------------------",
		BlankBetween:   true,
		Timestamps:     true,
		DetailedHeader: true,
	},
	"raw": {Name: "raw", Raw: true},
}

// DefaultStyle is used when no style is configured.
const DefaultStyle = "default"

// StyleByName resolves a style name, failing with the list of known names.
func StyleByName(name string) (Style, error) {
	if name == "" {
		name = DefaultStyle
	}
	style, ok := styles[name]
	if !ok {
		return Style{}, errors.Errorf("render: unknown style %q (known: %v)", name, StyleNames())
	}
	return style, nil
}

// StyleNames lists the known style names, sorted.
func StyleNames() []string {
	names := make([]string, 0, len(styles))
	for name := range styles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
