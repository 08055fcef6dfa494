// Package preset reads and writes parameter presets: YAML files listing
// (index, value) pairs that the control side pushes into the transfer.
//
// Format:
//
//	version: v1.0.0
//	name: warm pad
//	parameters:
//	  - index: 1
//	    value: 0.5
//	  - index: 2
//	    value: 0.25
//
// The version is a semantic version of the file format (checked with
// golang.org/x/mod/semver); any v1.x.y is accepted. Values are applied
// verbatim, including .nan and .inf.
package preset

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// FormatVersion is the version written by Marshal.
const FormatVersion = "v1.0.0"

// supportedMajor is the only major format version Parse accepts.
const supportedMajor = "v1"

// Preset is a named set of parameter values.
type Preset struct {
	Version    string  `yaml:"version"`
	Name       string  `yaml:"name,omitempty"`
	Parameters []Entry `yaml:"parameters"`
}

// Entry is one parameter assignment.
type Entry struct {
	Index int     `yaml:"index"`
	Value float32 `yaml:"value"`

	line int
}

// Line returns the source line of the entry, or 0 for presets not read from YAML.
func (e Entry) Line() int {
	return e.line
}

// Setter receives parameter values. *plugin.Plugin satisfies it.
type Setter interface {
	SetParameter(index int, value float32) error
}

// Load reads and parses the preset at path.
func Load(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes a preset. name is used in error messages.
func Parse(name string, data []byte) (*Preset, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{
			File:       name,
			Message:    "invalid YAML: " + err.Error(),
			Suggestion: "Check indentation and that every entry has index and value keys",
			Err:        err,
		}
	}
	if len(doc.Content) == 0 {
		return nil, &ParseError{File: name, Message: "empty preset", Suggestion: "Start the file with 'version: " + FormatVersion + "'"}
	}

	var p Preset
	if err := doc.Decode(&p); err != nil {
		return nil, &ParseError{
			File:    name,
			Message: "cannot decode preset: " + err.Error(),
			Err:     err,
		}
	}
	annotateLines(doc.Content[0], p.Parameters)

	if err := p.validate(name); err != nil {
		return nil, err
	}
	return &p, nil
}

// annotateLines copies source lines from the parameters sequence into entries.
func annotateLines(root *yaml.Node, entries []Entry) {
	if root.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "parameters" {
			continue
		}
		seq := root.Content[i+1]
		for j, item := range seq.Content {
			if j < len(entries) {
				entries[j].line = item.Line
			}
		}
		return
	}
}

func (p *Preset) validate(name string) error {
	if p.Version == "" {
		return &ParseError{
			File:       name,
			Message:    "missing version",
			Suggestion: "Add 'version: " + FormatVersion + "' at the top of the file",
		}
	}
	if !semver.IsValid(p.Version) {
		return &ParseError{
			File:       name,
			Line:       1,
			Message:    fmt.Sprintf("version %q is not a semantic version", p.Version),
			Suggestion: "Versions look like " + FormatVersion + " (note the leading v)",
		}
	}
	if major := semver.Major(p.Version); major != supportedMajor {
		return &ParseError{
			File:       name,
			Message:    fmt.Sprintf("format %s is not readable by this build (want %s.x.y)", p.Version, supportedMajor),
			Suggestion: "Re-export the preset with a matching paramxfer version",
			Err:        ErrUnsupportedVersion,
		}
	}
	for _, e := range p.Parameters {
		if e.Index < 0 {
			return &ParseError{
				File:       name,
				Line:       e.line,
				Message:    fmt.Sprintf("parameter index %d is negative", e.Index),
				Suggestion: "Parameter indices are zero-based",
			}
		}
	}
	return nil
}

// Compatible reports whether version is a format version Parse accepts.
func Compatible(version string) bool {
	return semver.IsValid(version) && semver.Major(version) == supportedMajor
}

// Newer reports whether a is a later format version than b.
func Newer(a, b string) bool {
	return semver.Compare(a, b) > 0
}

// Apply pushes every entry through s in file order, so a repeated index ends
// with its last value. It stops at the first error, annotated with the entry
// position, and returns how many entries were applied.
func Apply(p *Preset, s Setter) (int, error) {
	for i, e := range p.Parameters {
		if err := s.SetParameter(e.Index, e.Value); err != nil {
			if e.line > 0 {
				return i, fmt.Errorf("preset %q line %d: %w", p.Name, e.line, err)
			}
			return i, fmt.Errorf("preset %q entry %d: %w", p.Name, i, err)
		}
	}
	return len(p.Parameters), nil
}

// Capture builds a preset from a value snapshot, keeping non-zero values.
func Capture(name string, values []float32) *Preset {
	p := &Preset{Version: FormatVersion, Name: name}
	for i, v := range values {
		if v != 0 {
			p.Parameters = append(p.Parameters, Entry{Index: i, Value: v})
		}
	}
	return p
}

// Marshal encodes p as YAML.
func Marshal(p *Preset) ([]byte, error) {
	if p.Version == "" {
		p.Version = FormatVersion
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preset: %w", err)
	}
	return data, nil
}

// Save writes p to path.
func Save(path string, p *Preset) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write preset: %w", err)
	}
	return nil
}

// ParseAssignment parses a single "index=value" assignment, as typed on the
// command line or in the monitor.
func ParseAssignment(s string) (int, float32, error) {
	key, val, ok := strings.Cut(s, "=")
	if !ok {
		return 0, 0, fmt.Errorf("invalid assignment %q: expected index=value", s)
	}
	index, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid assignment %q: bad index: %w", s, err)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(val), 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid assignment %q: bad value: %w", s, err)
	}
	return index, float32(value), nil
}
