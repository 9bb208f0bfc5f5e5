package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pvtag/pvtag/internal/manager"
)

// Edit is one manual operation of an edit script.
type Edit struct {
	Op      string `yaml:"op"`
	Text    string `yaml:"text,omitempty"`
	Segment *int   `yaml:"segment,omitempty"`
	With    string `yaml:"with,omitempty"`

	line int
}

// UnmarshalYAML records the source line for error messages.
func (e *Edit) UnmarshalYAML(node *yaml.Node) error {
	type plain Edit
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*e = Edit(p)
	e.line = node.Line
	return nil
}

func (e Edit) String() string {
	switch e.Op {
	case "assign", "remove":
		seg := "?"
		if e.Segment != nil {
			seg = fmt.Sprint(*e.Segment)
		}
		return fmt.Sprintf("%s %s %s", e.Op, e.Text, seg)
	case "swap":
		return fmt.Sprintf("swap %s %s", e.Text, e.With)
	case "reset":
		return "reset"
	default:
		return fmt.Sprintf("%s %s", e.Op, e.Text)
	}
}

func (e Edit) validate() error {
	var missing []string
	need := func(ok bool, field string) {
		if !ok {
			missing = append(missing, field)
		}
	}

	switch e.Op {
	case "assign", "remove":
		need(e.Text != "", "text")
		need(e.Segment != nil, "segment")
	case "skip", "custom":
		need(e.Text != "", "text")
	case "swap":
		need(e.Text != "", "text")
		need(e.With != "", "with")
	case "reset":
	case "":
		return errors.New("missing op")
	default:
		return fmt.Errorf("unknown op %q", e.Op)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s needs %s", e.Op, strings.Join(missing, " and "))
	}
	return nil
}

// ParseEdits decodes an edit script: a YAML list of operations.
func ParseEdits(data []byte) ([]Edit, error) {
	var edits []Edit
	if err := yaml.Unmarshal(data, &edits); err != nil {
		return nil, fmt.Errorf("failed to decode edit script: %w", err)
	}

	var errs []error
	for i, e := range edits {
		if err := e.validate(); err != nil {
			errs = append(errs, fmt.Errorf("edit %d (line %d): %w", i+1, e.line, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return edits, nil
}

// ReadEdits loads an edit script from path.
func ReadEdits(path string) ([]Edit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read edit script: %w", err)
	}
	return ParseEdits(data)
}

// Apply runs the edit against m.
func (e Edit) Apply(m *manager.Manager) manager.Result {
	switch e.Op {
	case "assign":
		return m.Assign(e.Text, *e.Segment)
	case "remove":
		return m.Remove(e.Text, *e.Segment)
	case "skip":
		return m.Skip(e.Text)
	case "swap":
		return m.Swap(e.Text, e.With)
	case "reset":
		return m.ResetToOriginal()
	case "custom":
		return m.RegisterCustomLabel(e.Text)
	}
	return manager.Result{
		Kind:    manager.KindInvalid,
		Err:     manager.ErrInvalid,
		Message: fmt.Sprintf("unknown op %q", e.Op),
	}
}

// applyEdits runs every edit in order, printing each result. A failed edit
// does not stop the script. It returns the number of failures.
func applyEdits(w io.Writer, m *manager.Manager, edits []Edit) int {
	failed := 0
	for i, e := range edits {
		res := e.Apply(m)
		printResult(w, i+1, e, res)
		if !res.Success {
			failed++
		}
	}
	return failed
}
