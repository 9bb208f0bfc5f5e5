package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/pvtag/pvtag/internal/export"
)

const blockDrawing = `name: block-7
polylines:
  - [[0, 0], [5, 0], [6, 0], [10, 0]]
  - [[0, 20], [10, 20]]
texts:
  - {text: S1-01-1-01, position: [5, 2]}
  - {text: S1-01-1-02, position: [5, 22]}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	var buf bytes.Buffer
	root := newRootCommand(&app{})
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func readExport(t *testing.T, path string) export.Document {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc export.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	return doc
}

func TestMatchCommand(t *testing.T) {
	dir := t.TempDir()
	drawing := writeFile(t, dir, "block.yaml", blockDrawing)
	out := filepath.Join(dir, "block.json")
	svgPath := filepath.Join(dir, "block.svg")

	output, err := execute(t, "match", drawing, "--config", noConfig, "-o", out, "--svg", svgPath)
	if err != nil {
		t.Fatalf("match: %v\n%s", err, output)
	}

	for _, want := range []string{"block-7", "merged 2", "assigned (2)", "S1-01-1-01  #1", "wrote " + out} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}

	doc := readExport(t, out)
	if doc.Drawing != "block-7" || len(doc.Assignments) != 2 {
		t.Fatalf("unexpected export: %+v", doc)
	}
	if doc.Assignments[1].Label != "S1-01-1-02" || doc.Assignments[1].Segments[0].ID != 4 {
		t.Errorf("second assignment = %+v", doc.Assignments[1])
	}

	svgData, err := os.ReadFile(svgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(svgData), "<svg") {
		t.Error("diagram is not an SVG document")
	}
}

func TestMatchFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	drawing := writeFile(t, dir, "block.yaml", blockDrawing)
	config := writeFile(t, dir, "config.toml", "[assign]\nsearch_radius = 100\n")
	out := filepath.Join(dir, "block.json")

	// Labels sit above their wires, so looking below finds nothing.
	output, err := execute(t, "match", drawing, "--config", config, "--location", "below", "--radius", "1", "--no-merge", "-o", out)
	if err != nil {
		t.Fatalf("match: %v\n%s", err, output)
	}

	doc := readExport(t, out)
	if len(doc.Assignments) != 0 {
		t.Errorf("expected no assignments, got %+v", doc.Assignments)
	}
	if len(doc.UnassignedSegments) != 4 {
		t.Errorf("--no-merge should keep 4 segments, got %d", len(doc.UnassignedSegments))
	}
}

func TestApplyCommand(t *testing.T) {
	dir := t.TempDir()
	drawing := writeFile(t, dir, "block.yaml", blockDrawing)
	edits := writeFile(t, dir, "edits.yaml", `
- {op: remove, text: S1-01-1-02, segment: 4}
- {op: assign, text: S1-01-1-0, segment: 1}
- {op: skip, text: S1-01-1-01}
`)
	out := filepath.Join(dir, "block.json")

	output, err := execute(t, "apply", drawing, "--config", noConfig, "--edits", edits, "-o", out)
	if err != nil {
		t.Fatalf("apply: %v\n%s", err, output)
	}

	for _, want := range []string{"removed segment 4 from S1-01-1-02", "did you mean", "1 of 3 edits failed"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}

	doc := readExport(t, out)
	if len(doc.Assignments) != 0 {
		t.Errorf("expected an empty relation, got %+v", doc.Assignments)
	}
	if got := doc.ChangeLog.SkippedTexts; len(got) != 1 || got[0] != "S1-01-1-01" {
		t.Errorf("SkippedTexts = %v", got)
	}
	if len(doc.UnassignedTexts) != 2 || len(doc.UnassignedSegments) != 2 {
		t.Errorf("pools = %d texts, %d segments", len(doc.UnassignedTexts), len(doc.UnassignedSegments))
	}
}

func TestApplyRequiresEdits(t *testing.T) {
	dir := t.TempDir()
	drawing := writeFile(t, dir, "block.yaml", blockDrawing)

	if _, err := execute(t, "apply", drawing, "--config", noConfig); err == nil {
		t.Error("apply without --edits should fail")
	}
}

func TestFatalErrors(t *testing.T) {
	dir := t.TempDir()
	drawing := writeFile(t, dir, "block.yaml", blockDrawing)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing drawing", []string{"match", filepath.Join(dir, "absent.yaml"), "--config", noConfig}, "read"},
		{"invalid config", []string{"match", drawing, "--config", noConfig, "--location", "sideways"}, "invalid config"},
		{"missing config file", []string{"match", drawing, "--config", filepath.Join(dir, "absent.toml")}, "config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestVersionFlag(t *testing.T) {
	output, err := execute(t, "-v")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(output, "pvtag version: "+FullVersion) {
		t.Errorf("unexpected output %q", output)
	}
}

func TestApplyFlags(t *testing.T) {
	c := NewDefaultConfig()
	f := &globalFlags{station: "S9", noMerge: true, radius: 5, pattern: "{station}"}
	set := map[string]bool{"station": true, "no-merge": true}

	applyFlags(c, f, func(name string) bool { return set[name] })

	if c.Assign.Station != "S9" || c.Extract.Merge {
		t.Errorf("changed flags not applied: %+v %+v", c.Assign, c.Extract)
	}
	if c.Assign.SearchRadius != 50 || c.Format.InputPattern == "{station}" {
		t.Error("unchanged flags must not override the config")
	}
}

func TestDefaultExportPath(t *testing.T) {
	tests := map[string]string{
		"block.yaml":         "block.pvtag.json",
		"/tmp/a/b.json":      "/tmp/a/b.pvtag.json",
		"noext":              "noext.pvtag.json",
		"dir.v2/drawing.yml": "dir.v2/drawing.pvtag.json",
	}
	for in, want := range tests {
		if got := defaultExportPath(in); got != want {
			t.Errorf("defaultExportPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSVGColor(t *testing.T) {
	if got := svgColor("Default"); got != "black" {
		t.Errorf("svgColor(Default) = %q", got)
	}
	if got := svgColor("GREEN"); got != "green" {
		t.Errorf("svgColor(GREEN) = %q", got)
	}
	if got := svgColor("#A0B0C0"); got != "#a0b0c0" {
		t.Errorf("svgColor(#A0B0C0) = %q", got)
	}
}
