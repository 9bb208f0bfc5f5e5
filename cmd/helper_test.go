package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func TestColorFlags(t *testing.T) {
	color.NoColor = true
	raw := "  -v, --version     print version\n      --station string   station filter\nplain"

	got := string(colorFlags(raw))

	if got != raw+"\n" {
		t.Errorf("colorFlags without color should keep text, got %q", got)
	}
}

func TestRpadUsesDisplayWidth(t *testing.T) {
	tests := []struct {
		input   string
		padding int
		want    string
	}{
		{"match", 7, "match  "},
		{"回顾", 6, "回顾  "},
		{"toolong", 3, "toolong"},
	}

	for _, tt := range tests {
		if got := rpad(tt.input, tt.padding); got != tt.want {
			t.Errorf("rpad(%q, %d) = %q, want %q", tt.input, tt.padding, got, tt.want)
		}
	}
}

func TestColorUsageFunc(t *testing.T) {
	color.NoColor = true
	root := &cobra.Command{Use: "pvtag"}
	root.PersistentFlags().String("station", "", "station filter")
	sub := &cobra.Command{Use: "match DRAWING", Short: "Match labels", Run: func(*cobra.Command, []string) {}}
	sub.Flags().StringP("output", "o", "", "export path")
	root.AddCommand(sub)

	var buf bytes.Buffer
	if err := ColorUsageFunc(&buf, root); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Usage:", "Available Commands:", "match", "Match labels", "pvtag [command] --help"} {
		if !strings.Contains(out, want) {
			t.Errorf("root usage missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := ColorUsageFunc(&buf, sub); err != nil {
		t.Fatal(err)
	}
	out = buf.String()
	for _, want := range []string{"Flags:", "-o, --output", "Global Flags:", "--station"} {
		if !strings.Contains(out, want) {
			t.Errorf("subcommand usage missing %q:\n%s", want, out)
		}
	}
}
