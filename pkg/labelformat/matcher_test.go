package labelformat

import (
	"reflect"
	"testing"
)

func TestMatcherParse(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		raw      string
		expected map[string]string
	}{
		{
			name:     "default pattern",
			pattern:  DefaultPattern,
			raw:      "S1-03-2-07",
			expected: map[string]string{"station": "S1", "inverter": "3", "mppt": "2", "string": "7"},
		},
		{
			name:     "surrounding whitespace is trimmed",
			pattern:  DefaultPattern,
			raw:      "  S12-10-1-11 ",
			expected: map[string]string{"station": "S12", "inverter": "10", "mppt": "1", "string": "11"},
		},
		{
			name:     "case-insensitive literals",
			pattern:  "INV{inv:02}/STR{str}",
			raw:      "inv04/str9",
			expected: map[string]string{"inv": "4", "str": "9"},
		},
		{
			name:     "derived field",
			pattern:  "{inv}.{mppt}{id=inv*10+mppt}",
			raw:      "3.2",
			expected: map[string]string{"inv": "3", "mppt": "2", "id": "32"},
		},
		{
			name:     "fractional derived field",
			pattern:  "{a}/{b}{ratio=a/b}",
			raw:      "3/2",
			expected: map[string]string{"a": "3", "b": "2", "ratio": "1.5"},
		},
		{
			name:     "derived from derived",
			pattern:  "{a}{b=a*2}{c=(b-1)%4}",
			raw:      "5",
			expected: map[string]string{"a": "5", "b": "10", "c": "1"},
		},
		{
			name:     "literal only",
			pattern:  "SPARE",
			raw:      "spare",
			expected: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compile(tt.pattern)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}

			got, ok := m.Parse(tt.raw)
			if !ok {
				t.Fatalf("Expected %q to match %q", tt.raw, tt.pattern)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestMatcherNoMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		raw     string
	}{
		{"wrong width", DefaultPattern, "S1-3-2-07"},
		{"trailing text", DefaultPattern, "S1-03-2-07x"},
		{"missing part", DefaultPattern, "S1-03-2"},
		{"division by zero", "{a}/{b}{c=a/b}", "4/0"},
		{"non-numeric operand", "{a}{c=a+1}", "x"},
		{"empty", DefaultPattern, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compile(tt.pattern)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			if fields, ok := m.Parse(tt.raw); ok {
				t.Errorf("Expected no match for %q, got %v", tt.raw, fields)
			}
		})
	}
}

func TestCaseSensitiveMatch(t *testing.T) {
	m, err := CompileWithOptions("INV{n}", MatchOptions{CaseSensitive: true})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if _, ok := m.Parse("inv1"); ok {
		t.Error("Expected case-sensitive literal to reject lower case")
	}
	if _, ok := m.Parse("INV1"); !ok {
		t.Error("Expected exact case to match")
	}
}

func TestMatcherFields(t *testing.T) {
	m, err := Compile("{inv}.{mppt:02}{id=inv*100+mppt}")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	expected := []string{"inv", "mppt", "id"}
	if got := m.Fields(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
	if m.Pattern() != "{inv}.{mppt:02}{id=inv*100+mppt}" {
		t.Errorf("Unexpected pattern %q", m.Pattern())
	}
}

func TestFormat(t *testing.T) {
	fields := map[string]string{"station": "S1", "inverter": "3", "mppt": "2", "string": "7"}

	tests := []struct {
		name     string
		pattern  string
		expected string
	}{
		{"round trip", DefaultPattern, "S1-03-2-07"},
		{"reordered", "{station}/INV{inverter:03}/STR{string}", "S1/INV003/STR7"},
		{"derived over input fields", "{station}.{n=inverter*10+mppt}", "S1.32"},
		{"escaped braces", "{{{station}}}", "{S1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.pattern, fields)
			if err != nil {
				t.Fatalf("Format failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestFormatMissingField(t *testing.T) {
	if _, err := Format("{station}-{mppt}", map[string]string{"station": "S1"}); err == nil {
		t.Error("Expected missing field error")
	}
}
