package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
)

// captureStdout redirects command output for the duration of the test.
// Tests using it must not run in parallel.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer

	prev := stdout
	stdout = &buf

	t.Cleanup(func() { stdout = prev })

	return &buf
}

const inspectSource = "a{% if x %}{{ y }}{% end %}{# note #}"

func TestInspectJSON(t *testing.T) {
	out := captureStdout(t)
	path := writeTemp(t, t.TempDir(), "in.tmpl", inspectSource)

	err := (&InspectJSON{Indent: 2, Source: path}).Run(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]any

	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}

	if _, ok := doc["root"]; !ok {
		t.Errorf("output missing root: %s", out)
	}

	if !strings.Contains(out.String(), `"y"`) {
		t.Errorf("output missing variable fragment: %s", out)
	}
}

func TestInspectYAML(t *testing.T) {
	out := captureStdout(t)
	path := writeTemp(t, t.TempDir(), "in.tmpl", inspectSource)

	err := (&InspectYAML{Indent: 2, Source: path}).Run(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	var doc map[string]any

	if err := yaml.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out)
	}

	if _, ok := doc["root"]; !ok {
		t.Errorf("output missing root: %s", out)
	}
}

func TestInspectTokens(t *testing.T) {
	out := captureStdout(t)
	path := writeTemp(t, t.TempDir(), "in.tmpl", "a{{ b }}{% end %}")

	err := (&InspectTokens{Source: path}).Run(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		`text     0:1 "a"`,
		`variable 1:8 "b"`,
		`block    8:17 "end"`,
		``,
	}, "\n")

	if out.String() != want {
		t.Errorf("tokens =\n%s\nwant\n%s", out, want)
	}
}

func TestInspectTokens_Unterminated(t *testing.T) {
	captureStdout(t)

	path := writeTemp(t, t.TempDir(), "in.tmpl", "a{{ b")

	if err := (&InspectTokens{Source: path}).Run(t.Context()); err == nil {
		t.Error("expected an error for an unterminated tag")
	}
}
