package cli

import (
	"os"
	"strings"
	"testing"

	"github.com/alecthomas/kong"

	"github.com/ardnew/stmpl/log"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	const doc = `
config:
  log_level: debug
  log-format: text
  indent: 4
  ratio: 1.5
  data:
    - a.yaml
    - b.yaml
other:
  foo: bar
`

	r, err := resolve("config")(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		flag string
		want any
	}{
		{"log-level", "debug"},
		{"log_level", "debug"},
		{"log-format", "text"},
		{"indent", "4"},
		{"ratio", "1.5"},
		{"foo", nil},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			t.Parallel()

			flag := &kong.Flag{Value: &kong.Value{Name: tt.flag}}

			got, err := r.Resolve(nil, nil, flag)
			if err != nil {
				t.Fatal(err)
			}

			if got != tt.want {
				t.Errorf("Resolve(%q) = %#v, want %#v", tt.flag, got, tt.want)
			}
		})
	}

	list, _ := r.Resolve(nil, nil, &kong.Flag{Value: &kong.Value{Name: "data"}})

	got, ok := list.([]any)
	if !ok || len(got) != 2 || got[0] != "a.yaml" || got[1] != "b.yaml" {
		t.Errorf("Resolve(data) = %#v", list)
	}
}

func TestResolve_Ignored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"missing section", "other:\n  foo: bar\n"},
		{"scalar section", "config: 3\n"},
		{"invalid", "config: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := resolve("config")(strings.NewReader(tt.doc))
			if err != nil {
				t.Fatalf("resolve() error = %v", err)
			}

			got, err := r.Resolve(nil, nil, &kong.Flag{Value: &kong.Value{Name: "foo"}})
			if err != nil || got != nil {
				t.Errorf("Resolve() = %v, %v; want nil, nil", got, err)
			}
		})
	}
}

func TestResolve_Parser(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/config.yaml"

	const doc = "config:\n  name: from-file\n  count: 7\n"

	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	var cli struct {
		Name  string `default:"flag"`
		Count int
	}

	parser, err := kong.New(&cli, kong.Configuration(resolve("config"), path))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := parser.Parse(nil); err != nil {
		t.Fatal(err)
	}

	if cli.Name != "from-file" || cli.Count != 7 {
		t.Errorf("parsed = %+v, want {from-file 7}", cli)
	}

	if _, err := parser.Parse([]string{"--name=override"}); err != nil {
		t.Fatal(err)
	}

	if cli.Name != "override" {
		t.Errorf("Name = %q, want override", cli.Name)
	}
}

func TestLogConfigScan(t *testing.T) {
	// Mutates the package-level logger.
	defer log.Config(
		log.WithLevel(log.DefaultLevel),
		log.WithFormat(log.DefaultFormat),
		log.WithTimeLayout("RFC3339"),
		log.WithCaller(false),
	)

	tests := []struct {
		name string
		args []string
		want logConfig
	}{
		{
			name: "assigned",
			args: []string{"render", "--log-level=debug", "--log-caller", "x.tmpl"},
			want: logConfig{Level: "debug", Caller: true},
		},
		{
			name: "separate values",
			args: []string{"--log-format", "text", "--log-time-layout", "Kitchen"},
			want: logConfig{Format: "text", TimeLayout: "Kitchen"},
		},
		{
			name: "negated",
			args: []string{"--no-log-caller"},
			want: logConfig{Caller: false},
		},
		{
			name: "after terminator",
			args: []string{"--", "--log-level=error"},
			want: logConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got logConfig

			got.scan(tt.args)

			if got != tt.want {
				t.Errorf("scan(%q) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}
