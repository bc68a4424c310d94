package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ardnew/stmpl/template"
)

func TestRenderRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		template  string
		data      string
		statement string
		execute   []string
		language  Language
		want      string
	}{
		{
			name:     "data file",
			template: "Hello {{ name }}!{% for s in items %}[{{ s }}]{% end %}",
			data:     "name: world\nitems: [a, b]\n",
			want:     "Hello world![a][b]",
		},
		{
			name:     "json data file",
			template: "{{ user.name }}",
			data:     `{"user": {"name": "ada"}}`,
			want:     "ada",
		},
		{
			name:     "execute order",
			template: "{{ x }}",
			data:     "x: data\n",
			execute:  []string{`x = "flag"`},
			want:     "flag",
		},
		{
			name:      "statement file last",
			template:  "{{ x }}-{{ y }}",
			execute:   []string{`x = "flag"`},
			statement: "x = \"file\"\ny = x + \"!\"\n",
			want:      "file-file!",
		},
		{
			name:     "starlark",
			template: "{{ name.upper() }}{% for i, c in enumerate(name.elems()) %}{{ i }}{% end %}",
			execute:  []string{`name = "abc"`},
			language: Language{Lang: "starlark"},
			want:     "ABC012",
		},
		{
			name:     "html escape",
			template: "{{ v }}|{{ __nonescape__(v) }}",
			execute:  []string{`v = "<b>"`},
			language: Language{Escape: "html"},
			want:     "&lt;b&gt;|<b>",
		},
		{
			name:     "xml escape",
			template: "{{ v }}",
			execute:  []string{`v = "a&b"`},
			language: Language{Escape: "xml"},
			want:     "a&amp;b",
		},
		{
			name:     "url escape",
			template: "{{ v }}",
			execute:  []string{`v = "a b&c"`},
			language: Language{Escape: "url"},
			want:     "a+b%26c",
		},
		{
			name:     "declared encoding",
			template: "{% encoding %}latin1{% end %}caf\xe9",
			want:     "caf\xe9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()

			r := &Render{
				Language:  tt.language,
				Execute:   tt.execute,
				Output:    filepath.Join(dir, "out"),
				Templates: []string{writeTemp(t, dir, "in.tmpl", tt.template)},
			}

			if tt.data != "" {
				r.Data = []string{writeTemp(t, dir, "data.yaml", tt.data)}
			}

			if tt.statement != "" {
				r.Filename = writeTemp(t, dir, "stmts", tt.statement)
			}

			if err := r.Run(t.Context()); err != nil {
				t.Fatalf("Render.Run() error = %v", err)
			}

			got, err := os.ReadFile(r.Output)
			if err != nil {
				t.Fatal(err)
			}

			if string(got) != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderRun_MultipleTemplates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeTemp(t, dir, "a.tmpl", "A{{ n }}\n")
	b := writeTemp(t, dir, "b.tmpl", "B{{ n }}\n")

	r := &Render{
		Execute:   []string{"n = 1"},
		Output:    filepath.Join(dir, "out"),
		Templates: []string{a, b, a},
	}

	if err := r.Run(t.Context()); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(r.Output)
	if err != nil {
		t.Fatal(err)
	}

	if want := "A1\nB1\n"; string(got) != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRenderRun_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tests := []struct {
		name    string
		render  Render
		wantErr error
	}{
		{
			name: "compile",
			render: Render{
				Templates: []string{writeTemp(t, dir, "bad.tmpl", "{% if x %}")},
			},
			wantErr: template.ErrSyntax,
		},
		{
			name: "render",
			render: Render{
				Templates: []string{writeTemp(t, dir, "rt.tmpl", "{{ s / 2 }}")},
				Execute:   []string{`s = "x"`},
			},
			wantErr: template.ErrFragmentRuntime,
		},
		{
			name: "missing data",
			render: Render{
				Data:      []string{filepath.Join(dir, "missing.yaml")},
				Templates: []string{writeTemp(t, dir, "ok.tmpl", "ok")},
			},
			wantErr: ErrReadData,
		},
		{
			name: "invalid data",
			render: Render{
				Data:      []string{writeTemp(t, dir, "list.yaml", "- a\n- b\n")},
				Templates: []string{writeTemp(t, dir, "ok2.tmpl", "ok")},
			},
			wantErr: ErrReadData,
		},
		{
			name: "missing template",
			render: Render{
				Templates: []string{filepath.Join(dir, "missing.tmpl")},
			},
			wantErr: ErrReadSource,
		},
		{
			name: "unwritable output",
			render: Render{
				Output:    filepath.Join(dir, "no", "such", "dir", "out"),
				Templates: []string{writeTemp(t, dir, "ok3.tmpl", "ok")},
			},
			wantErr: ErrWriteOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := tt.render
			if r.Output == "" {
				r.Output = filepath.Join(t.TempDir(), "out")
			}

			err := r.Run(t.Context())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Render.Run() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRenderRun_Watch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeTemp(t, dir, "in.tmpl", "v1")

	r := &Render{
		Output:    filepath.Join(dir, "out"),
		Watch:     true,
		Templates: []string{in},
	}

	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)

	go func() { done <- r.Run(ctx) }()

	// Rewrite until the watcher is installed and picks up the change.
	deadline := time.Now().Add(10 * time.Second)
	for {
		if got, _ := os.ReadFile(r.Output); string(got) == "v2" {
			break
		}

		if time.Now().After(deadline) {
			cancel()
			t.Fatal("watch did not re-render the changed template")
		}

		writeTemp(t, dir, "in.tmpl", "v2")
		time.Sleep(50 * time.Millisecond)
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Render.Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Render.Run() did not return after cancel")
	}
}

func TestRenderRun_WatchStdinOnly(t *testing.T) {
	t.Parallel()

	r := &Render{Watch: true}

	files, err := r.watched([]source{{name: stdinSource}})
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 0 {
		t.Errorf("watched() = %v, want none", files)
	}
}

func TestPassLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeTemp(t, dir, "a.tmpl", "same {{ 1 }}")
	b := writeTemp(t, dir, "b.tmpl", "same {{ 1 }}")

	sources, err := uniqueSources([]string{a, b})
	if err != nil {
		t.Fatal(err)
	}

	p := &pass{Render: &Render{}, sources: sources, stdin: -1}
	p.cache = template.NewCache(p.options(nil)...)

	ta, err := p.load(t.Context(), 0, sources[0])
	if err != nil {
		t.Fatal(err)
	}

	tb, err := p.load(t.Context(), 1, sources[1])
	if err != nil {
		t.Fatal(err)
	}

	if ta != tb {
		t.Error("identical file content compiled twice")
	}

	if n := p.cache.Len(); n != 1 {
		t.Errorf("cache.Len() = %d, want 1", n)
	}

	if err := os.Remove(a); err != nil {
		t.Fatal(err)
	}

	_, err = p.load(t.Context(), 0, sources[0])
	if !errors.Is(err, ErrReadSource) {
		t.Errorf("load() error = %v, want ErrReadSource", err)
	}
}
