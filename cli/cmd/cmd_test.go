package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func names(sources []source) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = s.name
	}

	return out
}

func TestUniqueSources(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeTemp(t, dir, "a.tmpl", "a")
	b := writeTemp(t, dir, "b.tmpl", "b")
	link := filepath.Join(dir, "link.tmpl")

	if err := os.Symlink(a, link); err != nil {
		t.Fatal(err)
	}

	rel, err := filepath.Rel(".", a)
	if err != nil {
		rel = a
	}

	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{"empty", nil, []string{}},
		{"stdin only", []string{"-"}, []string{"-"}},
		{"stdin last", []string{"-", a, "-", b}, []string{a, b, "-"}},
		{"duplicate path", []string{a, b, a}, []string{a, b}},
		{"symlink", []string{a, link}, []string{a}},
		{"relative", []string{a, rel}, []string{a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := uniqueSources(tt.paths)
			if err != nil {
				t.Fatal(err)
			}

			gotNames := names(got)
			if len(gotNames) != len(tt.want) {
				t.Fatalf("uniqueSources(%q) = %q, want %q", tt.paths, gotNames, tt.want)
			}

			for i := range gotNames {
				if gotNames[i] != tt.want[i] {
					t.Errorf("uniqueSources(%q)[%d] = %q, want %q", tt.paths, i, gotNames[i], tt.want[i])
				}
			}
		})
	}
}

func TestUniqueSources_Missing(t *testing.T) {
	t.Parallel()

	_, err := uniqueSources([]string{filepath.Join(t.TempDir(), "missing")})
	if !errors.Is(err, ErrReadSource) {
		t.Errorf("uniqueSources() error = %v, want ErrReadSource", err)
	}

	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("uniqueSources() error = %v, want os.ErrNotExist", err)
	}
}

func TestSourceRead(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, t.TempDir(), "x.tmpl", "hello")

	data, err := sourceFor(path).read()
	if err != nil {
		t.Fatal(err)
	}

	if string(data) != "hello" {
		t.Errorf("read() = %q, want %q", data, "hello")
	}

	_, err = sourceFor(path + ".missing").read()
	if !errors.Is(err, ErrReadSource) {
		t.Errorf("read() error = %v, want ErrReadSource", err)
	}
}

func TestErrorIs(t *testing.T) {
	t.Parallel()

	err := ErrWriteConfig.Wrap(ErrFileExists)

	if !errors.Is(err, ErrWriteConfig) {
		t.Error("derived error does not match its sentinel")
	}

	if !errors.Is(err, ErrFileExists) {
		t.Error("derived error does not match its cause")
	}

	if errors.Is(err, ErrWatch) {
		t.Error("derived error matches an unrelated sentinel")
	}
}
