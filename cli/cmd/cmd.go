package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
)

// contextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// stdinSource is the special source name for reading from stdin.
const stdinSource = "-"

// stdout receives command output.
var stdout io.Writer = os.Stdout

// source is one template input.
type source struct {
	name string // as given on the command line
	path string // resolved path; empty for stdin
}

func (s source) isStdin() bool { return s.path == "" }

func (s source) read() ([]byte, error) {
	var r io.Reader = os.Stdin

	if !s.isStdin() {
		f, err := os.Open(s.path)
		if err != nil {
			return nil, ErrReadSource.With(slog.String("file", s.name)).Wrap(err)
		}
		defer f.Close()

		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrReadSource.With(slog.String("file", s.name)).Wrap(err)
	}

	return data, nil
}

// fileKey uniquely identifies a file by its device and inode numbers.
// This handles deduplication across symlinks, absolute/relative paths, and
// special device files.
type fileKey struct {
	dev uint64
	ino uint64
}

// uniqueSources resolves paths into sources, dropping duplicates. Paths are
// compared by device and inode after resolving symlinks. Every "-", and any
// path naming the same file as stdin, collapses into one stdin source placed
// last.
func uniqueSources(paths []string) ([]source, error) {
	var (
		out      []source
		hasStdin bool
	)

	// Keyed by fileKey, or by resolved path where the platform has no
	// device and inode numbers.
	seen := make(map[any]struct{})

	stdinInfo, _ := os.Stdin.Stat()
	stdinKey, stdinOK := makeFileKey(stdinInfo)

	for _, p := range paths {
		if p == stdinSource {
			hasStdin = true

			continue
		}

		resolved, key, err := resolveFile(p)
		if err != nil {
			return nil, ErrReadSource.With(slog.String("file", p)).Wrap(err)
		}

		if stdinOK && key == any(stdinKey) {
			hasStdin = true

			continue
		}

		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}

		out = append(out, source{name: p, path: resolved})
	}

	if hasStdin {
		out = append(out, source{name: stdinSource})
	}

	return out, nil
}

// resolveFile returns the symlink-free absolute path of a file and the key
// identifying it.
func resolveFile(path string) (string, any, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", nil, err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", nil, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", nil, err
	}

	if key, ok := makeFileKey(info); ok {
		return resolved, key, nil
	}

	return resolved, resolved, nil
}

// makeFileKey creates a fileKey from os.FileInfo.
// Returns false if the underlying Sys() data is not of type *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	if info == nil {
		return key, false
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, true //nolint:unconvert // platform-dependent types
}
