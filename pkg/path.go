package pkg

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Prefix returns the base name used for the configuration and cache
// directories.
//
// It is the base name of the executable without extension, except:
//   - "__debug_bin<N>" (dlv default output) becomes [Name]
//   - leading dots are removed
//
//nolint:gochecknoglobals
var Prefix = sync.OnceValue(
	func() string {
		id := os.Args[0]
		if exe, err := os.Executable(); err == nil {
			id = exe
		}

		base := filepath.Base(id)
		id = strings.TrimSuffix(base, filepath.Ext(base))

		id = regexp.MustCompile(`^__debug_bin\d*$`).ReplaceAllString(id, Name)
		id = strings.TrimLeft(id, ".")

		if id == "" {
			return Name
		}

		return id
	},
)

// ConfigDir returns the per-user configuration directory.
//
//nolint:gochecknoglobals
var ConfigDir = sync.OnceValue(
	func() string {
		return filepath.Join(userDir(os.UserConfigDir, ".config"), Prefix())
	},
)

// CacheDir returns the per-user cache directory.
//
//nolint:gochecknoglobals
var CacheDir = sync.OnceValue(
	func() string {
		return filepath.Join(userDir(os.UserCacheDir, ".cache"), Prefix())
	},
)

// userDir resolves a per-user base directory, falling back to
// $HOME/<fallback> and then the working directory.
func userDir(lookup func() (string, error), fallback string) string {
	if dir, err := lookup(); err == nil {
		return dir
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, fallback)
	}

	if wd, err := os.Getwd(); err == nil {
		return wd
	}

	return "."
}
