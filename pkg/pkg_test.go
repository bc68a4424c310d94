package pkg

import (
	"path/filepath"
	"regexp"
	"testing"
)

func TestVersion(t *testing.T) {
	if !regexp.MustCompile(`^\d+\.\d+\.\d+`).MatchString(Version()) {
		t.Errorf("Version() = %q, want semantic version", Version())
	}
}

func TestDirsUsePrefix(t *testing.T) {
	for name, dir := range map[string]string{
		"config": ConfigDir(),
		"cache":  CacheDir(),
	} {
		if filepath.Base(dir) != Prefix() {
			t.Errorf("%s dir %q does not end with prefix %q", name, dir, Prefix())
		}
	}
}
