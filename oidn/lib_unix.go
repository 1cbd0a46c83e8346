//go:build linux || darwin

package oidn

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/ebitengine/purego"
)

func libraryCandidates() []string {
	var names []string
	var searchPaths []string

	switch runtime.GOOS {
	case "linux":
		names = []string{"libOpenImageDenoise.so.2", "libOpenImageDenoise.so"}
		searchPaths = []string{
			"/usr/lib/x86_64-linux-gnu",
			"/usr/lib64",
			"/usr/lib",
			"/usr/local/lib",
		}
	case "darwin":
		names = []string{"libOpenImageDenoise.2.dylib", "libOpenImageDenoise.dylib"}
		searchPaths = []string{
			"/usr/local/lib",
			"/opt/homebrew/lib",
		}
	}

	candidates := make([]string, 0, len(names)*(len(searchPaths)+2))
	if root := os.Getenv("OIDN_DIR"); root != "" {
		for _, name := range names {
			candidates = append(candidates, filepath.Join(root, "lib", name))
		}
	}
	// Bare names next so the dynamic linker's own search order wins.
	candidates = append(candidates, names...)
	for _, dir := range searchPaths {
		for _, name := range names {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}
	return candidates
}

func openLibrary() (uintptr, error) {
	var lastErr error
	for _, candidate := range libraryCandidates() {
		lib, err := purego.Dlopen(candidate, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return lib, nil
		}
		lastErr = err
	}
	return 0, errors.Wrap(lastErr, "unable to locate the Open Image Denoise shared library")
}
