//go:build windows

package oidn

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/windows"
)

func openLibrary() (uintptr, error) {
	candidates := []string{"OpenImageDenoise.dll"}
	if root := os.Getenv("OIDN_DIR"); root != "" {
		candidates = append([]string{filepath.Join(root, "bin", "OpenImageDenoise.dll")}, candidates...)
	}

	var lastErr error
	for _, candidate := range candidates {
		lib, err := windows.LoadLibrary(candidate)
		if err == nil {
			return uintptr(lib), nil
		}
		lastErr = err
	}
	return 0, errors.Wrap(lastErr, "unable to locate OpenImageDenoise.dll")
}
