package platform

import (
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizePath cleans a local path for the current platform
func NormalizePath(path string) string {
	normalized := filepath.Clean(path)

	// filepath.Clean collapses the leading double backslash of a UNC path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, `\\`) && !strings.HasPrefix(normalized, `\\`) {
		normalized = `\` + normalized
	}

	return normalized
}
