package loaders

import (
	"path/filepath"
	"strings"
)

func nameOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
