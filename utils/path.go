package utils

import (
	"path/filepath"
	"strings"
)

// IsPathWithin returns true if path is root itself or located under it.
func IsPathWithin(path, root string) bool {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	absPath, err := filepath.Abs(resolved)
	if err != nil {
		return false
	}
	rResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		rResolved = root
	}
	absRoot, err := filepath.Abs(rResolved)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
