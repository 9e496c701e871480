package config

import "strings"

// CommonSkipDirs lists version-control, dependency and build directories
// that --skip-common keeps out of a search.
var CommonSkipDirs = []string{
	".git", ".svn", ".hg",
	"node_modules", "vendor",
	".vscode", ".idea",
	"__pycache__", ".pytest_cache",
	"target", "build", "dist",
	".next", ".nuxt",
	"coverage",
}

// DefaultMasks is the mask string used when nothing else is configured
const DefaultMasks = "*.*"

// GetFileTypeDescription returns a human-readable description of the searched
// files. containerExts are the extensions searched entry by entry, if any.
func GetFileTypeDescription(masks string, containerExts []string) string {
	if masks == "" {
		masks = DefaultMasks
	}
	if len(containerExts) == 0 {
		return masks
	}
	names := make([]string, 0, len(containerExts))
	for _, ext := range containerExts {
		names = append(names, strings.TrimPrefix(ext, "."))
	}
	return masks + " + containers (" + strings.Join(names, ", ") + ")"
}
