package identify

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// genericDirs are directories that hold projects rather than being one.
var genericDirs = map[string]bool{
	"repositories": true,
	"projects":     true,
	"code":         true,
	"workspace":    true,
	"dev":          true,
	"src":          true,
	"work":         true,
	"git":          true,
}

// artifactDirs are subdirectories that never name a project.
var artifactDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	"bin":          true,
	"lib":          true,
	"build":        true,
	".git":         true,
}

const genericAlternation = `repositories|projects|code|workspace|dev|src|work|git`

var (
	// "/<generic>/<project>/"
	projectSegmentPattern = regexp.MustCompile(`(?i)/(?:` + genericAlternation + `)/([^/\s]+)/`)
	// "/<generic>/<group>/<project>/"
	nestedProjectPattern = regexp.MustCompile(`(?i)/(?:` + genericAlternation + `)/([^/\s]+)/([^/\s]+)/`)
)

var homeDir = sync.OnceValue(func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Clean(home)
})

// ExtractProjectName infers a project name from a working directory and a
// command line. The cwd basename wins unless it is a generic container
// directory, the filesystem root or the home directory; then the command
// line is mined for a path segment following a generic directory. Returns
// "" when nothing plausible is found.
func ExtractProjectName(cwd, command string) string {
	if name := projectFromCwd(cwd); name != "" {
		return name
	}
	return projectFromCommand(command)
}

func projectFromCwd(cwd string) string {
	if cwd == "" {
		return ""
	}
	clean := filepath.Clean(cwd)
	if clean == "/" || clean == "." || clean == homeDir() {
		return ""
	}
	base := filepath.Base(clean)
	if isExcludedSegment(base) {
		return ""
	}
	return base
}

func projectFromCommand(command string) string {
	if command == "" {
		return ""
	}
	for _, m := range projectSegmentPattern.FindAllStringSubmatch(command, -1) {
		if !isExcludedSegment(m[1]) {
			return m[1]
		}
	}
	for _, m := range nestedProjectPattern.FindAllStringSubmatch(command, -1) {
		if artifactDirs[strings.ToLower(m[1])] {
			continue
		}
		if !isExcludedSegment(m[2]) {
			return m[2]
		}
	}
	return ""
}

func isExcludedSegment(seg string) bool {
	lower := strings.ToLower(seg)
	return genericDirs[lower] || artifactDirs[lower]
}
