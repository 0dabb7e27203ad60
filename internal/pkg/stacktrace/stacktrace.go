// Package stacktrace trims raw goroutine stacks down to this module's frames.
package stacktrace

import "strings"

// InternalPaths returns the "internal/...go:line" locations found in a raw
// stack trace, in call order, skipping consecutive duplicates.
func InternalPaths(stack []byte) []string {
	lines := strings.Split(string(stack), "\n")
	paths := make([]string, 0, len(lines)/2)

	for _, line := range lines {
		line = strings.TrimSpace(line)

		_, rest, ok := strings.Cut(line, "/internal/")
		if !ok {
			continue
		}
		loc, _, _ := strings.Cut(rest, " ")
		if !strings.Contains(loc, ".go:") {
			continue
		}

		loc = "internal/" + loc
		if n := len(paths); n > 0 && paths[n-1] == loc {
			continue
		}
		paths = append(paths, loc)
	}

	return paths
}
