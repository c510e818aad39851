package files

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and its compiled glob.
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// discovery walks a directory tree matching include patterns against
// ignore rules.
type discovery struct {
	rootDir        string
	includePattrns []compiledPattern
	ignorePatterns []compiledPattern
}

func newDiscovery(rootDir string, includePatterns, ignorePatterns []string) (*discovery, error) {
	d := &discovery{rootDir: rootDir}

	var err error
	if d.includePattrns, err = compilePatterns(includePatterns); err != nil {
		return nil, err
	}
	if d.ignorePatterns, err = compilePatterns(ignorePatterns); err != nil {
		return nil, err
	}
	return d, nil
}

// compilePatterns compiles each glob. A pattern containing "**/" also
// gets a variant with that segment removed, so "spec/factories/**/*.rb"
// matches direct children like "spec/factories/users.rb" and "**/*.rb"
// matches root-level files, as users expect.
func compilePatterns(patterns []string) ([]compiledPattern, error) {
	var compiled []compiledPattern
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledPattern{pattern: pattern, glob: g})

		if idx := strings.Index(pattern, "**/"); idx >= 0 {
			simplified := pattern[:idx] + pattern[idx+len("**/"):]
			sg, err := glob.Compile(simplified, '/')
			if err != nil {
				return nil, err
			}
			compiled = append(compiled, compiledPattern{pattern: simplified, glob: sg})
		}
	}
	return compiled, nil
}

// discover walks the tree and returns matching files in walk order.
func (d *discovery) discover() ([]string, error) {
	matched := []string{}

	err := filepath.Walk(d.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(d.rootDir, path)
		if err != nil {
			return err
		}
		// Normalize separators for glob matching.
		relPath = filepath.ToSlash(relPath)

		if d.shouldIgnore(relPath) {
			return nil
		}
		if matchesAnyPattern(relPath, d.includePattrns) {
			matched = append(matched, path)
		}
		return nil
	})

	return matched, err
}

// shouldIgnore checks if a path matches any ignore pattern, including
// the directory form ("node_modules" matching "node_modules/**").
func (d *discovery) shouldIgnore(relPath string) bool {
	if matchesAnyPattern(relPath, d.ignorePatterns) {
		return true
	}
	return matchesAnyPattern(relPath+"/**", d.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}
	return false
}
