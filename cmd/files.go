package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/reviewpass/internal/tokens"
	"github.com/reviewpass/pkg/models"
)

// maxFileBytes is the per-file size cap for collection. Anything larger is
// almost certainly generated or vendored and would dominate the token budget.
const maxFileBytes = 2 << 20

var skippedDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
}

var languageHints = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".jsx":  "javascript",
	".java": "java",
	".rb":   "ruby",
	".rs":   "rust",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".cs":   "csharp",
	".php":  "php",
	".sh":   "shell",
	".sql":  "sql",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".json": "json",
	".md":   "markdown",
}

// collectFiles gathers review inputs from the given paths. Directories are
// walked recursively. Binary and oversized files are skipped with a log
// line rather than an error so a stray asset never aborts a review. The
// result is sorted by path for a stable pass plan.
func collectFiles(paths []string) ([]models.SourceFile, error) {
	seen := make(map[string]bool)
	var files []models.SourceFile

	add := func(path string) error {
		if seen[path] {
			return nil
		}
		seen[path] = true

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.Size() > maxFileBytes {
			log.Warn().Str("file", path).Int64("bytes", info.Size()).Msg("Skipping oversized file")
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if tokens.IsBinaryContent(string(content)) {
			log.Debug().Str("file", path).Msg("Skipping binary file")
			return nil
		}

		files = append(files, models.SourceFile{
			Path:         filepath.ToSlash(path),
			Content:      string(content),
			LanguageHint: languageHints[strings.ToLower(filepath.Ext(path))],
			Priority:     filePriority(path),
		})
		return nil
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}

		if !info.IsDir() {
			if err := add(root); err != nil {
				return nil, err
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if skippedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			return add(path)
		})
		if err != nil {
			return nil, err
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no reviewable files found under %s", strings.Join(paths, ", "))
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// filePriority ranks production code above tests and fixtures so that when
// the review splits into passes, the important files land early.
func filePriority(path string) int {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, "_test.go"),
		strings.HasPrefix(name, "test_"),
		strings.Contains(name, ".test."),
		strings.Contains(name, ".spec."):
		return 0
	default:
		return 1
	}
}
