package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TrimResult describes what TrimLogfile did.
type TrimResult struct {
	// Path is the log file that was inspected.
	Path string

	// LinesBefore is the line count before trimming.
	LinesBefore int

	// LinesAfter is the line count after trimming.
	LinesAfter int

	// Trimmed is true when lines were dropped.
	Trimmed bool
}

// TrimLogfile keeps only the last maxLines lines of the file at path.
// A missing file or one already within the limit is left untouched.
func TrimLogfile(path string, maxLines int) (*TrimResult, error) {
	result := &TrimResult{Path: path}

	lines, err := readLines(path)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, err
	}

	result.LinesBefore = len(lines)
	result.LinesAfter = len(lines)

	if maxLines < 0 || len(lines) <= maxLines {
		return result, nil
	}

	kept := lines[len(lines)-maxLines:]

	// Write next to the target so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".trim-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, line := range kept {
		if _, err := w.WriteString(line + "\n"); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return nil, fmt.Errorf("failed to write trimmed log: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write trimmed log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to close trimmed log: %w", err)
	}

	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmpPath, info.Mode().Perm())
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to replace log: %w", err)
	}

	result.LinesAfter = len(kept)
	result.Trimmed = true
	return result, nil
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}
