package review

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadKeepList reads a flat text file of sample filenames, one per line,
// that a reviewer confirmed as real detections. Blank lines are skipped.
func LoadKeepList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keep list: %w", err)
	}
	defer f.Close()

	// Non-nil even when the file is empty: an empty keep list is a reviewer
	// confirming that no sample shows a real detection.
	names := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keep list: %w", err)
	}
	return names, nil
}
