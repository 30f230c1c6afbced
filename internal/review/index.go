package review

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/trailsense/repeat-detect/internal/repeat"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// FormatVersion is the review-index schema version this build reads and
// writes. Reloads from other versions are rejected rather than guessed at.
const FormatVersion = 1

// IndexFileName is the index file written into each review folder.
const IndexFileName = "detectionIndex.json"

// Index is the serialized form of a run's suspicious locations, one entry
// per directory in partition order.
type Index struct {
	FormatVersion int         `json:"format_version"`
	Directories   []Directory `json:"directories"`
}

// Directory pairs a directory key with its suspicious locations.
type Directory struct {
	Dir       string             `json:"dir"`
	Locations []*repeat.Location `json:"locations"`
}

// BuildIndex assembles an index from partition-ordered directory keys and
// their suspicious locations. The two slices must be parallel.
func BuildIndex(dirs []string, suspicious [][]*repeat.Location) *Index {
	idx := &Index{
		FormatVersion: FormatVersion,
		Directories:   make([]Directory, len(dirs)),
	}
	for i, dir := range dirs {
		idx.Directories[i] = Directory{Dir: dir, Locations: suspicious[i]}
	}
	return idx
}

// SaveIndex writes the index as indented JSON.
func SaveIndex(idx *Index, path string) error {
	out, err := codec.MarshalIndent(idx, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode review index: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write review index: %w", err)
	}
	return nil
}

// LoadIndex reads a review index written by SaveIndex.
func LoadIndex(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read review index: %w", err)
	}
	var idx Index
	if err := codec.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse review index: %w", err)
	}
	if idx.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("review index %s has format version %d, want %d",
			path, idx.FormatVersion, FormatVersion)
	}
	return &idx, nil
}

// CheckAgainstPartition verifies that the index covers the same number of
// directories as the live table. A mismatch means the index was produced
// from a different table and must not drive suppression.
func (idx *Index) CheckAgainstPartition(nDirs int) error {
	if len(idx.Directories) != nDirs {
		return fmt.Errorf("%w: review index has %d directories, table has %d",
			repeat.ErrIntegrity, len(idx.Directories), nDirs)
	}
	return nil
}

// Suspicious returns the per-directory location lists in index order, the
// shape the suppression pass consumes.
func (idx *Index) Suspicious() [][]*repeat.Location {
	out := make([][]*repeat.Location, len(idx.Directories))
	for i, d := range idx.Directories {
		out[i] = d.Locations
	}
	return out
}
