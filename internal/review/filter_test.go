package review

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/trailsense/repeat-detect/internal/repeat"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func locationWithSample(name string) *repeat.Location {
	return &repeat.Location{
		BBox:        []float64{0.1, 0.1, 0.05, 0.05},
		SampleImage: name,
		Instances:   []repeat.Instance{{File: "d/a.jpg", BBox: []float64{0.1, 0.1, 0.05, 0.05}, Conf: 0.9, Category: "1"}},
	}
}

func TestFilterBySampleExistence(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"dir0000_det0000.jpg", "dir0000_det0001.jpg"} {
		if err := os.WriteFile(filepath.Join(base, name), []byte("jpg"), 0o644); err != nil {
			t.Fatalf("failed to write sample: %v", err)
		}
	}

	kept := locationWithSample("dir0000_det0000.jpg")
	deleted := locationWithSample("dir0000_det0001.jpg")
	idx := BuildIndex([]string{"d"}, [][]*repeat.Location{{kept, deleted}})

	// The reviewer deletes the second sample: it was a real animal.
	if err := os.Remove(filepath.Join(base, "dir0000_det0001.jpg")); err != nil {
		t.Fatalf("failed to delete sample: %v", err)
	}

	removed := Filter(idx, nil, base, quietLogger())
	if removed != 1 {
		t.Fatalf("removed %d locations, want 1", removed)
	}
	locs := idx.Directories[0].Locations
	if len(locs) != 1 || locs[0] != kept {
		t.Fatalf("wrong location dropped: %+v", locs)
	}
	// The surviving location keeps all instances: removal is whole-candidate.
	if len(kept.Instances) != 1 {
		t.Errorf("instances of surviving location changed: %d", len(kept.Instances))
	}
}

func TestFilterByKeepList(t *testing.T) {
	first := locationWithSample("dir0000_det0000.jpg")
	second := locationWithSample("dir0000_det0001.jpg")
	idx := BuildIndex([]string{"d"}, [][]*repeat.Location{{first, second}})

	removed := Filter(idx, []string{"dir0000_det0001.jpg"}, t.TempDir(), quietLogger())
	if removed != 1 {
		t.Fatalf("removed %d locations, want 1", removed)
	}
	locs := idx.Directories[0].Locations
	if len(locs) != 1 || locs[0] != second {
		t.Fatalf("keep-list not honored: %+v", locs)
	}
}

func TestFilterDropsUnexportedLocations(t *testing.T) {
	// A location with no sample reference cannot be confirmed by a reviewer.
	unexported := locationWithSample("")
	idx := BuildIndex([]string{"d"}, [][]*repeat.Location{{unexported}})

	removed := Filter(idx, nil, t.TempDir(), quietLogger())
	if removed != 1 || len(idx.Directories[0].Locations) != 0 {
		t.Fatalf("location without sample reference survived")
	}
}

func TestLoadKeepList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keep.txt")
	content := "dir0000_det0000.jpg\n\n  dir0001_det0002.jpg  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write keep list: %v", err)
	}

	names, err := LoadKeepList(path)
	if err != nil {
		t.Fatalf("LoadKeepList failed: %v", err)
	}
	want := []string{"dir0000_det0000.jpg", "dir0001_det0002.jpg"}
	if len(names) != 2 || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("got %v, want %v", names, want)
	}
}
