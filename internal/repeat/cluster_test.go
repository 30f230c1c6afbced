package repeat

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/trailsense/repeat-detect/internal/results"
)

func record(file string, dets ...results.Detection) *results.Record {
	maxConf := 0.0
	for _, d := range dets {
		if d.Conf > maxConf {
			maxConf = d.Conf
		}
	}
	return &results.Record{File: file, MaxDetectionConf: maxConf, Detections: dets}
}

func det(conf float64, bbox []float64, category string) results.Detection {
	return results.Detection{Category: category, Conf: conf, BBox: bbox}
}

// repeatedGroup builds n images that all contain the same detection.
func repeatedGroup(n int, conf float64, bbox []float64, category string) []*results.Record {
	records := make([]*results.Record, n)
	for i := range records {
		records[i] = record(fmt.Sprintf("site1/cam1/img_%03d.jpg", i), det(conf, bbox, category))
	}
	return records
}

func scenarioOptions() Options {
	opts := DefaultOptions()
	opts.ConfidenceMin = 0.85
	opts.IOUThreshold = 0.9
	opts.OccurrenceThreshold = 15
	return opts
}

func TestFindMatchesRepeatedLocation(t *testing.T) {
	records := repeatedGroup(20, 0.9, []float64{0.1, 0.1, 0.05, 0.05}, "1")

	candidates, err := FindMatches("site1/cam1", records, scenarioOptions())
	if err != nil {
		t.Fatalf("FindMatches failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	loc := candidates[0]
	if len(loc.Instances) != 20 {
		t.Errorf("got %d instances, want 20", len(loc.Instances))
	}
	if loc.RelativeDir != "site1/cam1" {
		t.Errorf("RelativeDir: got %q", loc.RelativeDir)
	}
	if !reflect.DeepEqual(loc.BBox, []float64{0.1, 0.1, 0.05, 0.05}) {
		t.Errorf("representative box: got %v", loc.BBox)
	}
	// Discovery order is table order.
	if loc.Instances[0].File != "site1/cam1/img_000.jpg" {
		t.Errorf("first instance: got %q", loc.Instances[0].File)
	}
}

func TestFindMatchesConfidenceWindow(t *testing.T) {
	opts := scenarioOptions()
	opts.ConfidenceMax = 0.95

	records := []*results.Record{
		record("d/low.jpg", det(0.5, []float64{0.1, 0.1, 0.05, 0.05}, "1")),
		record("d/high.jpg", det(0.99, []float64{0.1, 0.1, 0.05, 0.05}, "1")),
		record("d/in.jpg", det(0.9, []float64{0.1, 0.1, 0.05, 0.05}, "1")),
	}

	candidates, err := FindMatches("d", records, opts)
	if err != nil {
		t.Fatalf("FindMatches failed: %v", err)
	}
	if len(candidates) != 1 || len(candidates[0].Instances) != 1 {
		t.Fatalf("got %d candidates, want exactly one with one instance", len(candidates))
	}
	if candidates[0].Instances[0].File != "d/in.jpg" {
		t.Errorf("surviving instance: got %q", candidates[0].Instances[0].File)
	}
}

func TestFindMatchesAreaBoundary(t *testing.T) {
	opts := scenarioOptions()
	opts.MaxSuspiciousDetectionSize = 0.0025

	tests := []struct {
		name string
		bbox []float64
		want int // candidates
	}{
		{"area exactly at cap is excluded", []float64{0.1, 0.1, 0.05, 0.05}, 0},
		{"area marginally below cap is eligible", []float64{0.1, 0.1, 0.049, 0.05}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []*results.Record{record("d/a.jpg", det(0.9, tt.bbox, "1"))}
			candidates, err := FindMatches("d", records, opts)
			if err != nil {
				t.Fatalf("FindMatches failed: %v", err)
			}
			if len(candidates) != tt.want {
				t.Errorf("got %d candidates, want %d", len(candidates), tt.want)
			}
		})
	}
}

func TestFindMatchesExcludedCategories(t *testing.T) {
	opts := scenarioOptions()
	opts.ExcludeCategories = []string{"2"}

	records := []*results.Record{
		record("d/a.jpg", det(0.9, []float64{0.1, 0.1, 0.05, 0.05}, "2")),
		record("d/b.jpg", det(0.9, []float64{0.4, 0.4, 0.05, 0.05}, "1")),
	}

	candidates, err := FindMatches("d", records, opts)
	if err != nil {
		t.Fatalf("FindMatches failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Instances[0].Category != "1" {
		t.Fatalf("excluded category leaked into candidates: %+v", candidates)
	}
}

func TestFindMatchesSkipsNonImageFiles(t *testing.T) {
	records := []*results.Record{
		record("d/a.txt", det(0.9, []float64{0.1, 0.1, 0.05, 0.05}, "1")),
	}

	candidates, err := FindMatches("d", records, scenarioOptions())
	if err != nil {
		t.Fatalf("FindMatches failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("non-image file produced candidates: %+v", candidates)
	}
}

func TestFindMatchesMultiMembership(t *testing.T) {
	opts := scenarioOptions()
	opts.IOUThreshold = 0.5

	// The third box overlaps both earlier boxes at IoU 0.6, while the first
	// two overlap each other at only 1/3; it must join both candidates.
	records := []*results.Record{
		record("d/a.jpg", det(0.9, []float64{0.0, 0.0, 0.1, 0.1}, "1")),
		record("d/b.jpg", det(0.9, []float64{0.05, 0.0, 0.1, 0.1}, "1")),
		record("d/c.jpg", det(0.9, []float64{0.025, 0.0, 0.1, 0.1}, "1")),
	}

	candidates, err := FindMatches("d", records, opts)
	if err != nil {
		t.Fatalf("FindMatches failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	for i, c := range candidates {
		if len(c.Instances) != 2 {
			t.Errorf("candidate %d: got %d instances, want 2", i, len(c.Instances))
		}
		if last := c.Instances[len(c.Instances)-1]; last.File != "d/c.jpg" {
			t.Errorf("candidate %d: overlapping instance missing, last is %q", i, last.File)
		}
	}
}

func TestFindMatchesConfidenceIntegrity(t *testing.T) {
	records := []*results.Record{
		{File: "d/a.jpg", MaxDetectionConf: 0.9,
			Detections: []results.Detection{det(-0.9, []float64{0.1, 0.1, 0.05, 0.05}, "1")}},
	}

	_, err := FindMatches("d", records, scenarioOptions())
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("got %v, want ErrIntegrity", err)
	}
}

func TestFindMatchesDeterminism(t *testing.T) {
	records := repeatedGroup(20, 0.9, []float64{0.1, 0.1, 0.05, 0.05}, "1")
	records = append(records, record("site1/cam1/other.jpg", det(0.95, []float64{0.7, 0.7, 0.04, 0.04}, "1")))

	first, err := FindMatches("site1/cam1", records, scenarioOptions())
	if err != nil {
		t.Fatalf("FindMatches failed: %v", err)
	}
	second, err := FindMatches("site1/cam1", records, scenarioOptions())
	if err != nil {
		t.Fatalf("FindMatches failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("re-running clustering produced different candidates")
	}
}

func TestClassifyThresholdBoundary(t *testing.T) {
	below := &Location{Instances: make([]Instance, 14)}
	at := &Location{Instances: make([]Instance, 15)}

	suspicious := Classify([]*Location{below, at}, 15)
	if len(suspicious) != 1 || suspicious[0] != at {
		t.Fatalf("Classify: got %d locations, want only the one at threshold", len(suspicious))
	}
}
