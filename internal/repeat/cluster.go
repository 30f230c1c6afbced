package repeat

import (
	"fmt"

	"github.com/trailsense/repeat-detect/internal/results"
)

// FindMatches scans one directory group in table order and clusters
// detections that recur at the same relative screen location.
//
// A detection survives the pre-filters when its confidence lies inside
// [ConfidenceMin, ConfidenceMax], its category is not excluded, and its
// relative area is below MaxSuspiciousDetectionSize. A surviving detection
// joins every existing location whose representative box overlaps it at
// IOUThreshold or better; with no match it founds a new location. A single
// detection may join more than one location — there is no principled way to
// prefer one overlapping cluster over another, so no tie-break is applied.
//
// The scan is pure with respect to the table: it never mutates records, so
// different directories can be processed concurrently.
func FindMatches(dir string, records []*results.Record, opts Options) ([]*Location, error) {
	var candidates []*Location
	excluded := opts.excludedCategories()

	for _, rec := range records {
		if !results.IsImageFile(rec.File) {
			continue
		}
		// Images whose cached maximum is below the window can't contribute.
		if rec.MaxDetectionConf < opts.ConfidenceMin {
			continue
		}

		for i := range rec.Detections {
			det := &rec.Detections[i]

			if det.Conf < 0.0 || det.Conf > 1.0 {
				return nil, fmt.Errorf("%w: image %s detection %d has confidence %f outside [0,1]",
					ErrIntegrity, rec.File, i, det.Conf)
			}
			if det.Conf < opts.ConfidenceMin || det.Conf > opts.ConfidenceMax {
				continue
			}
			if excluded[det.Category] {
				continue
			}

			area := det.Area()
			if area < 0.0 || area > 1.0 {
				return nil, fmt.Errorf("%w: image %s detection %d has relative area %f outside [0,1]",
					ErrIntegrity, rec.File, i, area)
			}
			if area >= opts.MaxSuspiciousDetectionSize {
				continue
			}

			instance := Instance{
				File:       rec.File,
				IDetection: i,
				BBox:       det.BBox,
				Conf:       det.Conf,
				Category:   det.Category,
			}

			matched := false
			for _, candidate := range candidates {
				if IOU(det.BBox, candidate.BBox) >= opts.IOUThreshold {
					candidate.Instances = append(candidate.Instances, instance)
					matched = true
					// No break: the instance may match several locations.
				}
			}
			if !matched {
				candidates = append(candidates, &Location{
					BBox:        det.BBox,
					RelativeDir: dir,
					Instances:   []Instance{instance},
				})
			}
		}
	}

	return candidates, nil
}

// Classify returns the locations with at least threshold instances,
// preserving discovery order. It is a pure filter.
func Classify(candidates []*Location, threshold int) []*Location {
	suspicious := make([]*Location, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Instances) >= threshold {
			suspicious = append(suspicious, c)
		}
	}
	return suspicious
}
