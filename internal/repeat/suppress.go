package repeat

import (
	"fmt"
	"math"

	"github.com/trailsense/repeat-detect/internal/results"
)

// maxConfTolerance is the numeric slack allowed between a cached per-image
// maximum and its recomputed value before the cache is considered changed.
const maxConfTolerance = 1e-8

// Counters summarizes what a suppression pass changed.
type Counters struct {
	// BoxesChanged is the number of detections whose confidence was negated.
	BoxesChanged int

	// MaxConfChanges is the number of images whose cached maximum
	// confidence was updated.
	MaxConfChanges int

	// MaxConfToNegative is how many of those maxima became negative,
	// meaning every detection on the image was suppressed.
	MaxConfToNegative int

	// CrossedThreshold is how many images dropped from at-or-above
	// ConfidenceMin to below it.
	CrossedThreshold int
}

// Suppress commits the classifier's verdict into the live table. It owns
// write access to the table for the duration of the call and must run after
// all clustering has completed.
//
// Pass 1 negates the confidence of every instance of every suspicious
// location, after re-verifying that the instance still overlaps its
// location's representative box at IOUThreshold and still points at the same
// bounding box in the table. A detection already negated by membership in
// another location is left alone, so suppression is idempotent.
//
// Pass 2 recomputes each image's maximum confidence. A recomputed maximum
// may only move down; an increase means the table and the location index
// disagree and aborts the run.
func Suppress(t *results.Table, rowByFile map[string]int, suspicious [][]*Location, opts Options) (Counters, error) {
	var c Counters

	for iDir, locations := range suspicious {
		for iLoc, loc := range locations {
			for _, inst := range loc.Instances {
				// Instances were admitted by this same test at clustering
				// time; failing it now means the index and table diverged.
				if iou := IOU(inst.BBox, loc.BBox); iou < opts.IOUThreshold {
					return c, fmt.Errorf("%w: instance %s[%d] has IoU %f below threshold %f against location %d/%d",
						ErrIntegrity, inst.File, inst.IDetection, iou, opts.IOUThreshold, iDir, iLoc)
				}

				row, ok := rowByFile[inst.File]
				if !ok {
					return c, fmt.Errorf("%w: instance file %q not present in table", ErrIntegrity, inst.File)
				}
				rec := t.Images[row]
				if inst.IDetection < 0 || inst.IDetection >= len(rec.Detections) {
					return c, fmt.Errorf("%w: instance %s[%d] out of range (%d detections)",
						ErrIntegrity, inst.File, inst.IDetection, len(rec.Detections))
				}

				det := &rec.Detections[inst.IDetection]
				if !sameBox(inst.BBox, det.BBox) {
					return c, fmt.Errorf("%w: instance %s[%d] bounding box does not match the table",
						ErrIntegrity, inst.File, inst.IDetection)
				}

				if det.Conf >= 0 {
					det.Conf = -det.Conf
					c.BoxesChanged++
				}
			}
		}
	}

	for _, rec := range t.Images {
		if len(rec.Detections) == 0 {
			continue
		}

		// A negative cached maximum is fine here: it means the table was
		// already suppressed, and this pass will find nothing to change.
		maxOriginal := rec.MaxDetectionConf

		maxConf := math.Inf(-1)
		negatives := 0
		for i := range rec.Detections {
			conf := rec.Detections[i].Conf
			if conf < 0 {
				negatives++
			}
			if conf > maxConf {
				maxConf = conf
			}
		}

		if math.Abs(maxConf-maxOriginal) <= maxConfTolerance {
			continue
		}
		// Suppression only ever lowers confidences.
		if maxConf > maxOriginal {
			return c, fmt.Errorf("%w: image %s maximum confidence rose from %f to %f",
				ErrIntegrity, rec.File, maxOriginal, maxConf)
		}
		if negatives == 0 {
			return c, fmt.Errorf("%w: image %s maximum confidence changed without any negated detection",
				ErrIntegrity, rec.File)
		}

		rec.MaxDetectionConf = maxConf
		c.MaxConfChanges++
		if maxConf < 0 {
			c.MaxConfToNegative++
		}
		if maxOriginal >= opts.ConfidenceMin && maxConf < opts.ConfidenceMin {
			c.CrossedThreshold++
		}
	}

	return c, nil
}

// sameBox compares the shared corner and width of two boxes. The height is
// left out deliberately: the instance was copied from this exact detection,
// and matching x, y and width already rules out an index shift.
func sameBox(a, b []float64) bool {
	if len(a) != 4 || len(b) != 4 {
		return false
	}
	for i := 0; i < 3; i++ {
		if math.Abs(a[i]-b[i]) > maxConfTolerance {
			return false
		}
	}
	return true
}
