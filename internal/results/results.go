package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Detection is a single predicted bounding box on one image.
//
// BBox is [x_min, y_min, width, height] with (x_min, y_min) the upper-left
// corner, all in coordinates relative to the image size (each in [0,1]).
// Conf is in [0,1] as produced by the detector; suppression may negate it,
// so a previously-filtered table can legitimately contain negative values.
type Detection struct {
	Category string    `json:"category"`
	Conf     float64   `json:"conf"`
	BBox     []float64 `json:"bbox"`

	// Classifications is optional species-classifier output attached by
	// downstream tools; it is opaque here and preserved verbatim on save.
	Classifications json.RawMessage `json:"classifications,omitempty"`
}

// Area returns the detection's relative area (width * height).
func (d *Detection) Area() float64 {
	if len(d.BBox) != 4 {
		return 0
	}
	return d.BBox[2] * d.BBox[3]
}

// Record is one image's detector output: its path within the collection,
// zero or more detections, and the cached maximum confidence across them.
type Record struct {
	File             string      `json:"file"`
	MaxDetectionConf float64     `json:"max_detection_conf"`
	Detections       []Detection `json:"detections"`
}

// Table is the full detector-output document: the ordered image records plus
// every other top-level field of the source file, kept as raw JSON so a
// save round-trips them unchanged.
type Table struct {
	Images []*Record
	Extra  map[string]json.RawMessage
}

// Load reads a detector-output JSON file.
//
// Paths are normalized to forward slashes, then each (old, new) pair in
// replacements is applied as a substring replacement. Structural problems
// (a bbox that is not 4 numbers, a relative area outside [0,1], a confidence
// above 1) are reported as errors; negative confidences are allowed because
// they are exactly what a previous suppression pass writes.
func Load(path string, replacements map[string]string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read detection file: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := codec.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse detection file: %w", err)
	}

	imagesRaw, ok := doc["images"]
	if !ok {
		return nil, fmt.Errorf("detection file %s has no \"images\" field", path)
	}
	delete(doc, "images")

	var images []*Record
	if err := codec.Unmarshal(imagesRaw, &images); err != nil {
		return nil, fmt.Errorf("failed to parse image records: %w", err)
	}

	for _, rec := range images {
		rec.File = NormalizePath(rec.File)
		for old, repl := range replacements {
			rec.File = strings.ReplaceAll(rec.File, old, repl)
		}
		for i := range rec.Detections {
			det := &rec.Detections[i]
			if len(det.BBox) != 4 {
				return nil, fmt.Errorf("image %s detection %d: bbox has %d values, want 4",
					rec.File, i, len(det.BBox))
			}
			if a := det.Area(); a < 0.0 || a > 1.0 {
				return nil, fmt.Errorf("image %s detection %d: relative area %f outside [0,1]",
					rec.File, i, a)
			}
			if det.Conf > 1.0 || det.Conf < -1.0 {
				return nil, fmt.Errorf("image %s detection %d: confidence %f outside [-1,1]",
					rec.File, i, det.Conf)
			}
		}
	}

	return &Table{Images: images, Extra: doc}, nil
}

// Save writes the table back to a detector-output JSON file, re-emitting
// the preserved side-channel fields alongside the (possibly mutated) image
// records.
func Save(t *Table, path string) error {
	imagesRaw, err := codec.Marshal(t.Images)
	if err != nil {
		return fmt.Errorf("failed to encode image records: %w", err)
	}

	doc := make(map[string]json.RawMessage, len(t.Extra)+1)
	for k, v := range t.Extra {
		doc[k] = v
	}
	doc["images"] = imagesRaw

	out, err := codec.MarshalIndent(doc, "", " ")
	if err != nil {
		return fmt.Errorf("failed to encode detection file: %w", err)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write detection file: %w", err)
	}
	return nil
}

// NormalizePath converts a table path to forward-slash form.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// IsImageFile reports whether the path has a recognized image extension.
// The detector sometimes logs sidecar files into the table; those never
// participate in repeat-detection analysis.
func IsImageFile(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}
