package repeat

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Missing-image warning modes for rendering and reload existence checks.
const (
	WarnOnce = "once"
	WarnAll  = "all"
)

// Options is the immutable configuration for a repeat-detection run. Build
// it with DefaultOptions, adjust fields, and call Validate before use;
// components receive it by value and never mutate it.
type Options struct {
	// ImageBase is the directory the table's relative image paths resolve
	// against; needed only when rendering review samples.
	ImageBase string

	// OutputBase is where the review folder is created.
	OutputBase string

	// ConfidenceMin and ConfidenceMax bound the confidence window of
	// detections considered suspicious. ConfidenceMax may exceed 1 to make
	// the window closed on the right.
	ConfidenceMin float64 `validate:"gte=0,lte=1"`
	ConfidenceMax float64 `validate:"gte=0"`

	// IOUThreshold is the box overlap at which two detections count as the
	// same location.
	IOUThreshold float64 `validate:"gt=0,lte=1"`

	// OccurrenceThreshold is how many instances a location needs before it
	// is declared suspicious.
	OccurrenceThreshold int `validate:"gte=1"`

	// MaxSuspiciousDetectionSize caps the relative area of a suspicious
	// detection; larger boxes are usually animals filling the frame.
	MaxSuspiciousDetectionSize float64 `validate:"gt=0,lte=1"`

	// ExcludeCategories lists category ids never treated as suspicious.
	ExcludeCategories []string

	// NDirLevelsFromLeaf walks that many levels up from each image's parent
	// directory when forming comparison groups.
	NDirLevelsFromLeaf int `validate:"gte=0"`

	// Workers bounds the clustering and rendering pools; 0 runs serially.
	Workers int `validate:"gte=0"`

	// ReviewFile switches the run to reload mode: suspicious locations are
	// read from this previously-exported index instead of being discovered.
	ReviewFile string

	// KeepListFile optionally names a flat text file of sample filenames a
	// reviewer confirmed as real detections; used only in reload mode.
	KeepListFile string

	// WriteReviewFolder controls the export of rendered samples and the
	// detection index after suppression.
	WriteReviewFolder bool

	// MissingImageWarnings is "once" or "all".
	MissingImageWarnings string `validate:"oneof=once all"`

	// RenderTargetWidth resizes rendered samples down to this width when
	// positive; 0 keeps the source resolution.
	RenderTargetWidth int `validate:"gte=0"`

	// LineWidth is the box stroke width in pixels for rendered samples.
	LineWidth int `validate:"gte=1"`

	// FilenameReplacements is applied to table paths on load, for when the
	// directory structure changed since the detector ran.
	FilenameReplacements map[string]string
}

// DefaultOptions returns the standard thresholds for camera-trap output.
func DefaultOptions() Options {
	return Options{
		ConfidenceMin:              0.849,
		ConfidenceMax:              1.0,
		IOUThreshold:               0.9,
		OccurrenceThreshold:        15,
		MaxSuspiciousDetectionSize: 0.2,
		Workers:                    10,
		WriteReviewFolder:          true,
		MissingImageWarnings:       WarnOnce,
		LineWidth:                  15,
	}
}

var validate = validator.New()

// Validate checks the option values and the confidence window. All
// failures wrap ErrConfig so callers can report them before starting work.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if o.ConfidenceMax < o.ConfidenceMin {
		return fmt.Errorf("%w: confidence window [%f, %f] is empty",
			ErrConfig, o.ConfidenceMin, o.ConfidenceMax)
	}
	return nil
}

func (o Options) excludedCategories() map[string]bool {
	if len(o.ExcludeCategories) == 0 {
		return nil
	}
	set := make(map[string]bool, len(o.ExcludeCategories))
	for _, c := range o.ExcludeCategories {
		set[c] = true
	}
	return set
}
