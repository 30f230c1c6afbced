package repeat

// Instance references one detection occurrence inside the live table. It
// does not own the detection; (File, IDetection) is the lookup key used to
// write the suppressed confidence back.
type Instance struct {
	File       string    `json:"file"`
	IDetection int       `json:"i_detection"`
	BBox       []float64 `json:"bbox"`
	Conf       float64   `json:"conf"`
	Category   string    `json:"category"`
}

// Location is a cluster of instances at approximately the same relative
// screen position within one directory. BBox is the box of the instance
// that founded the cluster; Instances is in discovery order and only ever
// grows. SampleImage is set by the review export and names the rendered
// sample a human inspects.
type Location struct {
	BBox        []float64  `json:"bbox"`
	RelativeDir string     `json:"relative_dir"`
	SampleImage string     `json:"sample_image,omitempty"`
	Instances   []Instance `json:"instances"`
}
