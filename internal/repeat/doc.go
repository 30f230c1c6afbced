// Package repeat finds and suppresses repeated false positives in
// detector output.
//
// A repeated false positive is a detector artifact (a branch, a rock) that
// the model mistakes for an animal at nearly the same screen location across
// many images in the same directory. The package partitions the detection
// table by directory, clusters same-location detections by bounding-box
// overlap, flags clusters that recur often enough to be suspicious, and
// negates the confidence of every member detection so downstream consumers
// treat them as non-detections.
//
// Directories are the unit of comparison: detections in different
// directories are never compared, and per-directory work is independent, so
// clustering runs on a bounded worker pool.
//
// Integrity problems (duplicate paths, out-of-range confidences, a cached
// per-image maximum that would increase) abort the whole run before any
// partial suppression is written; they wrap ErrIntegrity.
package repeat
