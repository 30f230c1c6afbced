// Package results models the detector-output table and handles its JSON
// persistence.
//
// The table format is one JSON document with an "images" array plus an
// arbitrary set of sibling top-level fields (detector info, category maps,
// and so on). Only the images array is interpreted; every other top-level
// field is carried through load and save verbatim so that downstream tools
// keep working on filtered output.
//
// # Path Normalization
//
// Image paths in the table may use either path separator depending on the
// platform the detector ran on. Load normalizes all paths to forward slashes
// and optionally applies caller-supplied substring replacements, which is
// useful when the directory structure has changed since the detector ran.
package results
