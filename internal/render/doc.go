// Package render draws detection bounding boxes onto copies of the source
// images for human review.
//
// Boxes arrive in coordinates relative to the image size and are scaled to
// pixels at draw time, so rendering works at any resolution, including after
// the optional downscale to a target width. Box colors are fixed per
// category id so the same category always reviews in the same color.
package render
