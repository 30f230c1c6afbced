// Package review implements the manual-review round trip for suspicious
// locations.
//
// After a discovery run, Export renders one sample image per suspicious
// location into a review folder and writes a versioned index of every
// location next to them. A human then deletes the samples that show real
// animals. A later run in reload mode reads the index back, drops every
// location whose sample is gone (or, with a keep-list, whose sample is not
// listed), and feeds the survivors to the same suppression pass a discovery
// run would.
package review
