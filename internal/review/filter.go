package review

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Filter applies the human verdict to a reloaded index, in place.
//
// With a keep-list, a location survives only when its sample image name is
// listed. Without one, a location survives only when its rendered sample
// still exists under baseDir (the review folder); a deleted sample means
// the reviewer judged it a real animal. Invalid locations are dropped
// whole — instances are never removed individually. Returns the number of
// locations dropped.
func Filter(idx *Index, keepList []string, baseDir string, log *logrus.Logger) int {
	var keep map[string]bool
	if keepList != nil {
		keep = make(map[string]bool, len(keepList))
		for _, name := range keepList {
			keep[name] = true
		}
	}

	removed := 0
	for i := range idx.Directories {
		d := &idx.Directories[i]
		valid := d.Locations[:0]
		for _, loc := range d.Locations {
			ok := false
			if keep != nil {
				ok = keep[loc.SampleImage]
			} else if loc.SampleImage != "" {
				_, err := os.Stat(filepath.Join(baseDir, loc.SampleImage))
				ok = err == nil
			}
			if ok {
				valid = append(valid, loc)
			} else {
				removed++
			}
		}
		if dropped := len(d.Locations) - len(valid); dropped > 0 && log != nil {
			log.WithFields(logrus.Fields{
				"directory": d.Dir,
				"dropped":   dropped,
				"loaded":    len(d.Locations),
			}).Info("removed locations by manual review")
		}
		d.Locations = valid
	}
	return removed
}
