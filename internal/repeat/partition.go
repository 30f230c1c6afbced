package repeat

import (
	"fmt"
	"path"

	"github.com/trailsense/repeat-detect/internal/results"
)

// Partition is the table split into per-directory comparison groups, plus
// the filename index back into the original table rows.
type Partition struct {
	// Dirs holds the directory keys in first-appearance order; this order
	// fixes directory indices for clustering results and review exports.
	Dirs []string

	// Groups maps a directory key to the records under it, in table order.
	Groups map[string][]*results.Record

	// RowByFile maps each image path to its row index in the table.
	RowByFile map[string]int
}

// PartitionTable splits the table into directory groups. nLevelsFromLeaf 0
// groups by each image's immediate parent directory; higher values walk up
// that many additional levels. An empty directory key (an image at the
// collection root, or a grouping depth that walks past it) and a duplicate
// image path are both integrity errors.
func PartitionTable(t *results.Table, nLevelsFromLeaf int) (*Partition, error) {
	p := &Partition{
		Groups:    make(map[string][]*results.Record),
		RowByFile: make(map[string]int, len(t.Images)),
	}

	for row, rec := range t.Images {
		dir := path.Dir(rec.File)
		for level := 0; level < nLevelsFromLeaf; level++ {
			dir = path.Dir(dir)
		}
		if dir == "." || dir == "/" || dir == "" {
			return nil, fmt.Errorf("%w: image %q has no directory at %d levels from leaf",
				ErrIntegrity, rec.File, nLevelsFromLeaf)
		}

		if _, dup := p.RowByFile[rec.File]; dup {
			return nil, fmt.Errorf("%w: duplicate image path %q", ErrIntegrity, rec.File)
		}
		p.RowByFile[rec.File] = row

		if _, seen := p.Groups[dir]; !seen {
			p.Dirs = append(p.Dirs, dir)
		}
		p.Groups[dir] = append(p.Groups[dir], rec)
	}

	return p, nil
}
