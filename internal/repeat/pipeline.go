package repeat

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DiscoverSuspicious runs clustering and classification over every
// directory group and returns one suspicious-location list per directory,
// indexed like part.Dirs.
//
// Directories are processed on a pool of opts.Workers goroutines (serially
// when 0). Results land in a pre-sized slice indexed by directory, so the
// output order is the partition order regardless of scheduling. The first
// failing directory cancels the rest and fails the whole call: skipping a
// directory would silently understate suppression.
func DiscoverSuspicious(ctx context.Context, part *Partition, opts Options, log *logrus.Logger) ([][]*Location, error) {
	suspicious := make([][]*Location, len(part.Dirs))

	if opts.Workers <= 0 {
		for i, dir := range part.Dirs {
			candidates, err := FindMatches(dir, part.Groups[dir], opts)
			if err != nil {
				return nil, err
			}
			suspicious[i] = Classify(candidates, opts.OccurrenceThreshold)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for i, dir := range part.Dirs {
			i, dir := i, dir
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				candidates, err := FindMatches(dir, part.Groups[dir], opts)
				if err != nil {
					return err
				}
				suspicious[i] = Classify(candidates, opts.OccurrenceThreshold)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	if log != nil {
		nLocations := 0
		nInstances := 0
		for _, locs := range suspicious {
			nLocations += len(locs)
			for _, loc := range locs {
				nInstances += len(loc.Instances)
			}
		}
		log.WithFields(logrus.Fields{
			"directories": len(part.Dirs),
			"locations":   nLocations,
			"instances":   nInstances,
		}).Info("finished searching for repeat detections")
	}

	return suspicious, nil
}
