package review

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/trailsense/repeat-detect/internal/render"
	"github.com/trailsense/repeat-detect/internal/repeat"
)

// sampleJob is one pending sample render.
type sampleJob struct {
	loc     *repeat.Location
	outPath string
}

// Export writes a review folder under opts.OutputBase: one rendered sample
// per suspicious location, named dir%04d_det%04d.jpg from the location's
// directory and detection indices, plus the detection index file. The
// sample name is recorded on each location before the index is written, so
// a reload can map deleted samples back to locations.
//
// The sample rendered is the location's founding instance. A missing source
// image is logged (once or on every occurrence, per options) and that
// sample is skipped; rendering failures on present images fail the export.
// Renders run on a bounded pool; names depend only on partition order, so
// scheduling cannot change them. Returns the path of the index file.
func Export(ctx context.Context, dirs []string, suspicious [][]*repeat.Location, opts repeat.Options, log *logrus.Logger) (string, error) {
	folder := filepath.Join(opts.OutputBase, "filtering_"+time.Now().Format("2006.01.02.15.04.05"))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("failed to create review folder: %w", err)
	}

	var jobs []sampleJob
	for iDir, locations := range suspicious {
		for iLoc, loc := range locations {
			name := fmt.Sprintf("dir%04d_det%04d.jpg", iDir, iLoc)
			loc.SampleImage = name
			jobs = append(jobs, sampleJob{loc: loc, outPath: filepath.Join(folder, name)})
		}
	}

	cache := render.NewCache()
	var warned atomic.Bool
	renderOne := func(job sampleJob) error {
		inst := job.loc.Instances[0]
		inPath := filepath.Join(opts.ImageBase, filepath.FromSlash(inst.File))
		if _, err := os.Stat(inPath); err != nil {
			if log != nil && (opts.MissingImageWarnings == repeat.WarnAll || warned.CompareAndSwap(false, true)) {
				log.WithField("file", inPath).Warn("could not find sample source image")
			}
			return nil
		}
		return render.BoxToFile(cache, inPath, job.outPath, render.Box{
			BBox:        job.loc.BBox,
			Category:    inst.Category,
			LineWidth:   opts.LineWidth,
			TargetWidth: opts.RenderTargetWidth,
		})
	}

	if opts.Workers <= 0 {
		for _, job := range jobs {
			if err := renderOne(job); err != nil {
				return "", err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for _, job := range jobs {
			job := job
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return renderOne(job)
			})
		}
		if err := g.Wait(); err != nil {
			return "", err
		}
	}

	indexPath := filepath.Join(folder, IndexFileName)
	if err := SaveIndex(BuildIndex(dirs, suspicious), indexPath); err != nil {
		return "", err
	}

	if log != nil {
		log.WithFields(logrus.Fields{
			"folder":  folder,
			"samples": len(jobs),
		}).Info("wrote review folder")
	}
	return indexPath, nil
}
