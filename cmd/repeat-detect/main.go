package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/trailsense/repeat-detect/internal/logging"
	"github.com/trailsense/repeat-detect/internal/repeat"
	"github.com/trailsense/repeat-detect/internal/results"
	"github.com/trailsense/repeat-detect/internal/review"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Optional .env for the RD_* defaults; absence is fine.
	_ = godotenv.Load()

	defaults := repeat.DefaultOptions()

	app := &cli.App{
		Name:      "repeat-detect",
		Usage:     "find and suppress repeated false positives in detector output",
		ArgsUsage: "INPUT_JSON OUTPUT_JSON",
		Version:   fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "image-base",
				Usage:   "directory the table's relative image paths resolve against",
				EnvVars: []string{"RD_IMAGE_BASE"},
			},
			&cli.StringFlag{
				Name:    "output-base",
				Usage:   "directory the review folder is created under",
				EnvVars: []string{"RD_OUTPUT_BASE"},
			},
			&cli.Float64Flag{
				Name:    "confidence-min",
				Usage:   "don't consider detections below this confidence as suspicious",
				Value:   defaults.ConfidenceMin,
				EnvVars: []string{"RD_CONFIDENCE_MIN"},
			},
			&cli.Float64Flag{
				Name:    "confidence-max",
				Usage:   "don't consider detections above this confidence as suspicious",
				Value:   defaults.ConfidenceMax,
				EnvVars: []string{"RD_CONFIDENCE_MAX"},
			},
			&cli.Float64Flag{
				Name:    "iou-threshold",
				Usage:   "box overlap at which two detections count as the same location",
				Value:   defaults.IOUThreshold,
				EnvVars: []string{"RD_IOU_THRESHOLD"},
			},
			&cli.IntFlag{
				Name:    "occurrence-threshold",
				Usage:   "occurrences of one location required before it is suspicious",
				Value:   defaults.OccurrenceThreshold,
				EnvVars: []string{"RD_OCCURRENCE_THRESHOLD"},
			},
			&cli.Float64Flag{
				Name:    "max-detection-size",
				Usage:   "detections at or above this fraction of the image are never suspicious",
				Value:   defaults.MaxSuspiciousDetectionSize,
				EnvVars: []string{"RD_MAX_DETECTION_SIZE"},
			},
			&cli.StringSliceFlag{
				Name:  "exclude-category",
				Usage: "category id to exclude from analysis (repeatable)",
			},
			&cli.IntFlag{
				Name:    "dir-levels-from-leaf",
				Usage:   "levels above each image's parent directory to group by",
				EnvVars: []string{"RD_DIR_LEVELS_FROM_LEAF"},
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "parallelism for clustering and rendering, 0 runs serially",
				Value:   defaults.Workers,
				EnvVars: []string{"RD_WORKERS"},
			},
			&cli.StringFlag{
				Name:  "review-file",
				Usage: "reload suspicious locations from this detectionIndex.json instead of discovering them",
			},
			&cli.StringFlag{
				Name:  "keep-list",
				Usage: "text file of sample filenames confirmed as real detections (reload mode)",
			},
			&cli.BoolFlag{
				Name:  "omit-review-folder",
				Usage: "skip writing rendered samples and the detection index",
			},
			&cli.StringFlag{
				Name:  "missing-image-warnings",
				Usage: "warn about missing source images \"once\" or on \"all\" occurrences",
				Value: defaults.MissingImageWarnings,
			},
			&cli.IntFlag{
				Name:  "target-width",
				Usage: "downscale rendered samples to this width, 0 keeps source resolution",
			},
			&cli.IntFlag{
				Name:  "line-width",
				Usage: "box stroke width in pixels for rendered samples",
				Value: defaults.LineWidth,
			},
			&cli.StringSliceFlag{
				Name:  "filename-replacement",
				Usage: "OLD=NEW substring replacement applied to table paths on load (repeatable)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"RD_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "also log to this rotated file",
				EnvVars: []string{"RD_LOG_FILE"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 2 {
		cli.ShowAppHelp(c)
		return cli.Exit("expected INPUT_JSON and OUTPUT_JSON arguments", 2)
	}
	inputPath := c.Args().Get(0)
	outputPath := c.Args().Get(1)

	replacements, err := parseReplacements(c.StringSlice("filename-replacement"))
	if err != nil {
		return err
	}

	opts := repeat.DefaultOptions()
	opts.ImageBase = c.String("image-base")
	opts.OutputBase = c.String("output-base")
	opts.ConfidenceMin = c.Float64("confidence-min")
	opts.ConfidenceMax = c.Float64("confidence-max")
	opts.IOUThreshold = c.Float64("iou-threshold")
	opts.OccurrenceThreshold = c.Int("occurrence-threshold")
	opts.MaxSuspiciousDetectionSize = c.Float64("max-detection-size")
	opts.ExcludeCategories = c.StringSlice("exclude-category")
	opts.NDirLevelsFromLeaf = c.Int("dir-levels-from-leaf")
	opts.Workers = c.Int("workers")
	opts.ReviewFile = c.String("review-file")
	opts.KeepListFile = c.String("keep-list")
	opts.WriteReviewFolder = !c.Bool("omit-review-folder")
	opts.MissingImageWarnings = c.String("missing-image-warnings")
	opts.RenderTargetWidth = c.Int("target-width")
	opts.LineWidth = c.Int("line-width")
	opts.FilenameReplacements = replacements

	if err := opts.Validate(); err != nil {
		return err
	}

	log := logging.New(c.String("log-level"), c.String("log-file"))
	ctx := context.Background()

	table, err := results.Load(inputPath, opts.FilenameReplacements)
	if err != nil {
		return err
	}
	log.WithField("images", len(table.Images)).Info("loaded detection table")

	part, err := repeat.PartitionTable(table, opts.NDirLevelsFromLeaf)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"images":      len(table.Images),
		"directories": len(part.Dirs),
	}).Info("separated files into directories")

	var suspicious [][]*repeat.Location
	if opts.ReviewFile == "" {
		suspicious, err = repeat.DiscoverSuspicious(ctx, part, opts, log)
		if err != nil {
			return err
		}
	} else {
		suspicious, err = reloadSuspicious(part, opts, log)
		if err != nil {
			return err
		}
	}

	counters, err := repeat.Suppress(table, part.RowByFile, suspicious, opts)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"boxes_changed":     counters.BoxesChanged,
		"max_conf_changes":  counters.MaxConfChanges,
		"to_negative":       counters.MaxConfToNegative,
		"crossed_threshold": counters.CrossedThreshold,
	}).Info("finished updating detection table")

	if err := results.Save(table, outputPath); err != nil {
		return err
	}

	if opts.WriteReviewFolder {
		indexPath, err := review.Export(ctx, part.Dirs, suspicious, opts, log)
		if err != nil {
			return err
		}
		log.WithField("index", indexPath).Info("review export complete")
	}

	return nil
}

// reloadSuspicious reads a previous export and applies the reviewer's
// verdict instead of re-running discovery.
func reloadSuspicious(part *repeat.Partition, opts repeat.Options, log *logrus.Logger) ([][]*repeat.Location, error) {
	log.WithField("file", opts.ReviewFile).Info("bypassing detection-finding, loading review index")

	idx, err := review.LoadIndex(opts.ReviewFile)
	if err != nil {
		return nil, err
	}
	if err := idx.CheckAgainstPartition(len(part.Dirs)); err != nil {
		return nil, err
	}

	var keepList []string
	if opts.KeepListFile != "" {
		keepList, err = review.LoadKeepList(opts.KeepListFile)
		if err != nil {
			return nil, err
		}
	}

	removed := review.Filter(idx, keepList, filepath.Dir(opts.ReviewFile), log)
	log.WithField("removed", removed).Info("applied manual review")

	return idx.Suspicious(), nil
}

func parseReplacements(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		old, repl, found := strings.Cut(pair, "=")
		if !found || old == "" {
			return nil, fmt.Errorf("invalid --filename-replacement %q, want OLD=NEW", pair)
		}
		out[old] = repl
	}
	return out, nil
}
