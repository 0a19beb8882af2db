package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/therealutkarshpriyadarshi/autotag/internal/config"
	"github.com/therealutkarshpriyadarshi/autotag/internal/database"
	"github.com/therealutkarshpriyadarshi/autotag/internal/detector"
	"github.com/therealutkarshpriyadarshi/autotag/internal/logging"
	"github.com/therealutkarshpriyadarshi/autotag/internal/media"
	"github.com/therealutkarshpriyadarshi/autotag/internal/output"
	"github.com/therealutkarshpriyadarshi/autotag/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/autotag/internal/subtitle"
	"github.com/therealutkarshpriyadarshi/autotag/internal/tracing"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

type processOptions struct {
	darknet    config.DarknetConfig
	outputDir  string
	detections string
	keepTemp   bool
	checkDrift bool
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "process VIDEO...",
		Short: "Decompose videos, run the detector and write results per video",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyProcessFlags(cmd, cfg, opts)

			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}

			closer, err := tracing.Init(cfg.Tracing)
			if err != nil {
				return err
			}
			defer closer.Close()

			source, err := newDetectionSource(cfg.Darknet, opts.detections)
			if err != nil {
				return err
			}

			var repo *database.Repository
			if cfg.Database.Enabled {
				db, err := database.New(cfg.Database)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.Migrate(cmd.Context()); err != nil {
					return err
				}
				repo = database.NewRepository(db)
			}

			ffmpeg := media.NewFFmpeg(cfg.Pipeline.FFmpegPath, cfg.Pipeline.FFprobePath)
			svc := pipeline.NewService(cfg.Pipeline, ffmpeg, source, logger)

			return processVideos(cmd, svc, repo, logger, cfg.Pipeline.OutputDir, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.darknet.Executable, "darknet-executable", "", "Path to the darknet executable")
	flags.StringVar(&opts.darknet.ModelConfig, "darknet-model-config", "", "Path to the darknet model configuration")
	flags.StringVar(&opts.darknet.YoloConfig, "darknet-yolo-config", "", "Path to the YOLO network configuration")
	flags.StringVar(&opts.darknet.Weights, "darknet-weights", "", "Path to the trained weights")
	flags.StringVarP(&opts.outputDir, "output", "o", "", "Directory that receives one result directory per video")
	flags.StringVar(&opts.detections, "detections", "", "Read detections from a captured detector output file instead of running darknet")
	flags.BoolVar(&opts.keepTemp, "keep-temp", false, "Keep extracted frames and subtitles")
	flags.BoolVar(&opts.checkDrift, "check-drift", false, "Warn when subtitle timecodes drift from the frame rate")

	return cmd
}

// applyProcessFlags lets explicitly set flags override the configuration
func applyProcessFlags(cmd *cobra.Command, cfg *config.Config, opts processOptions) {
	flags := cmd.Flags()
	if flags.Changed("darknet-executable") {
		cfg.Darknet.Executable = opts.darknet.Executable
	}
	if flags.Changed("darknet-model-config") {
		cfg.Darknet.ModelConfig = opts.darknet.ModelConfig
	}
	if flags.Changed("darknet-yolo-config") {
		cfg.Darknet.YoloConfig = opts.darknet.YoloConfig
	}
	if flags.Changed("darknet-weights") {
		cfg.Darknet.Weights = opts.darknet.Weights
	}
	if flags.Changed("output") {
		cfg.Pipeline.OutputDir = opts.outputDir
	}
	if flags.Changed("keep-temp") {
		cfg.Pipeline.KeepTemp = opts.keepTemp
	}
	if flags.Changed("check-drift") {
		cfg.Pipeline.CheckDrift = opts.checkDrift
	}
}

func newDetectionSource(cfg config.DarknetConfig, detectionsFile string) (detector.Source, error) {
	if detectionsFile != "" {
		return detector.FileSource{Path: detectionsFile}, nil
	}
	darknet, err := detector.NewDarknet(cfg)
	if err != nil {
		return nil, err
	}
	return darknet, nil
}

// processVideos runs every video in turn. A failing video is reported and
// the remaining videos still run.
func processVideos(cmd *cobra.Command, svc *pipeline.Service, repo *database.Repository, logger *logging.Logger, outputDir string, videos []string) error {
	out := cmd.OutOrStdout()
	var failures []error

	for _, video := range videos {
		if err := cmd.Context().Err(); err != nil {
			return err
		}

		var sinks []pipeline.ResultSink
		var job *models.Job
		if repo != nil {
			job = &models.Job{VideoKey: video, VideoName: video, Status: models.JobStatusProcessing}
			if err := repo.CreateJob(cmd.Context(), job); err != nil {
				failures = append(failures, fmt.Errorf("%s: %w", video, err))
				continue
			}
			sinks = append(sinks, database.NewResultSink(repo, job.ID))
		}

		report, err := svc.ProcessVideo(cmd.Context(), video, outputDir, sinks...)
		if job != nil {
			recordJob(cmd, repo, logger, job, report, err)
		}
		if err != nil {
			fmt.Fprintf(out, "%s: failed: %v\n", video, err)
			failures = append(failures, fmt.Errorf("%s: %w", video, err))
			continue
		}

		fmt.Fprintf(out, "%s: %d frames (first subtitled frame %d, %d captioned), %d results -> %s\n",
			video, report.Frames, report.FirstFrame, report.Captioned, len(report.Results),
			report.OutputDir)
		if report.Drift {
			fmt.Fprintf(out, "%s: warning: subtitle timecodes drift from %d fps\n", video, subtitle.FramesPerSecond)
		}
		fmt.Fprintln(out, output.RenderSummary(report.Results))
	}

	return errors.Join(failures...)
}

func recordJob(cmd *cobra.Command, repo *database.Repository, logger *logging.Logger, job *models.Job, report *pipeline.Report, err error) {
	if err != nil {
		job.Status = models.JobStatusFailed
		job.ErrorMsg = err.Error()
	} else {
		job.Status = models.JobStatusCompleted
		job.Progress = 100
		job.Video = report.Info
		job.FrameCount = report.Frames
		job.FirstFrame = report.FirstFrame
		job.CaptionedFrames = report.Captioned
		job.ResultCount = len(report.Results)
		job.ResultsKey = report.OutputDir
	}
	if updateErr := repo.UpdateJob(cmd.Context(), job); updateErr != nil {
		logger.WithJobID(job.ID).WithError(updateErr).Warn("Failed to record job")
	}
}
