// Package pipeline drives one video through decomposition, caption matching,
// detection, assembly and persistence.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/therealutkarshpriyadarshi/autotag/internal/assembler"
	"github.com/therealutkarshpriyadarshi/autotag/internal/config"
	"github.com/therealutkarshpriyadarshi/autotag/internal/detector"
	"github.com/therealutkarshpriyadarshi/autotag/internal/frames"
	"github.com/therealutkarshpriyadarshi/autotag/internal/logging"
	"github.com/therealutkarshpriyadarshi/autotag/internal/media"
	"github.com/therealutkarshpriyadarshi/autotag/internal/metrics"
	"github.com/therealutkarshpriyadarshi/autotag/internal/output"
	"github.com/therealutkarshpriyadarshi/autotag/internal/subtitle"
	"github.com/therealutkarshpriyadarshi/autotag/internal/tracing"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// Stage names, used for logs, spans and metrics
const (
	StageProbe     = "probe"
	StageDecompose = "decompose"
	StageSubtitles = "subtitles"
	StageMatch     = "match"
	StageDetect    = "detect"
	StageAssemble  = "assemble"
	StagePersist   = "persist"
)

// stageProgress is the job progress reached once a stage completes
var stageProgress = map[string]float64{
	StageProbe:     5,
	StageDecompose: 30,
	StageSubtitles: 35,
	StageMatch:     40,
	StageDetect:    85,
	StageAssemble:  90,
	StagePersist:   95,
}

// MediaProcessor turns a video into frame images and a subtitle file
type MediaProcessor interface {
	ProbeVideo(ctx context.Context, videoPath string) (*media.VideoMetadata, error)
	DecomposeFrames(ctx context.Context, videoPath, outDir string) error
	ExtractSubtitlesFrom(ctx context.Context, metadata *media.VideoMetadata, videoPath, outDir string) (string, error)
}

// ResultSink receives the assembled results of one video
type ResultSink interface {
	WriteResults(ctx context.Context, results []models.Result) error
}

// Report summarises one processed video
type Report struct {
	Video      string
	OutputDir  string
	Info       models.VideoInfo
	Frames     int
	FirstFrame int
	Captioned  int
	Drift      bool
	Detections int
	Results    []models.Result
	Stats      assembler.Stats
	Duration   time.Duration
}

// Service orchestrates video processing
type Service struct {
	media    MediaProcessor
	detector detector.Source
	cfg      config.PipelineConfig
	logger   *logging.Logger

	storage ObjectStore
	jobs    JobStore
	cache   JobCache
	notify  JobNotifier

	workerID string
}

// NewService creates a pipeline service
func NewService(cfg config.PipelineConfig, mp MediaProcessor, det detector.Source, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		media:    mp,
		detector: det,
		cfg:      cfg,
		logger:   logger,
	}
}

type progressFunc func(stage string, percent float64)

// ProcessVideo processes one local video and writes its results under
// outputDir/<video name>. Extra sinks receive the same results after the CSV
// has been written. Any stage failure aborts the video.
func (s *Service) ProcessVideo(ctx context.Context, videoPath, outputDir string, sinks ...ResultSink) (*Report, error) {
	return s.processVideo(ctx, videoPath, outputDir, nil, sinks...)
}

func (s *Service) processVideo(ctx context.Context, videoPath, outputDir string, progress progressFunc, sinks ...ResultSink) (*Report, error) {
	start := time.Now()
	logger := s.logger.WithVideo(filepath.Base(videoPath))

	span, ctx := tracing.StartSpan(ctx, "autotag.process_video")
	tracing.SetTag(span, "video", videoPath)

	report, err := s.run(ctx, logger, videoPath, outputDir, progress, sinks)
	tracing.FinishSpan(span, err)
	if err != nil {
		metrics.RecordError("pipeline", "process_video")
		return nil, err
	}

	report.Duration = time.Since(start)
	logger.WithFields(map[string]interface{}{
		"results":  len(report.Results),
		"duration": report.Duration.String(),
	}).Info("Video processed")

	return report, nil
}

func (s *Service) run(ctx context.Context, logger *logging.Logger, videoPath, outputDir string, progress progressFunc, sinks []ResultSink) (*Report, error) {
	workspace, err := s.workspace()
	if err != nil {
		return nil, err
	}
	if s.cfg.KeepTemp {
		logger.WithField("workspace", workspace).Info("Keeping workspace")
	} else {
		defer os.RemoveAll(workspace)
	}

	framesDir := filepath.Join(workspace, "frames")
	if err := os.MkdirAll(framesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create frames directory: %w", err)
	}

	report := &Report{Video: videoPath}
	step := func(name string, fn func(ctx context.Context) error) error {
		if err := s.stage(ctx, logger, name, fn); err != nil {
			return err
		}
		if progress != nil {
			progress(name, stageProgress[name])
		}
		return nil
	}

	var metadata *media.VideoMetadata
	err = step(StageProbe, func(ctx context.Context) error {
		metadata, err = s.media.ProbeVideo(ctx, videoPath)
		if err != nil {
			return err
		}
		report.Info = *metadata.VideoInfo()
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = step(StageDecompose, func(ctx context.Context) error {
		return s.media.DecomposeFrames(ctx, videoPath, framesDir)
	})
	if err != nil {
		return nil, err
	}

	var subtitlesPath string
	err = step(StageSubtitles, func(ctx context.Context) error {
		subtitlesPath, err = s.media.ExtractSubtitlesFrom(ctx, metadata, videoPath, workspace)
		return err
	})
	if err != nil {
		return nil, err
	}

	var captions frames.CaptionMap
	err = step(StageMatch, func(ctx context.Context) error {
		images, err := frames.FindFrames(framesDir)
		if err != nil {
			return err
		}
		track, err := subtitle.Load(subtitlesPath)
		if err != nil {
			return err
		}
		report.FirstFrame, err = subtitle.FirstFrame(track)
		if err != nil {
			return err
		}
		matches, err := frames.Match(images, track)
		if err != nil {
			return err
		}
		captions = frames.BuildCaptionMap(matches)

		report.Frames = len(images)
		report.Captioned = len(captions)
		logger.LogMatchSummary(report.Frames, report.FirstFrame, report.Captioned)
		metrics.RecordFrames(report.Frames, report.Captioned)

		if s.cfg.CheckDrift {
			report.Drift = checkDrift(logger, track, report.Captioned)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var detections []models.Detection
	err = step(StageDetect, func(ctx context.Context) error {
		detections, err = s.detector.Detect(ctx, framesDir)
		report.Detections = len(detections)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = step(StageAssemble, func(ctx context.Context) error {
		report.Results = assembler.Collect(assembler.Assemble(detections, captions))
		report.Stats = assembler.Summarize(report.Results)
		metrics.RecordDetections(report.Stats.Labels)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = step(StagePersist, func(ctx context.Context) error {
		report.OutputDir = output.VideoDir(outputDir, videoPath)
		if err := writeCSV(ctx, report.OutputDir, report.Results); err != nil {
			return err
		}
		for _, sink := range sinks {
			if err := sink.WriteResults(ctx, report.Results); err != nil {
				return err
			}
		}
		metrics.RecordResults(len(report.Results))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// stage runs fn inside a span and records its duration and outcome
func (s *Service) stage(ctx context.Context, logger *logging.Logger, name string, fn func(ctx context.Context) error) error {
	span, ctx := tracing.StartSpan(ctx, "autotag."+name)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	tracing.FinishSpan(span, err)
	metrics.RecordStage(name, duration, err)
	logger.LogStage(name, duration, err)

	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// workspace creates a fresh absolute scratch directory
func (s *Service) workspace() (string, error) {
	root := s.cfg.TempDir
	if root != "" {
		if err := os.MkdirAll(root, 0755); err != nil {
			return "", fmt.Errorf("failed to create temp root: %w", err)
		}
	}

	dir, err := os.MkdirTemp(root, "autotag-*")
	if err != nil {
		return "", fmt.Errorf("failed to create workspace: %w", err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("failed to resolve workspace: %w", err)
	}
	return abs, nil
}

func writeCSV(ctx context.Context, dir string, results []models.Result) error {
	w, err := output.NewWriter(dir)
	if err != nil {
		return err
	}
	if err := w.WriteResults(ctx, results); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
