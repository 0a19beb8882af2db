// Package media wraps the ffmpeg and ffprobe invocations that turn a video
// into frame images and a subtitle file.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/autotag/internal/subtitle"
	"github.com/therealutkarshpriyadarshi/autotag/pkg/models"
)

// FramePattern names decomposed frames by a zero-padded sequence number
const FramePattern = "%04d.jpg"

// FFmpeg wraps FFmpeg operations
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpeg creates a new FFmpeg instance
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// VideoMetadata holds video metadata extracted from ffprobe
type VideoMetadata struct {
	Format  FormatInfo   `json:"format"`
	Streams []StreamInfo `json:"streams"`
}

// FormatInfo holds format information
type FormatInfo struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// StreamInfo holds stream information
type StreamInfo struct {
	Index        int               `json:"index"`
	CodecType    string            `json:"codec_type"`
	CodecName    string            `json:"codec_name"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	FrameRate    string            `json:"r_frame_rate"`
	AvgFrameRate string            `json:"avg_frame_rate"`
	Tags         map[string]string `json:"tags"`
}

// ProbeVideo extracts metadata from a video file
func (f *FFmpeg) ProbeVideo(ctx context.Context, inputPath string) (*VideoMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, stderr.String())
	}

	return parseMetadata(stdout.Bytes())
}

func parseMetadata(data []byte) (*VideoMetadata, error) {
	var metadata VideoMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &metadata, nil
}

// ExtractVideoInfo extracts basic video information
func (f *FFmpeg) ExtractVideoInfo(ctx context.Context, inputPath string) (*models.VideoInfo, error) {
	metadata, err := f.ProbeVideo(ctx, inputPath)
	if err != nil {
		return nil, err
	}

	return metadata.VideoInfo(), nil
}

// VideoInfo summarises the metadata of the first video stream
func (m *VideoMetadata) VideoInfo() *models.VideoInfo {
	info := &models.VideoInfo{
		Filename: filepath.Base(m.Format.Filename),
	}

	if duration, err := strconv.ParseFloat(m.Format.Duration, 64); err == nil {
		info.Duration = duration
	}

	if size, err := strconv.ParseInt(m.Format.Size, 10, 64); err == nil {
		info.Size = size
	}

	videoFound := false
	for _, stream := range m.Streams {
		switch stream.CodecType {
		case "subtitle":
			info.SubtitleStreams++
		case "video":
			if videoFound {
				continue
			}
			videoFound = true
			info.Width = stream.Width
			info.Height = stream.Height
			info.Codec = stream.CodecName
			info.FrameRate = parseFrameRate(stream.AvgFrameRate)
		}
	}

	return info
}

// parseFrameRate parses ffprobe rates such as "30000/1001"
func parseFrameRate(rate string) float64 {
	parts := strings.Split(rate, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}

// DecomposeFrames writes the video as JPEG frames named by FramePattern into
// outDir, sampled at subtitle.FramesPerSecond.
func (f *FFmpeg) DecomposeFrames(ctx context.Context, videoPath, outDir string) error {
	absVideo, err := filepath.Abs(videoPath)
	if err != nil {
		return fmt.Errorf("failed to resolve video path: %w", err)
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, decomposeArgs(absVideo)...)
	cmd.Dir = outDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("frame extraction failed: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

func decomposeArgs(videoPath string) []string {
	return []string{
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%d", subtitle.FramesPerSecond),
		"-q:v", "2",
		"-y",
		FramePattern,
	}
}
