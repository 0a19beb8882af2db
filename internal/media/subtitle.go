package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// SubtitleFilename is the name of the extracted subtitle track
const SubtitleFilename = "subs.srt"

// emptySubtitles is written when a video has no subtitle stream. Its second
// line is not a timecode, so matching starts at frame 0 and finds no captions.
const emptySubtitles = "\n\n"

// SubtitleInfo holds subtitle track information
type SubtitleInfo struct {
	Index    int
	Codec    string
	Language string
	Title    string
}

// Subtitles returns the subtitle streams in stream order
func (m *VideoMetadata) Subtitles() []SubtitleInfo {
	var subtitles []SubtitleInfo
	for _, stream := range m.Streams {
		if stream.CodecType != "subtitle" {
			continue
		}
		subtitles = append(subtitles, SubtitleInfo{
			Index:    stream.Index,
			Codec:    stream.CodecName,
			Language: stream.Tags["language"],
			Title:    stream.Tags["title"],
		})
	}
	return subtitles
}

// ExtractSubtitles writes the first subtitle stream of the video to
// outDir/subs.srt and returns its path. Videos without subtitles get a stub
// file instead.
func (f *FFmpeg) ExtractSubtitles(ctx context.Context, videoPath, outDir string) (string, error) {
	metadata, err := f.ProbeVideo(ctx, videoPath)
	if err != nil {
		return "", err
	}

	return f.ExtractSubtitlesFrom(ctx, metadata, videoPath, outDir)
}

// ExtractSubtitlesFrom is ExtractSubtitles for a video that was already probed
func (f *FFmpeg) ExtractSubtitlesFrom(ctx context.Context, metadata *VideoMetadata, videoPath, outDir string) (string, error) {
	outputPath := filepath.Join(outDir, SubtitleFilename)

	if len(metadata.Subtitles()) == 0 {
		if err := os.WriteFile(outputPath, []byte(emptySubtitles), 0644); err != nil {
			return "", fmt.Errorf("failed to write empty subtitles: %w", err)
		}
		return outputPath, nil
	}

	absVideo, err := filepath.Abs(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve video path: %w", err)
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, extractSubtitleArgs(absVideo)...)
	cmd.Dir = outDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("subtitle extraction failed: %w, stderr: %s", err, stderr.String())
	}

	return outputPath, nil
}

func extractSubtitleArgs(videoPath string) []string {
	return []string{
		"-i", videoPath,
		"-map", "0:s:0",
		"-y",
		SubtitleFilename,
	}
}
