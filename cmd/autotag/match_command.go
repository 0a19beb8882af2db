package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/therealutkarshpriyadarshi/autotag/internal/caption"
	"github.com/therealutkarshpriyadarshi/autotag/internal/frames"
	"github.com/therealutkarshpriyadarshi/autotag/internal/subtitle"
)

func newMatchCommand() *cobra.Command {
	var framesDir string
	var subtitlesPath string
	var all bool

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Show which caption each extracted frame receives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			images, err := frames.FindFrames(framesDir)
			if err != nil {
				return err
			}
			track, err := subtitle.Load(subtitlesPath)
			if err != nil {
				return err
			}
			first, err := subtitle.FirstFrame(track)
			if err != nil {
				return err
			}
			matches, err := frames.Match(images, track)
			if err != nil {
				return err
			}
			captions := frames.BuildCaptionMap(matches)

			rows := make([][]string, 0, len(images))
			for _, img := range images {
				text, ok := captions[img.Path]
				if !ok && !all {
					continue
				}
				fields := caption.Parse(text)
				rows = append(rows, []string{filepath.Base(img.Path), text, fields.Name, fields.Dist, fields.Date})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d frames, first subtitled frame %d, %d captioned\n", len(images), first, len(captions))
			fmt.Fprintln(out, renderTable(
				[]string{"Frame", "Caption", "Name", "Dist", "Date"},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&framesDir, "frames", "", "Directory of numbered frame images")
	cmd.Flags().StringVar(&subtitlesPath, "subtitles", "", "SRT subtitle file")
	cmd.Flags().BoolVar(&all, "all", false, "Also list frames without a caption")
	_ = cmd.MarkFlagRequired("frames")
	_ = cmd.MarkFlagRequired("subtitles")

	return cmd
}
