package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/quickcut/internal/manifest"
	"github.com/ivlev/quickcut/internal/subtitle"
	"github.com/ivlev/quickcut/internal/timeline"
)

func newSubtitlesCommand() *cobra.Command {
	var (
		format     string
		output     string
		pause      float64
		transition float64
	)

	cmd := &cobra.Command{
		Use:   "subtitles <manifest.yaml>",
		Short: "Write SRT or WebVTT subtitles from a run manifest",
		Long: "Rebuilds the timeline from the narration lengths recorded in a manifest,\n" +
			"optionally with different pause or transition values, without narrating again.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := subtitle.ParseFormat(format)
			if err != nil {
				return err
			}
			m, err := manifest.Read(args[0])
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}

			var override *timeline.TimingParams
			if cmd.Flags().Changed("pause") || cmd.Flags().Changed("transition") {
				p := m.Timing
				if cmd.Flags().Changed("pause") {
					p.PauseSeconds = pause
				}
				if cmd.Flags().Changed("transition") {
					p.TransitionSeconds = transition
				}
				override = &p
			}

			tl, err := m.Rebuild(override)
			if err != nil {
				return err
			}
			content, err := subtitle.Generate(tl, m.SourceSlides(), f)
			if err != nil {
				return err
			}

			if output == "-" {
				fmt.Fprint(cmd.OutOrStdout(), content)
				return nil
			}
			path := output
			if path == "" {
				path = subtitle.PathFor(m.Video, f)
			}
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				return fmt.Errorf("write subtitles: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[+++] Subtitles: %s (%d cues)\n", path, len(tl.Entries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "srt", "Subtitle format: srt, vtt")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path, - for stdout (default next to the video)")
	cmd.Flags().Float64Var(&pause, "pause", 0, "Override the recorded pause (seconds)")
	cmd.Flags().Float64Var(&transition, "transition", 0, "Override the recorded transition (seconds)")
	return cmd
}
