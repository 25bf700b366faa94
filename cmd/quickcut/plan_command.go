package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ivlev/quickcut/internal/engine"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "plan <input-dir>",
		Short: "Show the slide order and an estimated timeline without narrating",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if len(args) == 1 {
				cfg.InputDir = args[0]
			}
			if cfg.InputDir == "" {
				return fmt.Errorf("input directory is required. Example: quickcut plan ./slides")
			}
			flags.apply(cmd.Flags(), cfg)

			report, estimates, err := engine.Plan(cfg)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(report.Slides))
			for i, s := range report.Slides {
				e := report.Timeline.Entries[i]
				rows = append(rows, []string{
					strconv.Itoa(s.Index + 1),
					s.BaseName,
					seconds(estimates[s.Index]),
					seconds(e.SlideStart),
					seconds(e.NarrationEnd),
					seconds(e.SlideEnd),
					seconds(e.Transition),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Slide", "Narration", "Start", "Narration end", "Slide end", "Transition"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(out, "[*] Estimated length: %.2fs (%.1fs per word at speed %.2f)\n", report.Timeline.Total, 0.3, cfg.Speed)
			report.PrintWarnings(cmd.ErrOrStderr())
			return nil
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
