package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivlev/quickcut/internal/tts"
)

func newLanguagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the narration languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			codes := tts.LanguageCodes()
			rows := make([][]string, 0, len(codes))
			for _, code := range codes {
				name, _ := tts.LanguageName(code)
				rows = append(rows, []string{code, name, tts.NativeName(code), tts.DefaultVoice(code)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Code", "Language", "Native", "Default voice"},
				rows,
				nil,
			))
			return nil
		},
	}
}

func newVoicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "voices [language]",
		Short: "List the edge-tts voices, for one language or all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codes := tts.LanguageCodes()
			if len(args) == 1 {
				code := strings.TrimSpace(args[0])
				if _, ok := tts.EdgeVoices[code]; !ok {
					return fmt.Errorf("no voices for %q. Run quickcut languages for the list", code)
				}
				codes = []string{code}
			}

			var rows [][]string
			for _, code := range codes {
				for i, voice := range tts.EdgeVoices[code] {
					def := ""
					if i == 0 {
						def = "yes"
					}
					rows = append(rows, []string{code, voice, def})
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Language", "Voice", "Default"}, rows, nil))
			return nil
		},
	}
}
