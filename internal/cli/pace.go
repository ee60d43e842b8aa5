package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type paceOutput struct {
	WordsPerMinute float64 `json:"wordsPerMinute" yaml:"wordsPerMinute"`
	IdealMin       float64 `json:"idealMin" yaml:"idealMin"`
	IdealMax       float64 `json:"idealMax" yaml:"idealMax"`
	Score          float64 `json:"score" yaml:"score"`
}

func newPaceCommand(o *options) *cobra.Command {
	var (
		wpm    float64
		output string
	)
	cmd := &cobra.Command{
		Use:   "pace",
		Short: "Score a speaking rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if wpm < 0 {
				return fmt.Errorf("wpm must not be negative: %v", wpm)
			}
			cfg, err := o.load()
			if err != nil {
				return err
			}
			sc, err := cfg.Scoring()
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, paceOutput{
				WordsPerMinute: wpm,
				IdealMin:       sc.IdealMinWPM,
				IdealMax:       sc.IdealMaxWPM,
				Score:          sc.PaceScore(wpm),
			})
		},
	}
	cmd.Flags().Float64Var(&wpm, "wpm", 0, "words per minute")
	cmd.Flags().StringVarP(&output, "output", "o", FormatJSON, "output format: json or yaml")
	_ = cmd.MarkFlagRequired("wpm")
	return cmd
}
