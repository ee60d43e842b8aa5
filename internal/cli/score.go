package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/commskill/internal/domain/annotations"
	"github.com/okian/commskill/internal/domain/scoring"
)

type scoreOutput struct {
	Results        scoring.Scores      `json:"results" yaml:"results"`
	Fallbacks      []scoring.Dimension `json:"fallbacks" yaml:"fallbacks"`
	WordsPerMinute float64             `json:"wordsPerMinute" yaml:"wordsPerMinute"`
	WordCount      int                 `json:"wordCount" yaml:"wordCount"`
}

func newScoreCommand(o *options) *cobra.Command {
	var (
		file   string
		policy string
		output string
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an annotation payload",
		Long:  "Score reads provider annotations as JSON and prints the skill scores.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			sc, err := cfg.Scoring()
			if err != nil {
				return err
			}
			if policy != "" {
				p, err := scoring.ParsePolicy(policy)
				if err != nil {
					return err
				}
				sc.Policy = p
			}
			scorer, err := scoring.NewScorer(scoring.WithConfig(sc))
			if err != nil {
				return err
			}

			raw, err := readAnnotations(o, file)
			if err != nil {
				return err
			}
			res, err := scorer.Score(cmd.Context(), raw)
			if err != nil {
				return err
			}

			out := scoreOutput{
				Results:        res.Scores,
				Fallbacks:      res.Fallbacks,
				WordsPerMinute: res.WPM,
				WordCount:      res.Words,
			}
			if out.Fallbacks == nil {
				out.Fallbacks = []scoring.Dimension{}
			}
			return writeOutput(cmd.OutOrStdout(), output, out)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", `annotations JSON file, "-" for stdin`)
	cmd.Flags().StringVar(&policy, "policy", "", "engagement policy: weighted or simple (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", FormatJSON, "output format: json or yaml")
	return cmd
}

func readAnnotations(o *options, file string) (*annotations.RawAnnotations, error) {
	var r io.Reader = o.stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open annotations: %w", err)
		}
		defer f.Close()
		r = f
	}
	return annotations.Decode(r)
}
