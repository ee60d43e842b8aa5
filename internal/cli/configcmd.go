package cli

import (
	"github.com/spf13/cobra"

	"github.com/okian/commskill/internal/config"
	"github.com/okian/commskill/internal/domain/scoring"
)

// configView is the printable part of the configuration. Secrets are
// reported only as set or unset.
type configView struct {
	Addr          string `json:"addr" yaml:"addr"`
	QueueSize     int    `json:"queueSize" yaml:"queueSize"`
	WorkerCount   int    `json:"workerCount" yaml:"workerCount"`
	JobTimeout    string `json:"jobTimeout" yaml:"jobTimeout"`
	StoreDriver   string `json:"storeDriver" yaml:"storeDriver"`
	DedupeBackend string `json:"dedupeBackend" yaml:"dedupeBackend"`
	MediaBackend  string `json:"mediaBackend" yaml:"mediaBackend"`
	Annotator     bool   `json:"annotator" yaml:"annotator"`
	Transcriber   bool   `json:"transcriber" yaml:"transcriber"`
	Coach         bool   `json:"coach" yaml:"coach"`
	DevSecret     bool   `json:"devSecret" yaml:"devSecret"`

	Scoring scoringView `json:"scoring" yaml:"scoring"`
}

type scoringView struct {
	Policy      scoring.Policy                `json:"policy" yaml:"policy"`
	Weights     map[scoring.Dimension]float64 `json:"weights" yaml:"weights"`
	Fallbacks   map[scoring.Dimension]float64 `json:"fallbacks" yaml:"fallbacks"`
	IdealMinWPM float64                       `json:"idealMinWpm" yaml:"idealMinWpm"`
	IdealMaxWPM float64                       `json:"idealMaxWpm" yaml:"idealMaxWpm"`
}

func newConfigView(cfg *config.Config) (configView, error) {
	sc, err := cfg.Scoring()
	if err != nil {
		return configView{}, err
	}
	return configView{
		Addr:          cfg.Addr,
		QueueSize:     cfg.QueueSize,
		WorkerCount:   cfg.WorkerCount,
		JobTimeout:    cfg.JobTimeout.String(),
		StoreDriver:   cfg.StoreDriver,
		DedupeBackend: cfg.DedupeBackend,
		MediaBackend:  cfg.MediaBackend,
		Annotator:     cfg.ProviderEndpoint != "",
		Transcriber:   cfg.AssemblyAIAPIKey != "",
		Coach:         cfg.OpenAIAPIKey != "",
		DevSecret:     cfg.JWTSecret == config.DevJWTSecret,
		Scoring: scoringView{
			Policy:      sc.Policy,
			Weights:     sc.Weights,
			Fallbacks:   sc.Fallbacks,
			IdealMinWPM: sc.IdealMinWPM,
			IdealMaxWPM: sc.IdealMaxWPM,
		},
	}, nil
}

func newConfigCommand(o *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate and print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			view, err := newConfigView(cfg)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, view)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", FormatYAML, "output format: json or yaml")
	return cmd
}
