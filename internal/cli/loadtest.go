package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/okian/commskill/internal/domain/scoring"
	"github.com/okian/commskill/internal/loadtest"
	"github.com/okian/commskill/pkg/logger"
)

func newLoadTestCommand(o *options) *cobra.Command {
	var lc loadtest.Config
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive a running service with synthetic annotations",
		Long: "loadtest submits generated annotation payloads to /api/video/score, " +
			"rescoring each locally and failing on any difference.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			mgr, err := newManager(cmd, cfg)
			if err != nil {
				return err
			}
			sc, err := cfg.Scoring()
			if err != nil {
				return err
			}
			scorer, err := scoring.NewScorer(scoring.WithConfig(sc))
			if err != nil {
				return err
			}

			lc.Tokens = mgr
			lc.Scorer = scorer
			lc.Logger = logger.Named("loadtest")
			rep, err := loadtest.Run(cmd.Context(), lc)
			if werr := writeOutput(cmd.OutOrStdout(), FormatJSON, rep.Stats); werr != nil && err == nil {
				err = werr
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&lc.BaseURL, "url", "http://localhost:8080", "base URL of the service")
	f.IntVar(&lc.Payloads, "payloads", loadtest.DefaultPayloads, "number of payloads to submit")
	f.IntVar(&lc.Users, "users", loadtest.DefaultUsers, "number of synthetic users")
	f.IntVar(&lc.Workers, "workers", runtime.NumCPU()*loadtest.WorkerChannelMultiplier, "concurrent workers")
	f.DurationVar(&lc.Timeout, "timeout", loadtest.DefaultTimeout, "HTTP request timeout")
	f.BoolVar(&lc.Save, "save", false, "store one result per user and verify history")
	f.StringVar(&lc.OutputFile, "output", "", "write generated payloads to this file")
	f.BoolVarP(&lc.Verbose, "verbose", "v", false, "log every failure")
	return cmd
}
