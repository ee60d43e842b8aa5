package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/commskill/internal/config"
	"github.com/okian/commskill/pkg/auth"
	"github.com/okian/commskill/pkg/logger"
)

func newTokenCommand(o *options) *cobra.Command {
	var (
		user string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			mgr, err := newManager(cmd, cfg)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.JWTTTL
			}
			tok, err := mgr.IssueFor(user, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user id placed in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from config)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newManager(cmd *cobra.Command, cfg *config.Config) (*auth.Manager, error) {
	if cfg.JWTSecret == config.DevJWTSecret {
		logger.Get().Warn(cmd.Context(), "signing with the development secret; set COMMSKILL_JWT_SECRET")
	}
	return auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
}
