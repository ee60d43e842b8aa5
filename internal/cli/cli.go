// Package cli implements the commskill command line tool.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okian/commskill/internal/config"
	"github.com/okian/commskill/pkg/logger"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Option configures the root command.
type Option func(*options)

type options struct {
	load  func() (*config.Config, error)
	stdin io.Reader
}

// WithConfigLoader replaces config.Load.
func WithConfigLoader(fn func() (*config.Config, error)) Option {
	return func(o *options) {
		if fn != nil {
			o.load = fn
		}
	}
}

// WithStdin sets the reader used for "-" file arguments.
func WithStdin(r io.Reader) Option {
	return func(o *options) {
		if r != nil {
			o.stdin = r
		}
	}
}

// NewRootCommand builds the commskill command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	o := &options{load: config.Load, stdin: os.Stdin}
	for _, opt := range opts {
		opt(o)
	}

	var logLevel string
	root := &cobra.Command{
		Use:           "commskill",
		Short:         "Communication skill scoring tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.InitWith(cmd.ErrOrStderr(), logger.FormatText); err != nil {
				return err
			}
			return logger.SetLevelString(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newScoreCommand(o),
		newPaceCommand(o),
		newTokenCommand(o),
		newConfigCommand(o),
		newLoadTestCommand(o),
	)
	return root
}

// Execute runs the root command with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func writeOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
