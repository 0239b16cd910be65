// Package cli implements the furiosa command line tool.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	furiosa "github.com/furiosa-ai/furiosa-client"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Endpoint string

	logger *slog.Logger
}

// NewRootCommand creates the root command of the furiosa CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "furiosa",
		Short: "FuriosaAI compiler API client",
		Long: `Compile, calibrate, quantize and optimize models with the FuriosaAI API.

Credentials are read from FURIOSA_ACCESS_KEY_ID and FURIOSA_SECRET_ACCESS_KEY,
or from $HOME/.furiosa/credential.`,
		Version:       furiosa.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Endpoint, "endpoint", "", "API endpoint (overrides FURIOSA_API_ENDPOINT)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewCalibrateCommand(opts))
	cmd.AddCommand(NewQuantizeCommand(opts))
	cmd.AddCommand(NewOptimizeCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// client builds a furiosa.Client from the global flags.
func (o *RootOptions) client() (*furiosa.Client, error) {
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := []furiosa.Option{furiosa.WithLogger(logger)}
	if o.Endpoint != "" {
		opts = append(opts, furiosa.WithEndpoint(o.Endpoint))
	}

	return furiosa.New(opts...)
}
