package cli

import (
	"crypto/sha256"
	"fmt"

	"github.com/spf13/cobra"

	furiosa "github.com/furiosa-ai/furiosa-client"
	"github.com/furiosa-ai/furiosa-client/artifact"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	TargetSpec     string
	CompilerConfig string
	TargetIR       string
	Output         string
	SHA256         string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <model>",
		Short: "Compile a model into an NPU binary",
		Long: `Submit a model to the compiler service, wait for the task to finish and
write the resulting binary. The target NPU spec and the optional compiler
config may be YAML or JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.TargetSpec, "target-spec", "", "target NPU spec file (YAML or JSON)")
	cmd.Flags().StringVar(&opts.CompilerConfig, "compiler-config", "", "compiler config file (YAML or JSON)")
	cmd.Flags().StringVar(&opts.TargetIR, "target-ir", string(furiosa.TargetENF), "target IR: dfg, ldfg, cdfg, gir, lir or enf")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default <model>.<target-ir>)")
	cmd.Flags().StringVar(&opts.SHA256, "sha256", "", "expected hex sha256 of the binary")
	_ = cmd.MarkFlagRequired("target-spec")

	return cmd
}

func runCompile(cmd *cobra.Command, opts *CompileOptions, model string) error {
	ir, err := furiosa.ParseTargetIR(opts.TargetIR)
	if err != nil {
		return err
	}

	spec, err := loadDocument(opts.TargetSpec)
	if err != nil {
		return err
	}

	source, filename, err := readModel(model)
	if err != nil {
		return err
	}

	req := furiosa.NewCompileRequest(spec, source).
		WithTargetIR(ir).
		WithFilename(filename)

	if opts.CompilerConfig != "" {
		cfg, err := loadDocument(opts.CompilerConfig)
		if err != nil {
			return err
		}
		req = req.WithCompilerConfig(cfg)
	}

	output := opts.Output
	if output == "" {
		output = defaultOutput(model, ir.String())
	}

	var artifactOpts []artifact.Option
	if opts.SHA256 != "" {
		artifactOpts = append(artifactOpts, artifact.WithChecksum(sha256.New(), opts.SHA256))
	}
	if opts.Verbose {
		artifactOpts = append(artifactOpts, artifact.WithProgress())
	}

	c, err := opts.client()
	if err != nil {
		return err
	}

	if err := c.CompileToFile(cmd.Context(), req, output, artifactOpts...); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "compiled %s -> %s\n", model, output)
	return nil
}
