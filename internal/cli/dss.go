package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	furiosa "github.com/furiosa-ai/furiosa-client"
	"github.com/furiosa-ai/furiosa-client/artifact"
	"github.com/furiosa-ai/furiosa-client/errs"
)

// DSSOptions holds flags shared by calibrate, quantize and optimize.
type DSSOptions struct {
	*RootOptions
	InputTensors  string
	DynamicRanges string
	Output        string
}

// NewCalibrateCommand creates the calibrate command.
func NewCalibrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DSSOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "calibrate <model>",
		Short: "Build a calibration model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDSS(cmd, opts, args[0], "calibrated.onnx", func(ctx context.Context, c *furiosa.Client, source []byte, filename string) ([]byte, error) {
				req := furiosa.NewCalibrateRequest(source, splitTensors(opts.InputTensors)).WithFilename(filename)
				return c.Calibrate(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&opts.InputTensors, "input-tensors", "", "comma separated input tensor names")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file")
	_ = cmd.MarkFlagRequired("input-tensors")

	return cmd
}

// NewQuantizeCommand creates the quantize command.
func NewQuantizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DSSOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "quantize <model>",
		Short: "Quantize a model with per-tensor dynamic ranges",
		Long: `Quantize a model. The dynamic ranges file maps each tensor name to a
[min, max] pair, in YAML or JSON:

  input.1: [-2.1179, 2.64]
  conv1.weight: [-1.5e-10, 4.337553946243133e-06]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ranges, err := loadDynamicRanges(opts.DynamicRanges)
			if err != nil {
				return err
			}
			return runDSS(cmd, opts, args[0], "quantized.onnx", func(ctx context.Context, c *furiosa.Client, source []byte, filename string) ([]byte, error) {
				req := furiosa.NewQuantizeRequest(source, splitTensors(opts.InputTensors), ranges).WithFilename(filename)
				return c.Quantize(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&opts.InputTensors, "input-tensors", "", "comma separated input tensor names")
	cmd.Flags().StringVar(&opts.DynamicRanges, "dynamic-ranges", "", "dynamic ranges file (YAML or JSON)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file")
	_ = cmd.MarkFlagRequired("input-tensors")
	_ = cmd.MarkFlagRequired("dynamic-ranges")

	return cmd
}

// NewOptimizeCommand creates the optimize command.
func NewOptimizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DSSOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "optimize <model>",
		Short: "Optimize a model graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDSS(cmd, opts, args[0], "optimized.onnx", func(ctx context.Context, c *furiosa.Client, source []byte, filename string) ([]byte, error) {
				return c.Optimize(ctx, furiosa.NewOptimizeRequest(source).WithFilename(filename))
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file")

	return cmd
}

type dssFn func(ctx context.Context, c *furiosa.Client, source []byte, filename string) ([]byte, error)

func runDSS(cmd *cobra.Command, opts *DSSOptions, model, defaultName string, fn dssFn) error {
	source, filename, err := readModel(model)
	if err != nil {
		return err
	}

	c, err := opts.client()
	if err != nil {
		return err
	}

	out, err := fn(cmd.Context(), c, source, filename)
	if err != nil {
		return err
	}

	output := opts.Output
	if output == "" {
		output = defaultName
	}
	if err := artifact.WriteFile(cmd.Context(), out, output, opts.logger); err != nil {
		return errs.Wrap(errs.KindIO, "writing "+output, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", output, len(out))
	return nil
}
