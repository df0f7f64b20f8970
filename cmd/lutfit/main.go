package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"lutfit/internal/config"
	"lutfit/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("lutfit failed")
		stop()
		os.Exit(1)
	}
}

type options struct {
	configFile string
	verbose    bool
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	cmd, _ := newCommand()
	return cmd
}

func newCommand() (*cobra.Command, *options) {
	opts := &options{cfg: config.Default()}
	cmd := &cobra.Command{
		Use:   "lutfit <source> <target>",
		Short: "Fit a 3D LUT to measured color correspondences",
		Long: `Reads two plain text files holding one color per line, source and
target paired by line, fits a scattered-data model to them and writes the
model sampled on an N×N×N grid as a .cube or .spi3d LUT.`,
		Example: `  lutfit alexa.csv print-film.csv -d comma -o alexa_to_print_film.cube
  lutfit venice.txt alexa.txt -m regression -p 6 -f spi3d -o venice_to_alexa.spi3d`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(opts.verbose)
			cfg, err := opts.resolve(cmd.Flags(), args)
			if err != nil {
				return err
			}
			_, err = pipeline.Run(cmd.Context(), cfg, logrus.StandardLogger())
			return err
		},
	}

	c := opts.cfg
	f := cmd.Flags()
	f.StringVar(&opts.configFile, "config", "", "JSON config file, flags override its values")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	f.StringVarP(&c.Method, "method", "m", c.Method, "fitting method [scattered | regression]")
	f.StringVarP(&c.Output, "output", "o", "", "output path (default output.cube or output.spi3d)")
	f.StringVarP(&c.Delimiter, "delimiter", "d", c.Delimiter, "dataset delimiter [space | comma | semicolon | tab]")
	f.IntVarP(&c.Precision, "precision", "p", c.Precision, "LUT print precision")
	f.IntVarP(&c.CubeSize, "cube-size", "c", c.CubeSize, "LUT cube size")
	f.StringVarP(&c.Format, "format", "f", c.Format, "LUT format [cube | spi3d]")
	f.BoolVar(&c.Clamp, "clamp", c.Clamp, "clamp LUT values to [0,1]")
	f.IntVar(&c.Workers, "workers", c.Workers, "grid evaluation workers (0 means one per CPU)")
	f.Float64VarP(&c.BaseRadius, "rbf-radius", "s", c.BaseRadius, "RBF base radius")
	f.IntVarP(&c.Layers, "rbf-layers", "l", c.Layers, "RBF layers")
	f.Float64VarP(&c.Regularization, "rbf-smoothing", "z", c.Regularization, "RBF smoothing")
	f.IntVarP(&c.HiddenWidth, "mlp-hidden", "L", c.HiddenWidth, "network hidden units")
	f.IntVarP(&c.Restarts, "mlp-restarts", "r", c.Restarts, "network random restarts")
	f.IntVar(&c.MaxIterations, "mlp-max-iterations", c.MaxIterations, "network optimizer iterations per restart")
	f.Float64Var(&c.WeightDecay, "mlp-weight-decay", c.WeightDecay, "network weight decay")
	f.Uint64Var(&c.Seed, "seed", c.Seed, "network random seed (0 picks one)")
	return cmd, opts
}

// resolve builds the run configuration: defaults, then the config file if
// given, then every flag set on the command line, then the positional paths.
func (o *options) resolve(flags *pflag.FlagSet, args []string) (*config.Config, error) {
	cfg := o.cfg
	if o.configFile != "" {
		loaded, err := config.Load(o.configFile)
		if err != nil {
			return nil, err
		}
		overrideChanged(flags, loaded, o.cfg)
		cfg = loaded
	}
	cfg.Source = args[0]
	cfg.Target = args[1]
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overrideChanged copies into dst every field whose flag was set explicitly.
func overrideChanged(flags *pflag.FlagSet, dst, src *config.Config) {
	flags.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "method":
			dst.Method = src.Method
		case "output":
			dst.Output = src.Output
		case "delimiter":
			dst.Delimiter = src.Delimiter
		case "precision":
			dst.Precision = src.Precision
		case "cube-size":
			dst.CubeSize = src.CubeSize
		case "format":
			dst.Format = src.Format
		case "clamp":
			dst.Clamp = src.Clamp
		case "workers":
			dst.Workers = src.Workers
		case "rbf-radius":
			dst.BaseRadius = src.BaseRadius
		case "rbf-layers":
			dst.Layers = src.Layers
		case "rbf-smoothing":
			dst.Regularization = src.Regularization
		case "mlp-hidden":
			dst.HiddenWidth = src.HiddenWidth
		case "mlp-restarts":
			dst.Restarts = src.Restarts
		case "mlp-max-iterations":
			dst.MaxIterations = src.MaxIterations
		case "mlp-weight-decay":
			dst.WeightDecay = src.WeightDecay
		case "seed":
			dst.Seed = src.Seed
		}
	})
}

func setupLogging(verbose bool) {
	logrus.SetOutput(os.Stderr)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
