// Package cli provides the smtshim command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"slava0135/smtshim/config"
	"slava0135/smtshim/smt"
	"slava0135/smtshim/symexec"
)

// Version is set at build time.
var Version = "0.1.0"

// app is what every subcommand shares once the root has loaded it.
type app struct {
	cfgFile string
	cfg     *config.Config
	log     *zap.Logger
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "smtshim",
		Short: "smtshim - drive SMT-LIB solvers over a pipe",
		Long: `smtshim sends boolean formulas to an external SMT-LIB 2 solver (z3, cvc4,
cvc5, yices) and reads back sat, unsat or unknown.

It checks query files, explores Go functions symbolically with the solver
pruning infeasible paths, and runs a set of worked examples.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(a.cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			a.cfg = cfg

			a.log, err = newLogger(cfg.Verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			if cfg.FileUsed != "" {
				a.log.Debug("using config file", zap.String("path", cfg.FileUsed))
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./smtshim.yaml)")
	flags.String("solver", config.DefaultSolver, fmt.Sprintf("solver to run (%v)", smt.Solvers()))
	flags.String("solver-cmd", "", "command line of the solver, overrides --solver")
	flags.String("logic", "", "SMT-LIB logic to set, e.g. QF_BV")
	flags.String("preamble", "", "file with SMT-LIB text sent once per session")
	flags.String("sorts", "", "type registry file")
	flags.String("transcript-dir", "", "directory for per-session .smt2 transcripts")
	flags.Duration("timeout", config.DefaultTimeout, "bound on each check, 0 for none")
	flags.Int("workers", 0, "number of solver sessions (default: number of CPUs)")
	flags.String("strategy", config.DefaultStrategy, fmt.Sprintf("path exploration order (%v)", symexec.Strategies()))
	flags.Int("max-depth", config.DefaultMaxDepth, "maximum blocks on one explored path")
	flags.StringP("format", "o", config.DefaultFormat, "output format (table|yaml)")
	flags.BoolP("verbose", "v", false, "debug logging")

	_ = rootCmd.RegisterFlagCompletionFunc("solver", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return smt.Solvers(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{config.FormatTable, config.FormatYAML}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newVersionCommand(Version))
	rootCmd.AddCommand(newCheckCommand(a))
	rootCmd.AddCommand(newExploreCommand(a))
	rootCmd.AddCommand(newDemoCommand(a))

	return rootCmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// withTimeout bounds one check by the configured timeout.
func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.Timeout)
}

// factory starts sessions the way the configuration says.
func (a *app) factory(reg smt.Registry) (smt.Factory, error) {
	sc, err := a.cfg.SessionConfig(a.log)
	if err != nil {
		return nil, err
	}
	return func() (*smt.Session, error) {
		return smt.NewSession(sc, reg)
	}, nil
}
