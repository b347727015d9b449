// Package config loads smtshim settings from defaults, smtshim.yaml, SMTSHIM_*
// environment variables and command-line flags, in that order of priority.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"slava0135/smtshim/smt"
	"slava0135/smtshim/sorts"
	"slava0135/smtshim/symexec"
)

const envPrefix = "SMTSHIM_"

const (
	DefaultSolver   = "z3"
	DefaultTimeout  = 10 * time.Second
	DefaultStrategy = string(symexec.StrategyDFS)
	DefaultMaxDepth = 256
	DefaultFormat   = FormatTable
)

const (
	FormatTable = "table"
	FormatYAML  = "yaml"
)

type Config struct {
	Solver string `koanf:"solver"`
	// SolverCmd replaces the known command line of Solver when set.
	SolverCmd     string        `koanf:"solver_cmd"`
	Logic         string        `koanf:"logic"`
	Preamble      string        `koanf:"preamble"`
	Sorts         string        `koanf:"sorts"`
	TranscriptDir string        `koanf:"transcript_dir"`
	Timeout       time.Duration `koanf:"timeout"`
	Workers       int           `koanf:"workers"`
	Strategy      string        `koanf:"strategy"`
	MaxDepth      int           `koanf:"max_depth"`
	Format        string        `koanf:"format"`
	Verbose       bool          `koanf:"verbose"`

	// FileUsed is the config file that was read, if any.
	FileUsed string `koanf:"-"`
}

// findConfigFile finds the config file to use.
// Priority: explicit path > smtshim.yaml > smtshim.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"smtshim.yaml", "smtshim.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"solver":         DefaultSolver,
		"solver_cmd":     "",
		"logic":          "",
		"preamble":       "",
		"sorts":          "",
		"transcript_dir": "",
		"timeout":        DefaultTimeout.String(),
		"workers":        runtime.NumCPU(),
		"strategy":       DefaultStrategy,
		"max_depth":      DefaultMaxDepth,
		"format":         DefaultFormat,
		"verbose":        false,
	}
}

// Load builds the configuration. flags may be nil; only flags the user
// changed take part, with kebab-case names mapped to snake_case keys.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// SMTSHIM_TRANSCRIPT_DIR -> transcript_dir
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.FileUsed = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SolverArgv is the command line that starts the solver.
func (c *Config) SolverArgv() ([]string, error) {
	if c.SolverCmd != "" {
		return strings.Fields(c.SolverCmd), nil
	}
	return smt.SolverCommand(c.Solver)
}

// Registry loads the type registry file, or returns the defaults.
func (c *Config) Registry() (*sorts.Table, error) {
	if c.Sorts == "" {
		return sorts.Default(), nil
	}
	return sorts.LoadFile(c.Sorts)
}

// SessionConfig assembles what smt.NewSession needs, reading the preamble
// file if one is set.
func (c *Config) SessionConfig(log *zap.Logger) (smt.Config, error) {
	argv, err := c.SolverArgv()
	if err != nil {
		return smt.Config{}, err
	}
	var extra string
	if c.Preamble != "" {
		b, err := os.ReadFile(c.Preamble)
		if err != nil {
			return smt.Config{}, fmt.Errorf("read preamble: %w", err)
		}
		extra = string(b)
	}
	return smt.Config{
		Command:       argv,
		Preamble:      smt.Preamble(c.Logic, extra),
		TranscriptDir: c.TranscriptDir,
		Logger:        log,
	}, nil
}

// ExploreOptions maps the explorer settings onto symexec.Options.
func (c *Config) ExploreOptions(log *zap.Logger) symexec.Options {
	return symexec.Options{
		Strategy: symexec.Strategy(c.Strategy),
		MaxDepth: c.MaxDepth,
		Timeout:  c.Timeout,
		Workers:  c.Workers,
		Logger:   log,
	}
}
