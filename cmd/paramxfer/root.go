package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kolkov/paramxfer/internal/config"
	"github.com/kolkov/paramxfer/internal/logging"
)

// newRootCmd builds the command tree. Each call returns a fresh tree so tests
// can execute commands independently.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "paramxfer",
		Short: "Lock-free parameter transfer between control and audio threads",
		Long: `paramxfer moves float32 parameters from any number of control-side
writers to a single real-time consumer without locks or allocation, and
drives them through a smoothing synthesizer shell.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.config/paramxfer/config.yaml)")
	flags.IntP("parameters", "n", 0, "number of parameters (overrides parameters.count)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-dir", "", "directory for paramxfer.log (default stderr)")
	// Bound flags override the config file only when set explicitly.
	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("parameters.count", flags.Lookup("parameters"))
	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("logging.dir", flags.Lookup("log-dir"))

	root.AddCommand(
		newRenderCmd(),
		newStressCmd(),
		newMonitorCmd(),
		newVersionCmd(),
	)
	return root
}

func initConfig() error {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("PARAMXFER")
	// e.g., PARAMXFER_AUDIO_BLOCK_SIZE for audio.block_size
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing default config is fine; an explicit one must load.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// loadConfig unmarshals and validates the merged configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newRunLogger opens the configured logger and tags it with a fresh run ID
// and the command name.
func newRunLogger(cfg *config.Config, command string) (*logging.Logger, error) {
	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return logger.WithRun(logging.NewRunID()).WithComponent(command), nil
}

// bindFlags binds the running command's flags to viper keys. Several
// subcommands share keys such as preset.path, and viper keeps one flag per
// key, so binding happens in PreRunE for the command being executed only.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for name, key := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}
