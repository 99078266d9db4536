package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MojoAuth/connector-identity/pkg/config"
)

// Version is stamped at build time.
var Version = "development"

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	root := &cobra.Command{
		Use:          "connectorid",
		Short:        "Compute and check content identifiers of connector instances",
		SilenceUsage: true,
		Version:      Version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file; defaults to ./configs/<APP_ENV>.yaml when present")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	load := func() (*config.Config, *viper.Viper, error) {
		cfg, v, err := loadConfig(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading configuration: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		return cfg, v, nil
	}

	root.AddCommand(newIDCmd(load))
	root.AddCommand(newCanonicalCmd(load))
	root.AddCommand(newServeCmd(load))
	root.AddCommand(newForgetCmd(load))
	return root
}

// configLoader returns the effective config and, when it came from a file,
// the viper instance that can watch it.
type configLoader func() (*config.Config, *viper.Viper, error)

func loadConfig(path string) (*config.Config, *viper.Viper, error) {
	if path != "" {
		return config.LoadFile(path)
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if _, err := os.Stat(fmt.Sprintf("./configs/%s.yaml", env)); errors.Is(err, os.ErrNotExist) {
		cfg, err := config.Default()
		return cfg, nil, err
	}

	return config.Load()
}
