// Package cmd holds the topicweb command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/TFMV/topicweb/config"
	"github.com/TFMV/topicweb/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.3.0"

var (
	configPath string
	logLevel   string
	devLogs    bool
	datasetArg string
)

var rootCmd = &cobra.Command{
	Use:   "topicweb",
	Short: "topicweb explores keyword co-occurrence networks",
	Long: Brand.Sprint("topicweb") + " lays out a keyword co-occurrence network with a force simulation\n" +
		Subtle.Sprint("Serve it interactively, render it to a file or inspect the dataset"),
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("topicweb {{ .Version }}\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&devLogs, "dev", false, "Human readable development logs")
	rootCmd.PersistentFlags().StringVarP(&datasetArg, "dataset", "d", "", "Dataset location: path, http(s):// URL or s3://bucket/key")

	rootCmd.AddCommand(
		serveCmd(),
		renderCmd(),
		inspectCmd(),
	)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		Bad.Fprintf(os.Stderr, "topicweb: %v\n", err)
		return err
	}
	return nil
}

// setup loads the configuration, applies the global flags and builds the
// logger
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("dev") {
		cfg.Logging.Development = devLogs
	}
	if flags.Changed("dataset") {
		cfg.Dataset.Source = datasetArg
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}
