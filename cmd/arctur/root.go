package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/small-frappuccino/arctur/pkg/app"
	"github.com/small-frappuccino/arctur/pkg/config"
)

const defaultEnvFile = ".env"

var envFile string

var rootCmd = &cobra.Command{
	Use:           "arctur",
	Short:         "Arctur is a Discord server management bot",
	Long:          "Arctur connects to Discord, registers its slash commands and serves them until interrupted.",
	Version:       app.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBot,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot (same as the root command)",
	RunE:  runBot,
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Register slash commands with Discord and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return app.Deploy(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "dotenv file to load before reading the environment")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(deployCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return app.Run(cmd.Context(), cfg)
}

// loadConfig tolerates a missing default .env; an explicit --env-file must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := envFile
	if !cmd.Flags().Changed("env-file") && path == defaultEnvFile {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	return config.Load(path)
}
