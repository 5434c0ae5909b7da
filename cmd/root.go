package cmd

import (
	"errors"
	"fmt"
	"os"

	"bucket-list-backend/internal/config"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.yaml"

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bucketlist",
	Short: "Bucket list GraphQL backend",
	Long: `Bucket list serves a GraphQL API for shared travel bucket lists:
users and friends, buckets of categorized places, and group chats with
realtime message subscriptions.`,
	SilenceUsage: true,
}

// loadConfig reads the config file for commands that need a store or secrets.
// Without --config, config.yaml is used when present and defaults otherwise.
func loadConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", defaultConfigPath, err)
		}
	}

	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	configPath = path

	setupLogger(cfg.Log)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ./config.yaml when present)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
