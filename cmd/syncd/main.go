// Command syncd is the bidirectional file-sync daemon. Grounded on
// cmd/client/main.go: a cobra root command whose PreRunE binds flags
// into viper and whose RunE constructs and starts the client, plus a
// signal-driven root context for graceful shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opensyncd/syncd/internal/config"
	"github.com/opensyncd/syncd/internal/connector/sock"
	"github.com/opensyncd/syncd/internal/logging"
	"github.com/opensyncd/syncd/internal/sync"
	"github.com/opensyncd/syncd/internal/version"
	"github.com/opensyncd/syncd/internal/watch"
)

var configFileName = "config"

var rootCmd = &cobra.Command{
	Use:     "syncd",
	Short:   "Bidirectional file-sync daemon",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config{
			Path:     viper.ConfigFileUsed(),
			SyncDir:  viper.GetString("sync_dir"),
			Conn:     viper.GetString("conn"),
			ConnHost: viper.GetString("conn_host"),
			ConnPort: viper.GetInt("conn_port"),
			ConnUser: viper.GetString("conn_user"),
			ConnPass: viper.GetString("conn_pass"),
			Key:      viper.GetString("key"),
			LogLevel: viper.GetString("log_level"),
			LogFile:  viper.GetString("log_file"),
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logFile, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return fmt.Errorf("set up logging: %w", err)
		}
		defer logFile.Close()

		cmd.SilenceUsage = true
		showBanner()

		conn, err := sock.New(cfg.ConnHost, cfg.ConnPort, cfg.ConnUser, cfg.ConnPass, cfg.Key)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}

		w, err := watch.New()
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}

		metaPath := filepath.Join(filepath.Dir(cfg.LogFile), "metadata.json")
		client, err := sync.New(cfg.SyncDir, conn, w, metaPath)
		if err != nil {
			return fmt.Errorf("start sync client: %w", err)
		}

		defer slog.Info("syncd stopped")
		return client.Start(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("sync-dir", "d", "", "Directory to keep in sync (required)")
	rootCmd.Flags().String("conn-host", "", "Remote connector host")
	rootCmd.Flags().Int("conn-port", 0, "Remote connector port")
	rootCmd.Flags().StringP("conn-user", "u", "", "Remote connector username")
	rootCmd.Flags().String("conn-pass", "", "Remote connector password")
	rootCmd.Flags().String("key", "", "Shared symmetric key (enables keyed/encrypted mode)")
	rootCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "Config file path")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		home, _ := os.UserHomeDir()
		viper.AddConfigPath(filepath.Join(home, ".syncd"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("json")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("sync_dir", cmd.Flags().Lookup("sync-dir"))
	viper.BindPFlag("conn_host", cmd.Flags().Lookup("conn-host"))
	viper.BindPFlag("conn_port", cmd.Flags().Lookup("conn-port"))
	viper.BindPFlag("conn_user", cmd.Flags().Lookup("conn-user"))
	viper.BindPFlag("conn_pass", cmd.Flags().Lookup("conn-pass"))
	viper.BindPFlag("key", cmd.Flags().Lookup("key"))
	viper.BindPFlag("log_level", cmd.Flags().Lookup("log-level"))

	viper.SetEnvPrefix("SYNCD")
	viper.AutomaticEnv()

	return nil
}

func showBanner() {
	color.New(color.FgHiCyan, color.Bold).Printf("syncd %s\n", version.Short())
}
