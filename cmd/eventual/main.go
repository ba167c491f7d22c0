package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/eventual/internal/cmd/client"
	serverrun "github.com/rzbill/eventual/internal/cmd/server"
	cfgpkg "github.com/rzbill/eventual/internal/config"
)

func main() {
	var addr string
	rootCmd := &cobra.Command{
		Use:          "eventual",
		Short:        "eventual event log CLI",
		Long:         "eventual is a single-binary append-only event log. This CLI runs the server and talks to it.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&addr, "addr", clientcmd.AddrFromEnv(), "Server address for client commands")

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start eventual server (wire protocol, plus HTTP and gRPC admin)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := serverrun.Run(cmd.Context(), serverrun.Options{Config: cfg}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	f := serverStartCmd.Flags()
	f.String("config", "", "Config file (.yaml, .yml or .json)")
	f.String("env-file", "", "Dotenv file with EVENTUAL_* variables (default .env if present)")
	f.String("backend", "", "Storage backend: memory|disk|pebble")
	f.String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	f.String("listen", "", "Wire protocol listen address (default "+cfgpkg.DefaultAddr+")")
	f.Int("workers", 0, "Connection worker pool size (default number of CPUs)")
	f.String("http", "", "HTTP admin listen address (use \"-\" to disable)")
	f.String("grpc", "", "gRPC health listen address (use \"-\" to disable)")
	f.String("fsync", "", "Pebble fsync mode: always|interval|never")
	f.Int("fsync-interval-ms", 0, "When --fsync=interval, group-commit window in ms")
	f.Int("index-sync-ms", -1, "Disk index sync interval in ms (0 disables)")
	f.String("log-level", "", "Log level: debug|info|warn|error")
	f.String("log-format", "", "Log format: text|json")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	rootCmd.AddCommand(clientcmd.Commands(func() string { return addr })...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers defaults, the config file, dotenv and EVENTUAL_* variables,
// then flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	f := cmd.Flags()
	path, _ := f.GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfg, err
	}
	envFile, _ := f.GetString("env-file")
	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}
	if err := cfgpkg.LoadDotEnv(envFiles...); err != nil {
		return cfg, fmt.Errorf("load env file: %w", err)
	}
	if err := cfgpkg.FromEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read environment: %w", err)
	}

	str := func(name string, dst *string) {
		if f.Changed(name) {
			v, _ := f.GetString(name)
			if v == "-" {
				v = ""
			}
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}
	str("backend", &cfg.Storage.Backend)
	str("data-dir", &cfg.Storage.DataDir)
	str("listen", &cfg.Listen.Addr)
	num("workers", &cfg.Listen.Workers)
	str("http", &cfg.Admin.HTTPAddr)
	str("grpc", &cfg.Admin.GRPCAddr)
	str("fsync", &cfg.Storage.Fsync)
	num("fsync-interval-ms", &cfg.Storage.FsyncIntervalMs)
	num("index-sync-ms", &cfg.Storage.IndexSyncIntervalMs)
	str("log-level", &cfg.Log.Level)
	str("log-format", &cfg.Log.Format)
	return cfg, cfg.Validate()
}
