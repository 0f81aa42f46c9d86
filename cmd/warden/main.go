// Command warden runs the operation gateway: it classifies SQL, management
// API, and SDK operations by risk, enforces per-subsystem safety modes, and
// requires confirmation for high-risk operations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warden-db/warden/cmd/warden/config"
	"github.com/warden-db/warden/cmd/warden/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Operation gateway for a managed Postgres project",
	Long: `Warden mediates database queries, management API requests, and admin SDK
calls. Every operation is risk-classified; destructive operations require an
explicit confirmation step, and extreme-risk operations never run.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("warden %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	serveCmd.Flags().String("config", "", "path to config file")
	serveCmd.Flags().String("address", ":8080", "server listen address")
	serveCmd.Flags().String("database-url", "", "postgres connection string")
	serveCmd.Flags().String("project-ref", "", "managed project reference")
	serveCmd.Flags().String("management-token", "", "management api access token")
	serveCmd.Flags().String("service-role-key", "", "auth admin service role key")
	serveCmd.Flags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	serveCmd.Flags().String("log-format", "console", "log format (console, json)")
	serveCmd.Flags().Bool("metrics", true, "enable prometheus metrics")
	serveCmd.Flags().String("metrics-address", ":9090", "metrics listen address")
	serveCmd.Flags().Duration("confirmation-ttl", 5*time.Minute, "confirmation token lifetime")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := setupLogger(cfg.Logging)
	if err != nil {
		return err
	}

	logger.Info().
		Str("version", version).
		Str("project_ref", cfg.Management.ProjectRef).
		Msg("Starting warden")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := server.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build gateway: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- gateway.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := gateway.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown error")
		return err
	}

	logger.Info().Msg("Stopped")
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()

	v.SetEnvPrefix("WARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := config.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Flat flags override the nested config fields they shadow.
	applyFlag(cmd, "address", func(s string) { cfg.Server.Address = s })
	applyFlag(cmd, "database-url", func(s string) { cfg.Database.URL = s })
	applyFlag(cmd, "project-ref", func(s string) { cfg.Management.ProjectRef = s })
	applyFlag(cmd, "management-token", func(s string) { cfg.Management.AccessToken = s })
	applyFlag(cmd, "service-role-key", func(s string) { cfg.SDK.ServiceRoleKey = s })
	applyFlag(cmd, "log-level", func(s string) { cfg.Logging.Level = s })
	applyFlag(cmd, "log-format", func(s string) { cfg.Logging.Format = s })
	applyFlag(cmd, "metrics-address", func(s string) { cfg.Metrics.Address = s })
	if cmd.Flags().Changed("metrics") {
		enabled, _ := cmd.Flags().GetBool("metrics")
		cfg.Metrics.Enabled = enabled
	}
	if cmd.Flags().Changed("confirmation-ttl") {
		ttl, _ := cmd.Flags().GetDuration("confirmation-ttl")
		cfg.Confirmation.TTL = ttl
	}

	// Env fallbacks for the secrets and connection settings.
	if cfg.Database.URL == "" {
		cfg.Database.URL = v.GetString("database_url")
	}
	if cfg.Management.ProjectRef == "" {
		cfg.Management.ProjectRef = v.GetString("project_ref")
	}
	if cfg.Management.AccessToken == "" {
		cfg.Management.AccessToken = v.GetString("management_token")
	}
	if cfg.SDK.ServiceRoleKey == "" {
		cfg.SDK.ServiceRoleKey = v.GetString("service_role_key")
	}

	return cfg, nil
}

func applyFlag(cmd *cobra.Command, name string, set func(string)) {
	if cmd.Flags().Changed(name) {
		value, _ := cmd.Flags().GetString(name)
		set(value)
	}
}

func setupLogger(cfg config.LoggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return logger.Level(level).With().Timestamp().Logger(), nil
}
