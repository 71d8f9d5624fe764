// Command clinic-server runs the patient self-assessment service and its
// maintenance tasks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/clinic-assessment-server/internal/config"
	"github.com/clinic-assessment-server/internal/domain"
	"github.com/clinic-assessment-server/internal/logging"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinic-server",
		Short:         "Clinic patient self-assessment server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config.yaml (default: ./config.yaml, ./config/, /etc/clinic-assessment/)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(hashPasswordCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration selected by --config.
func loadConfig() (*config.Manager, error) {
	manager, err := config.NewManager(configFile)
	if err != nil {
		return nil, err
	}
	return manager, nil
}

// setup loads the configuration and builds the logger from it. stdio selects
// a logger that keeps stdout free.
func setup(stdio bool) (*config.Manager, *logrus.Logger, error) {
	manager, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logCfg := manager.GetConfig().Logging
	if stdio {
		logCfg = logging.ForStdio(logCfg)
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	return manager, logger, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func isPostgres(cfg *domain.Config) bool {
	return cfg.Database.Driver == domain.DriverPostgres
}
