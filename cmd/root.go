// Package cmd implements the carbridge command line.
package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/carbridge/app"
	"github.com/kilianp07/carbridge/config"
	"github.com/kilianp07/carbridge/core/monitoring"
	"github.com/kilianp07/carbridge/infra/logger"
	inframonitoring "github.com/kilianp07/carbridge/infra/monitoring"
)

// Version is set at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

var cfgPath string

var logFile io.Closer

var rootCmd = &cobra.Command{
	Use:           "carbridge",
	Short:         "Mirror vehicle telemetry to MQTT and Home Assistant",
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bridge until interrupted",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.AddCommand(runCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func closeLogFile() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// loadService reads the configuration and builds the service without
// starting it.
func loadService() (*app.Service, *config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetDefaultLevel(cfg.CarConnectivity.LogLevel); err != nil {
		return nil, nil, err
	}
	if lf := cfg.CarConnectivity.LogFile; lf.Path != "" && logFile == nil {
		if logFile, err = logger.OpenFile(lf); err != nil {
			return nil, nil, err
		}
	}
	svc, err := app.New(cfg, Version)
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cfg, err := loadService()
	if err != nil {
		return err
	}
	defer closeLogFile()
	log := logger.New("main")
	mon, err := inframonitoring.NewSentryMonitor(cfg.CarConnectivity.Sentry, Version)
	if err != nil {
		log.Errorf("monitoring disabled: %v", err)
	} else {
		monitoring.Init(mon)
	}
	defer monitoring.Recover()

	redacted := cfg.Redacted().CarConnectivity
	for _, m := range config.Enabled(redacted.Connectors) {
		log.Debugw("connector "+m.Type, m.Conf)
	}
	for _, m := range config.Enabled(redacted.Plugins) {
		log.Debugw("plugin "+m.Type, m.Conf)
	}
	log.Infof("carbridge %s starting", Version)
	if err := svc.Run(ctx); err != nil {
		return err
	}
	log.Infof("carbridge stopped")
	return nil
}
