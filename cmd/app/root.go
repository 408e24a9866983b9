package main

import (
	"FaceTrigger/internal/config"
	"FaceTrigger/pkg/log"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const Version = "1.0.0"

var (
	logger *logrus.Logger
	env    *config.Env

	envFile  string
	host     string
	port     int
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "facetrigger",
	Short:        "Webcam face detector that drives a servo and serves detection state over HTTP",
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dotEnvErr := config.LoadDotEnv(envFile)

		logger = log.NewLogger()
		if dotEnvErr != nil {
			logger.Warnf("Error loading %s file: %v", envFile, dotEnvErr)
		}
		if logLevel != "" {
			if err := log.SetLevel(logLevel); err != nil {
				return err
			}
		}

		loaded, err := config.LoadEnv(os.Getenv, config.NewValidator())
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			loaded.AppHost = host
		}
		if cmd.Flags().Changed("port") {
			loaded.AppPort = port
		}
		env = loaded
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "listen host (overrides APP_HOST)")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "listen port (overrides APP_PORT)")
}
