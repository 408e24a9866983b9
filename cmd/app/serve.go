package main

import (
	"FaceTrigger/internal/config"
	"FaceTrigger/pkg/metrics"
	"FaceTrigger/pkg/redis"
	"FaceTrigger/pkg/utils"
	"context"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the detection loop and the HTTP api (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	u := utils.New()

	options := []config.ServerOption{
		config.WithFiber(config.NewFiber(logger)),
		config.WithLogger(logger),
		config.WithEnv(env),
		config.WithValidator(config.NewValidator()),
		config.WithMiddleware(),
		config.WithUtils(),
		config.WithMetrics(metrics.New()),
		config.WithServo(openServo(env, logger)),
	}

	if env.HostedMode {
		logger.Info("Hosted mode enabled, camera and serial port are not used")
	} else {
		source, detector, err := openVision(env, logger, u)
		if err != nil {
			logger.WithError(err).Error("Face detection unavailable")
		} else {
			options = append(options, config.WithVision(source, detector))
		}
	}

	if env.RedisAddress != "" {
		options = append(options, config.WithRedisServer(redis.New(redis.Config{
			Address:  env.RedisAddress,
			Password: env.RedisPassword,
			DB:       env.RedisDB,
		}, logger)))
	}

	server, err := config.NewServer(options...)
	if err != nil {
		return err
	}

	server.RegisterHandler()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	logger.Info("Server started successfully")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case runErr = <-errCh:
		logger.WithError(runErr).Error("Error starting server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Shutdown finished with errors")
	}

	return runErr
}
