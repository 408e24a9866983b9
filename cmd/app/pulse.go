package main

import (
	"FaceTrigger/pkg/servo"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	pulseDuration time.Duration
	pulsePort     string
)

var pulseCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Fire one servo pulse and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if env.HostedMode {
			return fmt.Errorf("pulse is not available in hosted mode")
		}

		port := env.SerialPort
		if pulsePort != "" {
			port = pulsePort
		}
		duration := env.PulseDuration
		if pulseDuration > 0 {
			duration = pulseDuration
		}

		sv, err := servo.Open(servo.Config{
			Port:          port,
			BaudRate:      env.SerialBaud,
			PulseDuration: duration,
		}, logger)
		if err != nil {
			return err
		}
		defer sv.Close()

		if err := sv.Pulse(cmd.Context(), duration); err != nil {
			return fmt.Errorf("pulse failed: %w", err)
		}

		fmt.Printf("Pulsed servo on %s for %s\n", port, duration)
		return nil
	},
}

func init() {
	pulseCmd.Flags().DurationVar(&pulseDuration, "duration", 0, "time the servo holds the active position (default SERVO_PULSE_DURATION)")
	pulseCmd.Flags().StringVar(&pulsePort, "serial-port", "", "serial port (default SERIAL_PORT)")
	rootCmd.AddCommand(pulseCmd)
}
