package main

import (
	"FaceTrigger/pkg/servo"
	"FaceTrigger/pkg/utils"
	"fmt"
	"os"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var listPorts bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Read one camera frame, run the detector on it and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listPorts {
			return printPorts()
		}

		source, detector, err := openVision(env, logger, utils.New())
		if err != nil {
			return err
		}
		defer source.Close()
		defer detector.Close()

		frame, err := source.Read(cmd.Context())
		if err != nil {
			return fmt.Errorf("unable to read from camera: %w", err)
		}

		result, err := detector.Detect(cmd.Context(), frame)
		if err != nil {
			return fmt.Errorf("detection failed: %w", err)
		}

		out, err := jsoniter.MarshalIndent(struct {
			Backend     string  `json:"backend"`
			Width       int     `json:"width"`
			Height      int     `json:"height"`
			FacePresent bool    `json:"face_detected"`
			Faces       int     `json:"faces"`
			Confidence  float64 `json:"confidence"`
			LatencyMS   int64   `json:"latency_ms"`
		}{
			Backend:     env.DetectorBackend,
			Width:       frame.Width,
			Height:      frame.Height,
			FacePresent: result.FacePresent,
			Faces:       result.Faces,
			Confidence:  result.Confidence,
			LatencyMS:   result.Latency.Milliseconds(),
		}, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(out))
		return nil
	},
}

func printPorts() error {
	ports, err := servo.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PORT\tCONFIGURED")
	for _, p := range ports {
		configured := ""
		if p == env.SerialPort {
			configured = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\n", p, configured)
	}
	return w.Flush()
}

func init() {
	checkCmd.Flags().BoolVar(&listPorts, "list-ports", false, "list serial ports instead of checking the camera")
	rootCmd.AddCommand(checkCmd)
}
