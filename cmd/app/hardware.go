package main

import (
	"FaceTrigger/internal/config"
	"FaceTrigger/internal/vision"
	"FaceTrigger/pkg/opencv"
	"FaceTrigger/pkg/servo"
	"FaceTrigger/pkg/utils"
	websocketPkg "FaceTrigger/pkg/websocket"
	"fmt"

	"github.com/sirupsen/logrus"
)

// openServo falls back to the no-op servo when the port cannot be opened so
// the HTTP api stays up without hardware.
func openServo(env *config.Env, logger *logrus.Logger) servo.IServo {
	if env.HostedMode {
		return servo.NewNoop(logger)
	}

	sv, err := servo.Open(servo.Config{
		Port:          env.SerialPort,
		BaudRate:      env.SerialBaud,
		PulseDuration: env.PulseDuration,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Serial port unavailable, servo disabled")
		return servo.NewNoop(logger)
	}
	return sv
}

func openDetector(env *config.Env, logger *logrus.Logger, u utils.IUtils) (vision.Detector, error) {
	switch env.DetectorBackend {
	case "cascade":
		detector, err := opencv.NewCascadeDetector(opencv.CascadeConfig{Path: env.CascadePath})
		if err != nil {
			return nil, err
		}
		return detector, nil
	case "dnn":
		detector, err := opencv.NewDNNDetector(opencv.DNNConfig{
			ModelPath:     env.DNNModelPath,
			ConfigPath:    env.DNNConfigPath,
			MinConfidence: env.MinDetectionConfidence,
		})
		if err != nil {
			return nil, err
		}
		return detector, nil
	case "remote":
		return websocketPkg.NewAIWebSocketClient(websocketPkg.Config{
			URL:           env.FaceDetectionURL,
			MinConfidence: env.MinDetectionConfidence,
			MaxWidth:      env.RemoteFrameMaxWidth,
			MaxHeight:     env.RemoteFrameMaxWidth,
		}, logger, u), nil
	default:
		return nil, fmt.Errorf("unknown detector backend %q", env.DetectorBackend)
	}
}

func openVision(env *config.Env, logger *logrus.Logger, u utils.IUtils) (vision.FrameSource, vision.Detector, error) {
	camera, err := opencv.OpenCamera(env.CameraDevice, opencv.DefaultJPEGQuality, logger)
	if err != nil {
		return nil, nil, err
	}

	detector, err := openDetector(env, logger, u)
	if err != nil {
		camera.Close()
		return nil, nil, fmt.Errorf("failed to create %s detector: %w", env.DetectorBackend, err)
	}

	return camera, detector, nil
}
