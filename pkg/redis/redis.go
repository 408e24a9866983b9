package redis

import (
	"FaceTrigger/internal/entity"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	FaceStateKey       = "face:state"
	FaceEventsChannel  = "face:events"
	ServoEventsChannel = "servo:events"
)

type IRedis interface {
	PublishFaceState(ctx context.Context, state entity.FaceState) error
	PublishServoEvent(ctx context.Context, event entity.ServoEvent) error
	Close() error
}

type Config struct {
	Address  string
	Password string
	DB       int
}

type redisClient struct {
	client *redis.Client
	log    *logrus.Logger
}

func New(cfg Config, log *logrus.Logger) IRedis {
	log.Info(fmt.Sprintf("Connecting to Redis at %s...", cfg.Address))

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		log.Info("Successfully connected to Redis")
	}

	return NewWithClient(client, log)
}

func NewWithClient(client *redis.Client, log *logrus.Logger) IRedis {
	return &redisClient{client: client, log: log}
}

func (r *redisClient) PublishFaceState(ctx context.Context, state entity.FaceState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, FaceStateKey, payload, 0)
	pipe.Publish(ctx, FaceEventsChannel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish face state: %w", err)
	}

	r.log.Debug(fmt.Sprintf("Published face state face_detected=%t", state.FaceDetected))
	return nil
}

func (r *redisClient) PublishServoEvent(ctx context.Context, event entity.ServoEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := r.client.Publish(ctx, ServoEventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish servo event %s: %w", event.ID, err)
	}
	return nil
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
