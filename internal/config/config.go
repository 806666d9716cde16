package config

import (
	"log"
	"os"
	"time"
)

// Config is the process configuration, loaded from the environment with
// sane defaults. Mongo and Redis are optional: without them the service runs
// purely in memory.
type Config struct {
	HTTPPort string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string

	JWTSecret string
	AdminKey  string

	SessionIdleThreshold time.Duration
	SessionSweepInterval time.Duration
	RoomIdleThreshold    time.Duration
	RoomSweepInterval    time.Duration
	RoomDuration         time.Duration
	RoomRetention        time.Duration
	QueueStaleAge        time.Duration
	QueueSweepInterval   time.Duration
	DisconnectGrace      time.Duration
	QueueCountsInterval  time.Duration
}

func Load() *Config {
	return &Config{
		HTTPPort: getEnv("PORT", "8080"),

		MongoURI: os.Getenv("MONGODB_URI"),
		MongoDB:  getEnv("MONGODB_DATABASE", "codetogether"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		AdminKey:  os.Getenv("ADMIN_KEY"),

		SessionIdleThreshold: getDuration("SESSION_IDLE_THRESHOLD", 30*time.Minute),
		SessionSweepInterval: getDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		RoomIdleThreshold:    getDuration("ROOM_IDLE_THRESHOLD", 60*time.Minute),
		RoomSweepInterval:    getDuration("ROOM_SWEEP_INTERVAL", 10*time.Minute),
		RoomDuration:         getDuration("ROOM_DURATION", 0),
		RoomRetention:        getDuration("ROOM_RETENTION", 5*time.Minute),
		QueueStaleAge:        getDuration("QUEUE_STALE_AGE", 60*time.Minute),
		QueueSweepInterval:   getDuration("QUEUE_SWEEP_INTERVAL", time.Minute),
		DisconnectGrace:      getDuration("DISCONNECT_GRACE", 30*time.Second),
		QueueCountsInterval:  getDuration("QUEUE_COUNTS_INTERVAL", time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid duration for %s (%q), using %s", key, v, fallback)
		return fallback
	}
	return d
}
